package relay

import (
	"fmt"
	"time"
)

/* ClientKey identifies one connected client instance
 * A single API key may have many clients (one per CLI or IDE window)
 */
type ClientKey struct {
	APIKey   string `json:"apiKey"`
	ClientID string `json:"clientId"`
}

// String returns the composite key as apiKey:clientId
func (k ClientKey) String() string {
	return fmt.Sprintf("%s:%s", k.APIKey, k.ClientID)
}

// Validate checks that both parts of the key are present
func (k ClientKey) Validate() error {
	if k.APIKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if k.ClientID == "" {
		return fmt.Errorf("client id cannot be empty")
	}
	return nil
}

// Registration is the registry entry for a connected client
type Registration struct {
	Key        ClientKey `json:"key"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// IsLive reports whether the registration is fresher than timeout at now
func (r Registration) IsLive(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.LastSeenAt) < timeout
}
