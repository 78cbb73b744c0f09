package tunnel

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeyPrefix marks relay API keys so they are recognizable in logs and configs
const KeyPrefix = "whr_"

// GenerateAPIKey returns a random URL-safe API key
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
