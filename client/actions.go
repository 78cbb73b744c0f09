package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// APIKey is a key issued by the relay's create-api-key action
type APIKey struct {
	APIKey string `json:"apiKey"`
	Name   string `json:"name"`
}

// Peer is a live client as reported by the list-clients action
type Peer struct {
	ClientID   string    `json:"clientId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Admin talks to the relay's action endpoint without holding a session
type Admin struct {
	ServerURL string
	HTTP      *http.Client
}

func (a Admin) do(ctx context.Context, payload map[string]any, want int, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling action: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.ServerURL+"/v1/tunnel", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := a.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("calling relay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return rejected(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding relay answer: %w", err)
	}
	return nil
}

// CreateAPIKey asks the relay for a new allow-all API key
func (a Admin) CreateAPIKey(ctx context.Context, name string) (APIKey, error) {
	var key APIKey
	err := a.do(ctx, map[string]any{"action": "create-api-key", "name": name}, http.StatusCreated, &key)
	return key, err
}

// ListClients returns the live clients of apiKey
func (a Admin) ListClients(ctx context.Context, apiKey string) ([]Peer, error) {
	var peers []Peer
	err := a.do(ctx, map[string]any{"action": "list-clients", "apiKey": apiKey}, http.StatusOK, &peers)
	return peers, err
}
