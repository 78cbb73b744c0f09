// Package signing signs forwarded requests with Standard Webhooks headers so a
// local target can tell relayed traffic from anything else hitting it.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	SecretPrefix = "whsec_"

	version        = "v1"
	minSecretBytes = 24
	maxSecretBytes = 64
)

var (
	ErrInvalidSignature = errors.New("no matching signature")
	ErrStaleTimestamp   = errors.New("timestamp outside tolerance")
)

// Secret is a decoded signing secret
type Secret []byte

// GenerateSecret returns a new encoded secret
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return SecretPrefix + base64.StdEncoding.EncodeToString(b), nil
}

// ParseSecret decodes a whsec_ prefixed secret
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return nil, fmt.Errorf("secret must start with %s", SecretPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, SecretPrefix))
	if err != nil {
		return nil, fmt.Errorf("decoding secret: %w", err)
	}
	if len(raw) < minSecretBytes || len(raw) > maxSecretBytes {
		return nil, fmt.Errorf("secret size must be between %d and %d bytes", minSecretBytes, maxSecretBytes)
	}
	return Secret(raw), nil
}

// Sign returns "v1,<base64 hmac>" over {msgID}.{unix timestamp}.{body}
func (s Secret) Sign(msgID string, ts time.Time, body []byte) (string, error) {
	if msgID == "" || strings.Contains(msgID, ".") {
		return "", fmt.Errorf("invalid message id %q", msgID)
	}
	mac := hmac.New(sha256.New, s)
	fmt.Fprintf(mac, "%s.%d.", msgID, ts.Unix())
	mac.Write(body)
	return version + "," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Apply sets the three signature headers on h
func (s Secret) Apply(h http.Header, msgID string, ts time.Time, body []byte) error {
	sig, err := s.Sign(msgID, ts, body)
	if err != nil {
		return err
	}
	h.Set(HeaderID, msgID)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	h.Set(HeaderSignature, sig)
	return nil
}

/* Verify checks the headers of a signed request
 * The signature header may carry several space-separated signatures; one
 * match is enough
 */
func (s Secret) Verify(h http.Header, body []byte, tolerance time.Duration, now time.Time) error {
	unix, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", HeaderTimestamp, err)
	}
	ts := time.Unix(unix, 0)
	if tolerance > 0 && (now.Sub(ts) > tolerance || ts.Sub(now) > tolerance) {
		return ErrStaleTimestamp
	}

	want, err := s.Sign(h.Get(HeaderID), ts, body)
	if err != nil {
		return err
	}
	for _, got := range strings.Fields(h.Get(HeaderSignature)) {
		if hmac.Equal([]byte(got), []byte(want)) {
			return nil
		}
	}
	return ErrInvalidSignature
}
