package chi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	headerAPIKey   = "x-api-key"
	headerEndpoint = "x-endpoint"
	headerClientID = "x-client-id"

	queryAPIKey   = "key"
	queryEndpoint = "endpoint"
	queryClientID = "client"
)

// credentials are the identifying inputs of an inbound call
type credentials struct {
	APIKey   string
	Endpoint string
	ClientID string
}

/* credentialsFrom reads headers first, then the query string
 * The endpoint falls back to the route wildcard
 */
func credentialsFrom(r *http.Request) credentials {
	q := r.URL.Query()
	c := credentials{
		APIKey:   firstNonEmpty(r.Header.Get(headerAPIKey), q.Get(queryAPIKey)),
		Endpoint: firstNonEmpty(r.Header.Get(headerEndpoint), q.Get(queryEndpoint)),
		ClientID: firstNonEmpty(r.Header.Get(headerClientID), q.Get(queryClientID)),
	}
	if c.Endpoint == "" {
		c.Endpoint = chi.URLParam(r, "*")
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// normalizedURL is the admitted path plus the query without relay credentials
func normalizedURL(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		switch k {
		case queryAPIKey, queryEndpoint, queryClientID:
			continue
		}
		q[k] = v
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
