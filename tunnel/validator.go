package tunnel

import "net/http"

// Outcome is the verdict of an admission check
type Outcome int

const (
	Authorized Outcome = iota + 1
	Unauthorized
	Forbidden
	MethodNotAllowed
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case MethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unknown"
	}
}

const (
	ReasonKeyRequired      = "API key required"
	ReasonEndpointRequired = "Endpoint required"
	ReasonInvalidKey       = "Invalid API key"
	ReasonMethodNotAllowed = "Method not allowed"
	ReasonPathNotAllowed   = "Path not allowed"
)

// Decision is the result of Validate
type Decision struct {
	Outcome Outcome
	Reason  string
	// Tunnel is set when the API key resolved
	Tunnel *Tunnel
	// Path is the normalized endpoint
	Path string
}

// Authorized reports whether the request may enter the pipeline
func (d Decision) Authorized() bool {
	return d.Outcome == Authorized
}

// StatusCode maps the outcome to an HTTP status
func (d Decision) StatusCode() int {
	switch d.Outcome {
	case Authorized:
		return http.StatusOK
	case Forbidden:
		return http.StatusForbidden
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusUnauthorized
	}
}

// Lookup resolves an API key to its tunnel configuration
type Lookup interface {
	Get(apiKey string) (*Tunnel, error)
}

/* Validate decides whether a request may be admitted
 * The order of checks is part of the contract: credentials first, then
 * method, then blocked paths before allowed paths
 */
func Validate(apiKey, endpoint, method string, lookup Lookup) Decision {
	if apiKey == "" {
		return Decision{Outcome: Unauthorized, Reason: ReasonKeyRequired}
	}
	if endpoint == "" {
		return Decision{Outcome: Unauthorized, Reason: ReasonEndpointRequired}
	}
	t, err := lookup.Get(apiKey)
	if err != nil || t == nil {
		return Decision{Outcome: Unauthorized, Reason: ReasonInvalidKey}
	}

	path := NormalizePath(endpoint)
	if !t.AllowsMethod(method) {
		return Decision{Outcome: MethodNotAllowed, Reason: ReasonMethodNotAllowed, Tunnel: t, Path: path}
	}
	if t.Blocks(path) {
		return Decision{Outcome: Forbidden, Reason: ReasonPathNotAllowed, Tunnel: t, Path: path}
	}
	if !t.Allows(path) {
		return Decision{Outcome: Forbidden, Reason: ReasonPathNotAllowed, Tunnel: t, Path: path}
	}
	return Decision{Outcome: Authorized, Tunnel: t, Path: path}
}
