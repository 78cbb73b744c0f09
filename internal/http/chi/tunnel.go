package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/tunnel"
)

/* HTTP layer DTOs for the client action endpoint
 * Separate from domain entities to avoid leaking internal structure
 */

const (
	actionCreateAPIKey = "create-api-key"
	actionListClients  = "list-clients"
	actionRequest      = "request"
	actionResponse     = "response"
)

// actionPayload is the body of POST /v1/tunnel
type actionPayload struct {
	Action   string `json:"action"`
	APIKey   string `json:"apiKey"`
	ClientID string `json:"clientId"`

	// create-api-key
	Name string `json:"name"`

	// request
	Method   string            `json:"method"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
	Body     []byte            `json:"body"`

	// response
	Response *relay.PendingResponse `json:"response"`
}

type apiKeyResponse struct {
	APIKey string `json:"apiKey"`
	Name   string `json:"name"`
}

type clientResponse struct {
	ClientID   string    `json:"clientId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// tunnelAction handles POST /v1/tunnel
func tunnelAction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p actionPayload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		creds := credentialsFrom(r)
		p.APIKey = firstNonEmpty(creds.APIKey, p.APIKey)
		p.ClientID = firstNonEmpty(creds.ClientID, p.ClientID)

		switch p.Action {
		case actionCreateAPIKey:
			createAPIKey(w, deps, p)
		case actionListClients:
			listClients(w, r, deps, p)
		case actionRequest:
			requestAction(w, r, deps, p)
		case actionResponse:
			responseAction(w, r, deps, p)
		case "":
			http.Error(w, "action is required", http.StatusBadRequest)
		default:
			http.Error(w, "unknown action: "+p.Action, http.StatusBadRequest)
		}
	}
}

func createAPIKey(w http.ResponseWriter, deps Deps, p actionPayload) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	t, err := deps.Tunnels.Create(name)
	if err != nil {
		deps.Logger.Error().Err(err).Str("name", name).Msg("failed to create api key")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, apiKeyResponse{APIKey: t.APIKey, Name: t.Name})
}

// knownKey writes the rejection for a missing or unknown key
func knownKey(w http.ResponseWriter, deps Deps, apiKey string) bool {
	if apiKey == "" {
		http.Error(w, tunnel.ReasonKeyRequired, http.StatusUnauthorized)
		return false
	}
	if t, err := deps.Tunnels.Get(apiKey); err != nil || t == nil {
		http.Error(w, tunnel.ReasonInvalidKey, http.StatusUnauthorized)
		return false
	}
	return true
}

func listClients(w http.ResponseWriter, r *http.Request, deps Deps, p actionPayload) {
	if !knownKey(w, deps, p.APIKey) {
		return
	}
	regs, err := deps.Relay.Clients(r.Context(), p.APIKey)
	if err != nil {
		deps.Logger.Error().Err(err).Msg("failed to list clients")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	out := make([]clientResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, clientResponse{ClientID: reg.Key.ClientID, LastSeenAt: reg.LastSeenAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// requestAction dispatches a request described in JSON and passes the raw response through
func requestAction(w http.ResponseWriter, r *http.Request, deps Deps, p actionPayload) {
	method := strings.ToUpper(firstNonEmpty(p.Method, http.MethodPost))
	decision := tunnel.Validate(p.APIKey, p.Endpoint, method, deps.Tunnels)
	if !decision.Authorized() {
		http.Error(w, decision.Reason, decision.StatusCode())
		return
	}
	if p.ClientID == "" {
		http.Error(w, msgClientRequired, http.StatusBadRequest)
		return
	}

	headers := make(map[string][]string, len(p.Headers))
	for k, v := range p.Headers {
		headers[k] = []string{v}
	}
	req := relay.PendingRequest{
		ID:         uuid.New().String(),
		Client:     relay.ClientKey{APIKey: p.APIKey, ClientID: p.ClientID},
		Method:     method,
		URL:        decision.Path,
		Path:       decision.Path,
		Headers:    relay.NormalizeHeaders(headers),
		Body:       p.Body,
		ReceivedAt: time.Now(),
	}
	req.ContentType = req.Header("Content-Type")

	dispatch(w, r, deps, req)
}

func responseAction(w http.ResponseWriter, r *http.Request, deps Deps, p actionPayload) {
	if p.APIKey == "" || p.ClientID == "" {
		http.Error(w, "apiKey and clientId are required", http.StatusBadRequest)
		return
	}
	if p.Response == nil || p.Response.RequestID == "" {
		http.Error(w, "response.requestId is required", http.StatusBadRequest)
		return
	}
	if !knownKey(w, deps, p.APIKey) {
		return
	}
	key := relay.ClientKey{APIKey: p.APIKey, ClientID: p.ClientID}
	if err := deps.Relay.PushResult(r.Context(), key, *p.Response); err != nil {
		if errors.Is(err, relay.ErrUnknownRequest) {
			http.Error(w, "Unknown request", http.StatusNotFound)
			return
		}
		deps.Logger.Error().Err(err).Str("client", key.String()).Msg("failed to push response")
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
