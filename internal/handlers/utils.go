package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hireboard/apiserver/internal/services"
)

const maxJSONBodyBytes = 1 << 20

type contextKey string

const contextIdentityKey contextKey = "identity"

// Responder writes the JSON envelope shared by every endpoint.
// Detailed causes are only included when Debug is set.
type Responder struct {
	Debug  bool
	Logger *slog.Logger
}

// NewResponder constructs a Responder; a nil logger uses slog.Default.
func NewResponder(debug bool, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Debug: debug, Logger: logger}
}

// Envelope is the response body for every JSON endpoint.
type Envelope map[string]any

func identityFromContext(ctx context.Context) (services.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(services.Identity)
	if !ok || identity.UserID == "" {
		return services.Identity{}, false
	}
	return identity, true
}

func withIdentity(ctx context.Context, identity services.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// success writes {"success": true, "message": message, ...payload}.
func (rs *Responder) success(w http.ResponseWriter, status int, message string, payload Envelope) {
	body := Envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for key, value := range payload {
		body[key] = value
	}
	writeJSON(w, status, body)
}

// fail writes a failure envelope with an explicit status.
func (rs *Responder) fail(w http.ResponseWriter, status int, message string, cause error) {
	body := Envelope{"success": false, "message": message}
	if rs.Debug && cause != nil {
		body["error"] = cause.Error()
	}
	writeJSON(w, status, body)
}

// fromError maps a service error to a status and writes the failure envelope.
func (rs *Responder) fromError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		rs.Logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	rs.fail(w, status, services.MessageOf(err), err)
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindConflict, services.KindAuth:
		return http.StatusBadRequest
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid request body")
	}
	return nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
