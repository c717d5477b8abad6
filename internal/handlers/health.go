package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Healthz reports 200 when the database answers a ping and 503 otherwise.
func Healthz(db Pinger, resp *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			resp.fail(w, http.StatusServiceUnavailable, "database unavailable", err)
			return
		}
		resp.success(w, http.StatusOK, "ok", nil)
	}
}
