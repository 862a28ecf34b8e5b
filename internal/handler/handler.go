package handler

import (
	"net/http"
	"slices"

	"github.com/kataria/backend/internal/repository"
)

type Handler struct {
	db             repository.DB
	allowedOrigins []string
}

// New creates the shared handler. db may be nil when no database tier is configured.
func New(db repository.DB, allowedOrigins ...string) *Handler {
	return &Handler{db: db, allowedOrigins: allowedOrigins}
}

func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin != "" && slices.Contains(h.allowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
		case origin == "" && len(h.allowedOrigins) > 0:
			w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigins[0])
		}
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
