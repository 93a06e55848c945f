package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/chepyr/go-task-manager/shared"
	"github.com/chepyr/go-task-manager/shared/auth"
)

const requestTimeout = 5 * time.Second

// Limiter decides whether another attempt from key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	UserRepo db.UserRepositoryInterface
	Tokens   *auth.TokenManager
	Limiter  Limiter
	DB       Pinger
}

/*
routes:
- POST /auth/register
- POST /auth/login
- GET /auth/me
- GET /health
*/
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/me", auth.RequireUser(h.Tokens, h.Me))
	mux.HandleFunc("GET /health", h.health)
	return shared.LogRequests(mux)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			shared.SendError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	shared.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) allow(r *http.Request, action string) bool {
	if h.Limiter == nil {
		return true
	}
	return h.Limiter.Allow(r.Context(), action+":"+clientIP(r))
}

// clientIP strips the port from RemoteAddr so every connection from one host
// shares a bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
