package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chepyr/go-task-manager/shared"
	"github.com/chepyr/go-task-manager/shared/auth"
	"github.com/chepyr/go-task-manager/shared/models"
	"github.com/google/uuid"
)

const requestTimeout = 5 * time.Second

type TaskService interface {
	List(ctx context.Context, owner uuid.UUID, filter models.TaskFilter) ([]*models.Task, error)
	ListTrash(ctx context.Context, owner uuid.UUID) ([]*models.Task, error)
	Create(ctx context.Context, owner uuid.UUID, title, description string) (*models.Task, error)
	Update(ctx context.Context, owner, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	SoftDelete(ctx context.Context, owner, id uuid.UUID) error
	Restore(ctx context.Context, owner, id uuid.UUID) (*models.Task, error)
	Purge(ctx context.Context, owner, id uuid.UUID) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Tasks  TaskService
	Tokens *auth.TokenManager
	DB     Pinger
}

/*
routes:
- GET /tasks?search=&status=
- GET /tasks/trash
- POST /tasks
- PUT /tasks/{id}
- DELETE /tasks/{id}
- PUT /tasks/{id}/restore
- DELETE /tasks/{id}/permanent
- GET /health
*/
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", h.protect(h.listTasks))
	mux.HandleFunc("GET /tasks/trash", h.protect(h.listTrash))
	mux.HandleFunc("POST /tasks", h.protect(h.createTask))
	mux.HandleFunc("PUT /tasks/{id}", h.protect(h.updateTask))
	mux.HandleFunc("DELETE /tasks/{id}", h.protect(h.deleteTask))
	mux.HandleFunc("PUT /tasks/{id}/restore", h.protect(h.restoreTask))
	mux.HandleFunc("DELETE /tasks/{id}/permanent", h.protect(h.purgeTask))
	mux.HandleFunc("GET /health", h.health)
	return shared.LogRequests(mux)
}

func (h *Handler) protect(next http.HandlerFunc) http.HandlerFunc {
	return auth.RequireUser(h.Tokens, next)
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
