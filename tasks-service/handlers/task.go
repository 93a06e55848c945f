package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chepyr/go-task-manager/shared"
	"github.com/chepyr/go-task-manager/shared/auth"
	"github.com/chepyr/go-task-manager/shared/models"
	"github.com/chepyr/go-task-manager/tasks-service/service"
	"github.com/google/uuid"
)

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filter := models.TaskFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
	tasks, err := h.Tasks.List(ctx, userID, filter)
	if err != nil {
		sendServiceError(w, err, "list tasks")
		return
	}
	shared.SendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) listTrash(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tasks, err := h.Tasks.ListTrash(ctx, userID)
	if err != nil {
		sendServiceError(w, err, "list trash")
		return
	}
	shared.SendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if !shared.DecodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.Create(ctx, userID, input.Title, input.Description)
	if err != nil {
		sendServiceError(w, err, "create task")
		return
	}
	w.Header().Set("Location", "/tasks/"+task.ID.String())
	shared.SendJSON(w, http.StatusCreated, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if !shared.DecodeJSON(w, r, &patch) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.Update(ctx, userID, taskID, patch)
	if err != nil {
		sendServiceError(w, err, "update task")
		return
	}
	shared.SendJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.Tasks.SoftDelete(ctx, userID, taskID); err != nil {
		sendServiceError(w, err, "soft delete task")
		return
	}
	shared.SendMessage(w, "Task moved to trash", http.StatusOK)
}

func (h *Handler) restoreTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.Restore(ctx, userID, taskID)
	if err != nil {
		sendServiceError(w, err, "restore task")
		return
	}
	shared.SendJSON(w, http.StatusOK, task)
}

func (h *Handler) purgeTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.Tasks.Purge(ctx, userID, taskID); err != nil {
		sendServiceError(w, err, "purge task")
		return
	}
	shared.SendMessage(w, "Task permanently removed", http.StatusOK)
}

// a malformed id can never match a stored task, so it is reported as not found
func pathTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		shared.SendError(w, "Task not found", http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func sendServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		shared.SendError(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, service.ErrUnauthorized):
		shared.SendError(w, "User not authorized", http.StatusUnauthorized)
	case errors.Is(err, service.ErrValidation):
		shared.SendError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error(op, "error", err)
		shared.SendError(w, "Failed to "+op, http.StatusInternalServerError)
	}
}
