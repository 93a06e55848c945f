package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/chepyr/go-task-manager/shared"
	"github.com/chepyr/go-task-manager/shared/auth"
)

// Me returns the profile of the bearer.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.UserRepo.GetByID(ctx, userID)
	if errors.Is(err, db.ErrUserNotFound) {
		shared.SendError(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get user by id", "error", err)
		shared.SendError(w, "Cannot load user", http.StatusInternalServerError)
		return
	}
	shared.SendJSON(w, http.StatusOK, user)
}
