package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/chepyr/go-task-manager/shared"
	"github.com/chepyr/go-task-manager/shared/models"
	"golang.org/x/crypto/bcrypt"
)

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, "login") {
		slog.Warn("rate limit exceeded", "action", "login", "ip", clientIP(r))
		shared.SendError(w, "Too many login attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var input credentials
	if !shared.DecodeJSON(w, r, &input) {
		return
	}
	if !validateCredentials(input, w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.UserRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			slog.Error("get user by email", "error", err)
			shared.SendError(w, "Cannot load user", http.StatusInternalServerError)
			return
		}
		shared.SendError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		shared.SendError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		slog.Error("issue token", "error", err)
		shared.SendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	shared.SendJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}
