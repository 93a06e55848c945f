package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/chepyr/go-task-manager/shared"
	"github.com/chepyr/go-task-manager/shared/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 4

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, "register") {
		slog.Warn("rate limit exceeded", "action", "register", "ip", clientIP(r))
		shared.SendError(w, "Too many register attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var input struct {
		Name string `json:"name"`
		credentials
	}
	if !shared.DecodeJSON(w, r, &input) {
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		shared.SendError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if !validateCredentials(input.credentials, w) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("hash password", "error", err)
		shared.SendError(w, "Cannot hash password", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.UserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			shared.SendError(w, "Email already registered", http.StatusConflict)
			return
		}
		slog.Error("save user", "error", err)
		shared.SendError(w, "Cannot save user", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	shared.SendJSON(w, http.StatusCreated, user)
}

// validateCredentials writes a 400 and returns false when input is unusable.
func validateCredentials(input credentials, w http.ResponseWriter) bool {
	if !isValidEmail(input.Email) {
		shared.SendError(w, "Invalid email", http.StatusBadRequest)
		return false
	}
	if len(input.Password) < minPasswordLength {
		shared.SendError(w, "Password must be at least 4 characters long", http.StatusBadRequest)
		return false
	}
	return true
}

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
