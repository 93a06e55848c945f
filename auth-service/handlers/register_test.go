package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegister covers successful registration, malformed input and repository failures.
func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		mockRepo       db.UserRepositoryInterface
		limiter        Limiter
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Successful registration",
			body:           `{"name": "Ann", "email": "test@example.com", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusCreated,
			expectedBody:   `"email":"test@example.com"`,
		},
		{
			name:           "Invalid JSON",
			body:           `{"email": "test@example.com", "password": }`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Invalid JSON body"`,
		},
		{
			name:           "Wrong content type",
			body:           `{"name": "Ann", "email": "test@example.com", "password": "strongpass"}`,
			contentType:    "text/plain",
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   `"error":"Content-Type must be application/json"`,
		},
		{
			name:           "Missing name",
			body:           `{"name": "  ", "email": "test@example.com", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Name is required"`,
		},
		{
			name:           "Invalid email format",
			body:           `{"name": "Ann", "email": "invalid", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Invalid email"`,
		},
		{
			name:           "Password too short",
			body:           `{"name": "Ann", "email": "test@example.com", "password": "abc"}`,
			mockRepo:       NewMockUserRepository(),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"Password must be at least 4 characters long"`,
		},
		{
			name:           "Email already exists",
			body:           `{"name": "Ann", "email": "test@example.com", "password": "strongpass"}`,
			mockRepo:       setupMockUser("test@example.com", "otherpass"),
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"Email already registered"`,
		},
		{
			name: "Repository failure",
			body: `{"name": "Ann", "email": "test@example.com", "password": "strongpass"}`,
			mockRepo: &MockUserRepository{
				createErr: errors.New("connection reset"),
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"Cannot save user"`,
		},
		{
			name:           "Rate limit exceeded",
			body:           `{"name": "Ann", "email": "test@example.com", "password": "strongpass"}`,
			mockRepo:       NewMockUserRepository(),
			limiter:        denyAll{},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `"error":"Too many register attempts`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(tt.body))
			ct := tt.contentType
			if ct == "" {
				ct = "application/json"
			}
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()

			handler := &Handler{UserRepo: tt.mockRepo, Limiter: tt.limiter}
			handler.Register(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			assert.Contains(t, strings.TrimSpace(rr.Body.String()), tt.expectedBody)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestRegister_DoesNotExposePasswordHash(t *testing.T) {
	repo := NewMockUserRepository()
	handler := &Handler{UserRepo: repo}

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name": " Ann ", "email": "ann@example.com", "password": "strongpass"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Register(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "passwordHash")
	assert.NotContains(t, raw, "PasswordHash")
	assert.Equal(t, "Ann", raw["name"])

	stored := repo.users["ann@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "strongpass", stored.PasswordHash)
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		input    credentials
		expected bool
	}{
		{"Valid email and password", credentials{Email: "test@example.com", Password: "strongpass"}, true},
		{"Invalid email (no @)", credentials{Email: "invalid.com", Password: "strongpass"}, false},
		{"Password too short", credentials{Email: "test@example.com", Password: "abc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			got := validateCredentials(tt.input, rr)
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
			if !tt.expected && rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 response, got %d", rr.Code)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{"Valid simple email", "user@example.com", true},
		{"Valid with subdomain", "user@sub.example.com", true},
		{"Valid with +", "user+tag@example.com", true},
		{"Valid with numbers", "user123@example.com", true},
		{"Invalid no @", "userexample.com", false},
		{"Invalid no domain", "user@", false},
		{"Invalid no TLD", "user@example", false},
		{"Invalid special chars", "user@exa!mple.com", false},
		{"Empty string", "", false},
		{"Only domain", "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isValidEmail(tt.email)
			if got != tt.expected {
				t.Errorf("For email %q, expected %v, got %v", tt.email, tt.expected, got)
			}
		})
	}
}

func TestRegisterConcurrent(t *testing.T) {
	mockRepo := NewMockUserRepository()
	handler := &Handler{UserRepo: mockRepo}

	var wg sync.WaitGroup
	codes := make([]int, 10)
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"name": "U%d", "email": "user%d@example.com", "password": "strongpass"}`, i, i)
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			handler.Register(rr, req)
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusCreated, code, "request %d", i)
	}
	assert.Len(t, mockRepo.users, 10)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name": "Dup", "email": "user0@example.com", "password": "strongpass"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Register(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}
