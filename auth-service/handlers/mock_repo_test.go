package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/chepyr/go-task-manager/shared/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-32-bytes-long-1234567890"

type MockUserRepository struct {
	users     map[string]*models.User
	createErr error
	getErr    error
	mutex     sync.Mutex
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Email]; exists {
		return db.ErrEmailTaken
	}
	m.users[user.Email] = user
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	user, exists := m.users[email]
	if !exists {
		return nil, db.ErrUserNotFound
	}
	return user, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func setupMockUser(email, password string) *MockUserRepository {
	repo := NewMockUserRepository()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.users[email] = &models.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return repo
}

// denyAll is a Limiter that rejects every attempt.
type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }
