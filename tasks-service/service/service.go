// Package service holds the task lifecycle rules: ownership, patch
// semantics, soft delete, restore and purge.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/shared/models"
	"github.com/chepyr/go-task-manager/tasks-service/db"
	"github.com/google/uuid"
)

// TrashRetention is how long a soft-deleted task stays visible in the trash.
const TrashRetention = 24 * time.Hour

type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Patch(ctx context.Context, id uuid.UUID, fields models.TaskPatch, updatedAt time.Time) error
	SetDeleted(ctx context.Context, id uuid.UUID, deletedAt *time.Time, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error)
	ListDeleted(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*models.Task, error)
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	if filter.Status != "" && filter.Status != models.StatusAll && !models.TaskStatus(filter.Status).Valid() {
		return nil, validationError("unknown status %q", filter.Status)
	}
	tasks, err := s.repo.List(ctx, owner, filter)
	if err != nil {
		return nil, storageError("list tasks", err)
	}
	return tasks, nil
}

// ListTrash hides tasks deleted more than TrashRetention ago without purging them.
func (s *Service) ListTrash(ctx context.Context, owner uuid.UUID) ([]*models.Task, error) {
	tasks, err := s.repo.ListDeleted(ctx, owner, s.clock().Add(-TrashRetention))
	if err != nil {
		return nil, storageError("list trash", err)
	}
	return tasks, nil
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, title, description string) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title is required")
	}

	now := s.clock()
	task := &models.Task{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       title,
		Description: description,
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, storageError("create task", err)
	}
	return task, nil
}

// Update writes only the fields the patch actually changes and returns the
// stored task as it is after the write.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	if _, err := s.ownedTask(ctx, owner, id); err != nil {
		return nil, err
	}
	if patch.Status != nil && *patch.Status != "" && !patch.Status.Valid() {
		return nil, validationError("unknown status %q", *patch.Status)
	}

	var fields models.TaskPatch
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != "" {
			fields.Title = &title
		}
	}
	if patch.Description != nil && *patch.Description != "" {
		fields.Description = patch.Description
	}
	if patch.Status != nil && *patch.Status != "" {
		fields.Status = patch.Status
	}
	fields.IsStarred = patch.IsStarred

	if err := s.repo.Patch(ctx, id, fields, s.clock()); err != nil {
		return nil, s.translate("update task", err)
	}
	return s.reload(ctx, id, "update task")
}

func (s *Service) SoftDelete(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := s.ownedTask(ctx, owner, id); err != nil {
		return err
	}
	now := s.clock()
	if err := s.repo.SetDeleted(ctx, id, &now, now); err != nil {
		return s.translate("soft delete task", err)
	}
	return nil
}

// Restore is idempotent: restoring an active task succeeds without changes.
func (s *Service) Restore(ctx context.Context, owner, id uuid.UUID) (*models.Task, error) {
	task, err := s.ownedTask(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !task.IsDeleted && task.DeletedAt == nil {
		return task, nil
	}
	if err := s.repo.SetDeleted(ctx, id, nil, s.clock()); err != nil {
		return nil, s.translate("restore task", err)
	}
	return s.reload(ctx, id, "restore task")
}

func (s *Service) Purge(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := s.ownedTask(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate("purge task", err)
	}
	return nil
}

// ownedTask loads the task and checks the caller owns it. Every mutating
// operation goes through here before touching any field.
func (s *Service) ownedTask(ctx context.Context, owner, id uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate("load task", err)
	}
	if task.OwnerID != owner {
		return nil, ErrUnauthorized
	}
	return task, nil
}

func (s *Service) reload(ctx context.Context, id uuid.UUID, op string) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(op, err)
	}
	return task, nil
}

// translate maps repository errors onto the service taxonomy. A row that
// vanished between load and write (a concurrent purge) is reported as not found.
func (s *Service) translate(op string, err error) error {
	if errors.Is(err, db.ErrTaskNotFound) {
		return ErrNotFound
	}
	return storageError(op, err)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}
