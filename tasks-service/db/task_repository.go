package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/shared/models"
	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

const taskColumns = `id, owner_id, title, description, status, is_starred, is_deleted, deleted_at, created_at, updated_at`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.OwnerID, task.Title, task.Description, task.Status,
		task.IsStarred, task.IsDeleted, task.DeletedAt, task.CreatedAt, task.UpdatedAt)
	return err
}

// GetByID returns ErrTaskNotFound when no row matches.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return task, err
}

// Patch writes only the non-nil fields of fields plus updated_at, so
// concurrent requests touching different fields do not overwrite each other.
func (r *TaskRepository) Patch(ctx context.Context, id uuid.UUID, fields models.TaskPatch, updatedAt time.Time) error {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if fields.Title != nil {
		set("title", *fields.Title)
	}
	if fields.Description != nil {
		set("description", *fields.Description)
	}
	if fields.Status != nil {
		set("status", string(*fields.Status))
	}
	if fields.IsStarred != nil {
		set("is_starred", *fields.IsStarred)
	}
	set("updated_at", updatedAt.UTC())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// SetDeleted moves a task into the trash (deletedAt set) or back out of it
// (deletedAt nil). No other column is written.
func (r *TaskRepository) SetDeleted(ctx context.Context, id uuid.UUID, deletedAt *time.Time, updatedAt time.Time) error {
	var deleted any
	if deletedAt != nil {
		deleted = deletedAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET is_deleted = $1, deleted_at = $2, updated_at = $3 WHERE id = $4`,
		deletedAt != nil, deleted, updatedAt.UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// List returns the owner's active tasks, starred first and newest first.
func (r *TaskRepository) List(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	var sb strings.Builder
	args := []any{ownerID}
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 AND is_deleted = FALSE`)

	if filter.Status != "" && filter.Status != models.StatusAll {
		args = append(args, filter.Status)
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
		n := len(args)
		fmt.Fprintf(&sb, ` AND (LOWER(title) LIKE $%d ESCAPE '\' OR LOWER(description) LIKE $%d ESCAPE '\')`, n, n)
	}
	sb.WriteString(` ORDER BY is_starred DESC, created_at DESC`)

	return r.query(ctx, sb.String(), args...)
}

// ListDeleted returns the owner's soft-deleted tasks deleted at or after since,
// most recently deleted first.
func (r *TaskRepository) ListDeleted(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	 WHERE owner_id = $1 AND is_deleted = TRUE AND deleted_at >= $2
	 ORDER BY deleted_at DESC`
	return r.query(ctx, query, ownerID, since.UTC())
}

// PurgeDeletedBefore permanently removes every task soft-deleted before cutoff.
func (r *TaskRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE is_deleted = TRUE AND deleted_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	task := &models.Task{}
	var deletedAt sql.NullTime
	err := s.Scan(
		&task.ID, &task.OwnerID, &task.Title, &task.Description, &task.Status,
		&task.IsStarred, &task.IsDeleted, &deletedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		task.DeletedAt = &t
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return task, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
