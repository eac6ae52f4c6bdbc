package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
)

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a project
func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`INSERT INTO projects (id, identifier, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Identifier, p.Name, p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create project", zap.String("identifier", p.Identifier), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	var p entity.Project
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT id, identifier, name, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Identifier, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// List returns all projects ordered by identifier
func (r *ProjectRepository) List(ctx context.Context) ([]*entity.Project, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT id, identifier, name, created_at FROM projects ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		var p entity.Project
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// Delete removes a project
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &entity.NotFoundError{Entity: "project", ID: id}
	}
	return nil
}

func (r *ProjectRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.ProjectRepository = (*ProjectRepository)(nil)
