package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// ProjectService maintains projects
type ProjectService interface {
	Create(ctx context.Context, identifier, name string) (*entity.Project, error)
	Get(ctx context.Context, id string) (*entity.Project, error)
	List(ctx context.Context) ([]*entity.Project, error)
	Delete(ctx context.Context, id string) error
}

type projectServiceImpl struct {
	projects port.ProjectRepository
	reports  port.ReportRepository
	logger   Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects port.ProjectRepository, reports port.ReportRepository, logger Logger) ProjectService {
	return &projectServiceImpl{projects: projects, reports: reports, logger: logger}
}

func (s *projectServiceImpl) Create(ctx context.Context, identifier, name string) (*entity.Project, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &entity.ValidationError{Field: "identifier", Message: "is required"}
	}
	p := &entity.Project{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Name:       strings.TrimSpace(name),
		CreatedAt:  time.Now(),
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Project created", "project_id", p.ID, "identifier", p.Identifier)
	return p, nil
}

func (s *projectServiceImpl) Get(ctx context.Context, id string) (*entity.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *projectServiceImpl) List(ctx context.Context) ([]*entity.Project, error) {
	return s.projects.List(ctx)
}

// Delete refuses projects still used by live reports
func (s *projectServiceImpl) Delete(ctx context.Context, id string) error {
	n, err := s.reports.CountReferences(ctx, entity.RefProject, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &entity.ReferentialIntegrityError{Entity: "project", ID: id, Count: n}
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Project deleted", "project_id", id)
	return nil
}
