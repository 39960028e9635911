package services

import (
	"context"
	"fmt"

	"collab/internal/models"
	"collab/internal/repositories"
)

// ProjectService handles business logic related to projects.
type ProjectService struct {
	repo repositories.ProjectRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(repo repositories.ProjectRepository) *ProjectService {
	return &ProjectService{
		repo: repo,
	}
}

// ProjectInput holds the fields a creator supplies for a new project.
type ProjectInput struct {
	Title        string
	Description  string
	Category     string
	Technologies []string
	Status       models.ProjectStatus
}

// CreateProject creates a project owned by creatorID. Status defaults to idea.
func (s *ProjectService) CreateProject(ctx context.Context, creatorID uint, in ProjectInput) (*models.Project, error) {
	if in.Title == "" {
		return nil, newError(ErrInvalidInput, "title is required")
	}
	if in.Status == "" {
		in.Status = models.ProjectStatusIdea
	}
	if !in.Status.Valid() {
		return nil, newError(ErrInvalidInput, "invalid project status: %s", in.Status)
	}

	technologies := models.EncodeStringSet(in.Technologies)
	if decoded, _ := models.DecodeStringSet(technologies); len(decoded) > models.MaxProjectTechnologies {
		return nil, newError(ErrInvalidInput, "a project may list at most %d technologies", models.MaxProjectTechnologies)
	}

	project := &models.Project{
		CreatorID:    creatorID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Technologies: technologies,
		Status:       in.Status,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// GetProjectByID retrieves a single project with its team.
func (s *ProjectService) GetProjectByID(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListProjects returns one page of projects matching filter, newest first.
func (s *ProjectService) ListProjects(ctx context.Context, filter models.ProjectFilter, limit, offset int) ([]models.Project, error) {
	return s.repo.List(ctx, filter, limit, offset)
}
