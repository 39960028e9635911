package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collab/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProjectRepository is a GORM implementation of ProjectRepository.
type GORMProjectRepository struct {
	db *gorm.DB
}

// NewGORMProjectRepository creates a new instance of GORMProjectRepository.
func NewGORMProjectRepository(db *gorm.DB) *GORMProjectRepository {
	return &GORMProjectRepository{
		db: db,
	}
}

// Create creates a new project in the database.
func (r *GORMProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	project.TeamMembers = []uint{}
	return nil
}

// GetByID retrieves a single project and its team from the database.
func (r *GORMProjectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project with ID %d: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get project by ID %d: %w", id, err)
	}
	projects := []models.Project{project}
	if err := r.loadTeams(ctx, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

// List returns one page of projects matching filter, newest first.
func (r *GORMProjectRepository) List(ctx context.Context, filter models.ProjectFilter, limit, offset int) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	for _, tech := range filter.Technologies {
		q = r.whereHasTechnology(q, tech)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var projects []models.Project
	if err := q.Order("created_at DESC").Order("id DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if err := r.loadTeams(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// whereHasTechnology matches the quoted JSON element inside the stored array.
// SQLite LIKE ignores case, so GLOB is used there to keep matching exact.
func (r *GORMProjectRepository) whereHasTechnology(q *gorm.DB, tech string) *gorm.DB {
	element := models.QuoteJSONString(tech)
	if r.db.Dialector.Name() == "sqlite" {
		return q.Where("CAST(technologies AS TEXT) GLOB ?", "*"+globEscaper.Replace(element)+"*")
	}
	return q.Where(`CAST(technologies AS TEXT) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(element)+"%")
}

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	globEscaper = strings.NewReplacer(`[`, `[[]`, `*`, `[*]`, `?`, `[?]`)
)

// AddTeamMember inserts the membership row unless it already exists.
func (r *GORMProjectRepository) AddTeamMember(ctx context.Context, projectID, userID uint) error {
	member := models.ProjectMember{ProjectID: projectID, UserID: userID, JoinedAt: time.Now()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
	if err != nil {
		return fmt.Errorf("failed to add user %d to project %d: %w", userID, projectID, err)
	}
	return nil
}

func (r *GORMProjectRepository) loadTeams(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]uint, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
		projects[i].TeamMembers = []uint{}
	}

	var members []models.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id IN ?", ids).
		Order("joined_at").Order("user_id").
		Find(&members).Error
	if err != nil {
		return fmt.Errorf("failed to load project teams: %w", err)
	}

	index := make(map[uint]int, len(projects))
	for i := range projects {
		index[projects[i].ID] = i
	}
	for _, m := range members {
		i := index[m.ProjectID]
		projects[i].TeamMembers = append(projects[i].TeamMembers, m.UserID)
	}
	return nil
}
