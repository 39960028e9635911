package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collab/internal/models"

	"gorm.io/gorm"
)

// GORMMatchRepository is a GORM implementation of MatchRepository.
type GORMMatchRepository struct {
	db *gorm.DB
}

// NewGORMMatchRepository creates a new instance of GORMMatchRepository.
func NewGORMMatchRepository(db *gorm.DB) *GORMMatchRepository {
	return &GORMMatchRepository{
		db: db,
	}
}

// Create inserts a new match. The (user_id, project_id) unique index turns a
// concurrent second request into ErrDuplicate.
func (r *GORMMatchRepository) Create(ctx context.Context, match *models.Match) error {
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("match for user %d on project %d: %w", match.UserID, match.ProjectID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// GetByID retrieves a single match by its ID.
func (r *GORMMatchRepository) GetByID(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	if err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("match with ID %d: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get match by ID %d: %w", id, err)
	}
	return &match, nil
}

// ExistsForUserAndProject reports whether the user already has a match for the project.
func (r *GORMMatchRepository) ExistsForUserAndProject(ctx context.Context, userID, projectID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check match for user %d on project %d: %w", userID, projectID, err)
	}
	return count > 0, nil
}

// UpdateStatus performs a compare-and-set on the status column.
func (r *GORMMatchRepository) UpdateStatus(ctx context.Context, id uint, from, to models.MatchStatus, at time.Time) (*models.Match, error) {
	res := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update status of match %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("match %d is no longer %s: %w", id, from, ErrStaleStatus)
	}
	return r.GetByID(ctx, id)
}

// DeleteIfStatus removes a match that is still in the given status.
func (r *GORMMatchRepository) DeleteIfStatus(ctx context.Context, id uint, status models.MatchStatus) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&models.Match{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("match %d is no longer %s: %w", id, status, ErrStaleStatus)
	}
	return nil
}

// ListReceived returns matches on every project owned by creatorID, newest first.
func (r *GORMMatchRepository) ListReceived(ctx context.Context, creatorID uint, status *models.MatchStatus) ([]models.Match, error) {
	q := r.received(ctx, creatorID).Select("matches.*")
	if status != nil {
		q = q.Where("matches.status = ?", *status)
	}
	var matches []models.Match
	if err := q.Order("matches.created_at DESC").Order("matches.id DESC").Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to list matches received by user %d: %w", creatorID, err)
	}
	return matches, nil
}

// ListSent returns matches created by userID, newest first.
func (r *GORMMatchRepository) ListSent(ctx context.Context, userID uint, status *models.MatchStatus) ([]models.Match, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var matches []models.Match
	if err := q.Order("created_at DESC").Order("id DESC").Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to list matches sent by user %d: %w", userID, err)
	}
	return matches, nil
}

// CountReceived tallies matches on projects owned by creatorID.
func (r *GORMMatchRepository) CountReceived(ctx context.Context, creatorID uint) (models.StatusCounts, error) {
	counts, err := countByStatus(r.received(ctx, creatorID))
	if err != nil {
		return counts, fmt.Errorf("failed to count matches received by user %d: %w", creatorID, err)
	}
	return counts, nil
}

// CountSent tallies matches created by userID.
func (r *GORMMatchRepository) CountSent(ctx context.Context, userID uint) (models.StatusCounts, error) {
	q := r.db.WithContext(ctx).Model(&models.Match{}).Where("matches.user_id = ?", userID)
	counts, err := countByStatus(q)
	if err != nil {
		return counts, fmt.Errorf("failed to count matches sent by user %d: %w", userID, err)
	}
	return counts, nil
}

// ListAcceptedProjects returns the technologies and category of every project
// the user was accepted into.
func (r *GORMMatchRepository) ListAcceptedProjects(ctx context.Context, userID uint) ([]models.AcceptedProject, error) {
	var projects []models.AcceptedProject
	err := r.db.WithContext(ctx).Model(&models.Match{}).
		Select("projects.id AS project_id, projects.technologies AS technologies, projects.category AS category").
		Joins("JOIN projects ON projects.id = matches.project_id").
		Where("matches.user_id = ? AND matches.status = ?", userID, models.MatchStatusAccepted).
		Order("matches.id").
		Scan(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted projects for user %d: %w", userID, err)
	}
	return projects, nil
}

func (r *GORMMatchRepository) received(ctx context.Context, creatorID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Match{}).
		Joins("JOIN projects ON projects.id = matches.project_id").
		Where("projects.creator_id = ?", creatorID)
}

func countByStatus(q *gorm.DB) (models.StatusCounts, error) {
	var rows []struct {
		Status models.MatchStatus
		Count  int64
	}
	var counts models.StatusCounts
	if err := q.Select("matches.status AS status, COUNT(*) AS count").Group("matches.status").Scan(&rows).Error; err != nil {
		return counts, err
	}
	for _, row := range rows {
		counts.Add(row.Status, row.Count)
	}
	return counts, nil
}
