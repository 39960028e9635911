package repositories

import (
	"context"
	"time"

	"collab/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProjectRepository defines the interface for project data access.
// Returned projects always carry their TeamMembers.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter, limit, offset int) ([]models.Project, error)
	// AddTeamMember is idempotent: adding an existing member is not an error.
	AddTeamMember(ctx context.Context, projectID, userID uint) error
}

// MatchRepository defines the interface for match data access.
type MatchRepository interface {
	// Create returns ErrDuplicate when the user already has a match for the project.
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id uint) (*models.Match, error)
	ExistsForUserAndProject(ctx context.Context, userID, projectID uint) (bool, error)
	// UpdateStatus moves a match from one status to another and returns the
	// updated row. It returns ErrStaleStatus if the match is no longer in from.
	UpdateStatus(ctx context.Context, id uint, from, to models.MatchStatus, at time.Time) (*models.Match, error)
	// DeleteIfStatus hard-deletes a match that is still in status.
	DeleteIfStatus(ctx context.Context, id uint, status models.MatchStatus) error
	ListReceived(ctx context.Context, creatorID uint, status *models.MatchStatus) ([]models.Match, error)
	ListSent(ctx context.Context, userID uint, status *models.MatchStatus) ([]models.Match, error)
	CountReceived(ctx context.Context, creatorID uint) (models.StatusCounts, error)
	CountSent(ctx context.Context, userID uint) (models.StatusCounts, error)
	// ListAcceptedProjects joins the user's accepted matches to their projects.
	ListAcceptedProjects(ctx context.Context, userID uint) ([]models.AcceptedProject, error)
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Users    UserRepository
	Projects ProjectRepository
	Matches  MatchRepository
}

// TxManager runs fn in a single unit of work. If fn returns an error nothing
// fn wrote is kept.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
