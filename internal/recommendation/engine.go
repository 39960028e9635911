package recommendation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"collab/internal/metrics"
	"collab/internal/models"
	"collab/internal/repositories"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// Engine computes recommendation scores from the current store state. It
// never writes and never caches, so a score always reflects the match
// history at call time.
type Engine struct {
	users    repositories.UserRepository
	projects repositories.ProjectRepository
	matches  repositories.MatchRepository
	log      zerolog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(users repositories.UserRepository, projects repositories.ProjectRepository, matches repositories.MatchRepository, log zerolog.Logger) *Engine {
	return &Engine{
		users:    users,
		projects: projects,
		matches:  matches,
		log:      log.With().Str("component", "recommendation").Logger(),
	}
}

// ScoredProject is a listed project annotated with the caller's score.
type ScoredProject struct {
	models.Project
	RecommendationScore int `json:"recommendationScore"`
}

// CalculateScore returns the user's score for the project. A missing user or
// project scores 0, and so does any store failure, which is logged.
func (e *Engine) CalculateScore(ctx context.Context, userID, projectID uint) int {
	score, err := e.calculate(ctx, userID, projectID)
	if err != nil {
		metrics.RecommendationFailures.Inc()
		e.log.Warn().Err(err).Uint("user_id", userID).Uint("project_id", projectID).Msg("recommendation score defaulted to 0")
		return 0
	}
	metrics.RecommendationScores.Inc()
	return score
}

// CalculateScores scores each project independently.
func (e *Engine) CalculateScores(ctx context.Context, userID uint, projectIDs []uint) map[uint]int {
	scores := make(map[uint]int, len(projectIDs))
	for _, id := range projectIDs {
		if _, done := scores[id]; done {
			continue
		}
		scores[id] = e.CalculateScore(ctx, userID, id)
	}
	return scores
}

// ProjectsWithScores fetches one filtered page of projects, scores each for
// the user and orders the page by score, highest first. Scores do not
// influence which page is fetched.
func (e *Engine) ProjectsWithScores(ctx context.Context, userID uint, limit, offset int, filter models.ProjectFilter) ([]ScoredProject, error) {
	projects, err := e.projects.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredProject, len(projects))
	for i, p := range projects {
		scored[i] = ScoredProject{
			Project:             p,
			RecommendationScore: e.CalculateScore(ctx, userID, p.ID),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RecommendationScore > scored[j].RecommendationScore
	})
	return scored, nil
}

func (e *Engine) calculate(ctx context.Context, userID, projectID uint) (int, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load user: %w", err)
	}
	project, err := e.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load project: %w", err)
	}

	accepted, err := e.matches.ListAcceptedProjects(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load match history: %w", err)
	}

	history := make([]HistoryEntry, len(accepted))
	for i, a := range accepted {
		history[i] = HistoryEntry{
			Technologies: e.decode(a.Technologies, "project", a.ProjectID, "technologies"),
			Category:     a.Category,
		}
	}

	return Score(Input{
		Skills:       e.decode(user.Skills, "user", user.ID, "skills"),
		Technologies: e.decode(project.Technologies, "project", project.ID, "technologies"),
		Category:     project.Category,
		History:      history,
	}), nil
}

// decode parses a stored string set, logging and falling back to the empty
// set when it is malformed.
func (e *Engine) decode(raw datatypes.JSON, entity string, id uint, field string) []string {
	values, err := models.DecodeStringSet(raw)
	if err != nil {
		metrics.MalformedFields.Inc()
		e.log.Warn().Err(err).Str("entity", entity).Uint("id", id).Str("field", field).Msg("treating malformed field as empty")
	}
	return values
}
