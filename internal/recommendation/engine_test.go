package recommendation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"collab/internal/models"
	"collab/internal/recommendation"
	"collab/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type engineFixture struct {
	ctx    context.Context
	repos  repositories.Repositories
	engine *recommendation.Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	repos := repositories.NewMemoryStore().Repositories()
	return &engineFixture{
		ctx:    context.Background(),
		repos:  repos,
		engine: recommendation.NewEngine(repos.Users, repos.Projects, repos.Matches, zerolog.Nop()),
	}
}

func (f *engineFixture) user(t *testing.T, name string, skills datatypes.JSON) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Skills: skills}
	require.NoError(t, f.repos.Users.Create(f.ctx, u))
	return u
}

func (f *engineFixture) project(t *testing.T, creatorID uint, category string, technologies datatypes.JSON) *models.Project {
	t.Helper()
	p := &models.Project{CreatorID: creatorID, Title: "p", Category: category, Status: models.ProjectStatusIdea, Technologies: technologies}
	require.NoError(t, f.repos.Projects.Create(f.ctx, p))
	return p
}

func (f *engineFixture) accepted(t *testing.T, userID, projectID uint) {
	t.Helper()
	now := time.Now()
	m := &models.Match{UserID: userID, ProjectID: projectID, Status: models.MatchStatusPending, Message: "let me help out", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.repos.Matches.Create(f.ctx, m))
	_, err := f.repos.Matches.UpdateStatus(f.ctx, m.ID, models.MatchStatusPending, models.MatchStatusAccepted, now)
	require.NoError(t, err)
}

func TestEngine_CalculateScore(t *testing.T) {
	f := newEngineFixture(t)
	owner := f.user(t, "owner", nil)
	u := f.user(t, "dev", models.EncodeStringSet([]string{"React", "Vue"}))

	past := f.project(t, owner.ID, "web", models.EncodeStringSet([]string{"React"}))
	f.accepted(t, u.ID, past.ID)
	target := f.project(t, owner.ID, "web", models.EncodeStringSet([]string{"React"}))

	// base 50, history 10, category 5
	assert.Equal(t, 65, f.engine.CalculateScore(f.ctx, u.ID, target.ID))
	// the accepted project itself is part of the history
	assert.Equal(t, 65, f.engine.CalculateScore(f.ctx, u.ID, past.ID))
}

func TestEngine_CalculateScore_Missing(t *testing.T) {
	f := newEngineFixture(t)
	u := f.user(t, "dev", models.EncodeStringSet([]string{"Go"}))
	p := f.project(t, u.ID, "infra", models.EncodeStringSet([]string{"Go"}))

	assert.Equal(t, 0, f.engine.CalculateScore(f.ctx, 999, p.ID))
	assert.Equal(t, 0, f.engine.CalculateScore(f.ctx, u.ID, 999))
}

func TestEngine_CalculateScore_MalformedFields(t *testing.T) {
	f := newEngineFixture(t)
	broken := f.user(t, "broken", datatypes.JSON(`{"not":"a list"`))
	fine := f.user(t, "fine", models.EncodeStringSet([]string{"Go"}))
	p := f.project(t, fine.ID, "infra", datatypes.JSON(`not json`))
	q := f.project(t, fine.ID, "infra", models.EncodeStringSet([]string{"Go"}))

	assert.Equal(t, 0, f.engine.CalculateScore(f.ctx, broken.ID, q.ID))
	assert.Equal(t, 0, f.engine.CalculateScore(f.ctx, fine.ID, p.ID))
	assert.Equal(t, 100, f.engine.CalculateScore(f.ctx, fine.ID, q.ID))
}

type failingUsers struct {
	repositories.UserRepository
}

func (failingUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func TestEngine_CalculateScore_StoreFailure(t *testing.T) {
	f := newEngineFixture(t)
	u := f.user(t, "dev", models.EncodeStringSet([]string{"Go"}))
	p := f.project(t, u.ID, "infra", models.EncodeStringSet([]string{"Go"}))

	engine := recommendation.NewEngine(failingUsers{f.repos.Users}, f.repos.Projects, f.repos.Matches, zerolog.Nop())
	assert.Equal(t, 0, engine.CalculateScore(f.ctx, u.ID, p.ID))
}

func TestEngine_CalculateScores(t *testing.T) {
	f := newEngineFixture(t)
	u := f.user(t, "dev", models.EncodeStringSet([]string{"Go", "Rust"}))
	both := f.project(t, u.ID, "infra", models.EncodeStringSet([]string{"Go", "Rust"}))
	half := f.project(t, u.ID, "infra", models.EncodeStringSet([]string{"Go"}))

	scores := f.engine.CalculateScores(f.ctx, u.ID, []uint{both.ID, half.ID, both.ID, 999})
	assert.Equal(t, map[uint]int{both.ID: 100, half.ID: 50, 999: 0}, scores)

	assert.Empty(t, f.engine.CalculateScores(f.ctx, u.ID, nil))
}

func TestEngine_ProjectsWithScores(t *testing.T) {
	f := newEngineFixture(t)
	owner := f.user(t, "owner", nil)
	u := f.user(t, "dev", models.EncodeStringSet([]string{"Go", "Rust", "Zig", "C"}))

	none := f.project(t, owner.ID, "infra", models.EncodeStringSet([]string{"Java"}))
	time.Sleep(2 * time.Millisecond)
	all := f.project(t, owner.ID, "infra", models.EncodeStringSet([]string{"Go", "Rust", "Zig", "C"}))
	time.Sleep(2 * time.Millisecond)
	some := f.project(t, owner.ID, "infra", models.EncodeStringSet([]string{"Go"}))
	time.Sleep(2 * time.Millisecond)
	f.project(t, owner.ID, "games", models.EncodeStringSet([]string{"Go"}))

	scored, err := f.engine.ProjectsWithScores(f.ctx, u.ID, 10, 0, models.ProjectFilter{Category: "infra"})
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, []uint{all.ID, some.ID, none.ID}, []uint{scored[0].ID, scored[1].ID, scored[2].ID})
	assert.Equal(t, []int{100, 25, 0}, []int{scored[0].RecommendationScore, scored[1].RecommendationScore, scored[2].RecommendationScore})

	// paging happens before scoring: the newest infra project comes first
	page, err := f.engine.ProjectsWithScores(f.ctx, u.ID, 1, 0, models.ProjectFilter{Category: "infra"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, some.ID, page[0].ID)
}
