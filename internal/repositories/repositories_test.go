package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"collab/internal/database/dbtest"
	"collab/internal/models"
	"collab/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) (repositories.Repositories, repositories.TxManager)

var stores = map[string]storeFactory{
	"gorm": func(t *testing.T) (repositories.Repositories, repositories.TxManager) {
		db := dbtest.Open(t)
		return repositories.NewGORMRepositories(db), repositories.NewGORMTxManager(db)
	},
	"memory": func(t *testing.T) (repositories.Repositories, repositories.TxManager) {
		store := repositories.NewMemoryStore()
		return store.Repositories(), store
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, repos repositories.Repositories, tx repositories.TxManager)) {
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			repos, tx := open(t)
			fn(t, repos, tx)
		})
	}
}

func createProject(t *testing.T, repos repositories.Repositories, creatorID uint, category string, technologies ...string) *models.Project {
	t.Helper()
	p := &models.Project{
		CreatorID:    creatorID,
		Title:        "Project " + category,
		Category:     category,
		Status:       models.ProjectStatusIdea,
		Technologies: models.EncodeStringSet(technologies),
	}
	require.NoError(t, repos.Projects.Create(context.Background(), p))
	return p
}

func createMatch(t *testing.T, repos repositories.Repositories, userID, projectID uint) *models.Match {
	t.Helper()
	now := time.Now()
	m := &models.Match{
		UserID:    userID,
		ProjectID: projectID,
		Status:    models.MatchStatusPending,
		Message:   "I would like to join",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repos.Matches.Create(context.Background(), m))
	return m
}

func TestUserRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, repos repositories.Repositories, _ repositories.TxManager) {
		ctx := context.Background()
		u := &models.User{Username: "ada", Email: "ada@example.com", Password: "hash", Skills: models.EncodeStringSet([]string{"Go"})}
		require.NoError(t, repos.Users.Create(ctx, u))
		require.NotZero(t, u.ID)

		got, err := repos.Users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada", got.Username)
		assert.JSONEq(t, `["Go"]`, string(got.Skills))

		got, err = repos.Users.GetByUsername(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		got, err = repos.Users.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = repos.Users.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repositories.ErrRecordNotFound)

		err = repos.Users.Create(ctx, &models.User{Username: "ada", Email: "other@example.com", Password: "hash"})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})
}

func TestProjectRepository_TeamMembers(t *testing.T) {
	forEachStore(t, func(t *testing.T, repos repositories.Repositories, _ repositories.TxManager) {
		ctx := context.Background()
		p := createProject(t, repos, 1, "web", "Go")
		assert.Empty(t, p.TeamMembers)

		require.NoError(t, repos.Projects.AddTeamMember(ctx, p.ID, 5))
		require.NoError(t, repos.Projects.AddTeamMember(ctx, p.ID, 5))
		require.NoError(t, repos.Projects.AddTeamMember(ctx, p.ID, 6))

		got, err := repos.Projects.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{5, 6}, got.TeamMembers)
		assert.True(t, got.HasMember(5))
		assert.False(t, got.HasMember(1))

		_, err = repos.Projects.GetByID(ctx, 999)
		assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
	})
}

func TestProjectRepository_List(t *testing.T) {
	forEachStore(t, func(t *testing.T, repos repositories.Repositories, _ repositories.TxManager) {
		ctx := context.Background()
		goWeb := createProject(t, repos, 1, "web", "Go", "React")
		time.Sleep(2 * time.Millisecond)
		goInfra := createProject(t, repos, 1, "infra", "Go")
		time.Sleep(2 * time.Millisecond)
		rustWeb := createProject(t, repos, 2, "web", "Rust", "React")
		time.Sleep(2 * time.Millisecond)
		percent := createProject(t, repos, 2, "web", "100%_pure")

		all, err := repos.Projects.List(ctx, models.ProjectFilter{}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{percent.ID, rustWeb.ID, goInfra.ID, goWeb.ID}, ids(all))

		web, err := repos.Projects.List(ctx, models.ProjectFilter{Category: "web"}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{percent.ID, rustWeb.ID, goWeb.ID}, ids(web))

		golang, err := repos.Projects.List(ctx, models.ProjectFilter{Technologies: []string{"Go"}}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{goInfra.ID, goWeb.ID}, ids(golang))

		both, err := repos.Projects.List(ctx, models.ProjectFilter{Technologies: []string{"Go", "React"}}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{goWeb.ID}, ids(both))

		// technology filters match whole elements, not substrings or patterns
		partial, err := repos.Projects.List(ctx, models.ProjectFilter{Technologies: []string{"Reac"}}, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, partial)
		wildcard, err := repos.Projects.List(ctx, models.ProjectFilter{Technologies: []string{"100%"}}, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, wildcard)
		literal, err := repos.Projects.List(ctx, models.ProjectFilter{Technologies: []string{"100%_pure"}}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{percent.ID}, ids(literal))

		page, err := repos.Projects.List(ctx, models.ProjectFilter{}, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{rustWeb.ID, goInfra.ID}, ids(page))

		status, err := repos.Projects.List(ctx, models.ProjectFilter{Status: models.ProjectStatusLaunched}, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, status)
	})
}

func ids(projects []models.Project) []uint {
	out := make([]uint, len(projects))
	for i, p := range projects {
		out[i] = p.ID
	}
	return out
}

func TestMatchRepository_Lifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, repos repositories.Repositories, _ repositories.TxManager) {
		ctx := context.Background()
		p := createProject(t, repos, 1, "web", "Go")
		m := createMatch(t, repos, 7, p.ID)

		exists, err := repos.Matches.ExistsForUserAndProject(ctx, 7, p.ID)
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repos.Matches.ExistsForUserAndProject(ctx, 8, p.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		dup := &models.Match{UserID: 7, ProjectID: p.ID, Status: models.MatchStatusPending, Message: "again please"}
		assert.ErrorIs(t, repos.Matches.Create(ctx, dup), repositories.ErrDuplicate)

		at := m.UpdatedAt.Add(time.Second)
		updated, err := repos.Matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusRejected, at)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusRejected, updated.Status)
		assert.True(t, updated.UpdatedAt.Equal(at))

		_, err = repos.Matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusAccepted, at)
		assert.ErrorIs(t, err, repositories.ErrStaleStatus)
		_, err = repos.Matches.UpdateStatus(ctx, 999, models.MatchStatusPending, models.MatchStatusAccepted, at)
		assert.ErrorIs(t, err, repositories.ErrRecordNotFound)

		assert.ErrorIs(t, repos.Matches.DeleteIfStatus(ctx, m.ID, models.MatchStatusPending), repositories.ErrStaleStatus)
		assert.ErrorIs(t, repos.Matches.DeleteIfStatus(ctx, 999, models.MatchStatusPending), repositories.ErrRecordNotFound)

		other := createMatch(t, repos, 8, p.ID)
		require.NoError(t, repos.Matches.DeleteIfStatus(ctx, other.ID, models.MatchStatusPending))
		_, err = repos.Matches.GetByID(ctx, other.ID)
		assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
	})
}

func TestMatchRepository_ListsAndCounts(t *testing.T) {
	forEachStore(t, func(t *testing.T, repos repositories.Repositories, _ repositories.TxManager) {
		ctx := context.Background()
		mine := createProject(t, repos, 1, "web", "Go")
		theirs := createProject(t, repos, 2, "ai", "Python")

		a := createMatch(t, repos, 7, mine.ID)
		time.Sleep(2 * time.Millisecond)
		b := createMatch(t, repos, 8, mine.ID)
		time.Sleep(2 * time.Millisecond)
		c := createMatch(t, repos, 7, theirs.ID)

		_, err := repos.Matches.UpdateStatus(ctx, a.ID, models.MatchStatusPending, models.MatchStatusAccepted, time.Now())
		require.NoError(t, err)
		_, err = repos.Matches.UpdateStatus(ctx, c.ID, models.MatchStatusPending, models.MatchStatusAccepted, time.Now())
		require.NoError(t, err)

		received, err := repos.Matches.ListReceived(ctx, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint{b.ID, a.ID}, matchIDs(received))

		pending := models.MatchStatusPending
		received, err = repos.Matches.ListReceived(ctx, 1, &pending)
		require.NoError(t, err)
		assert.Equal(t, []uint{b.ID}, matchIDs(received))

		sent, err := repos.Matches.ListSent(ctx, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint{c.ID, a.ID}, matchIDs(sent))

		empty, err := repos.Matches.ListSent(ctx, 99, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)

		counts, err := repos.Matches.CountReceived(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCounts{Total: 2, Pending: 1, Accepted: 1}, counts)

		counts, err = repos.Matches.CountSent(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCounts{Total: 2, Accepted: 2}, counts)

		accepted, err := repos.Matches.ListAcceptedProjects(ctx, 7)
		require.NoError(t, err)
		require.Len(t, accepted, 2)
		categories := []string{accepted[0].Category, accepted[1].Category}
		assert.ElementsMatch(t, []string{"web", "ai"}, categories)
		for _, ap := range accepted {
			techs, err := models.DecodeStringSet(ap.Technologies)
			require.NoError(t, err)
			assert.Len(t, techs, 1)
		}

		accepted, err = repos.Matches.ListAcceptedProjects(ctx, 8)
		require.NoError(t, err)
		assert.Empty(t, accepted)
	})
}

func matchIDs(matches []models.Match) []uint {
	out := make([]uint, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func TestTxManager_Rollback(t *testing.T) {
	forEachStore(t, func(t *testing.T, repos repositories.Repositories, tx repositories.TxManager) {
		ctx := context.Background()
		p := createProject(t, repos, 1, "web", "Go")
		m := createMatch(t, repos, 7, p.ID)
		boom := errors.New("boom")

		err := tx.WithinTx(ctx, func(txRepos repositories.Repositories) error {
			if err := txRepos.Projects.AddTeamMember(ctx, p.ID, 7); err != nil {
				return err
			}
			if _, err := txRepos.Matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusAccepted, time.Now()); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := repos.Projects.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, got.TeamMembers)
		stored, err := repos.Matches.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusPending, stored.Status)

		err = tx.WithinTx(ctx, func(txRepos repositories.Repositories) error {
			if err := txRepos.Projects.AddTeamMember(ctx, p.ID, 7); err != nil {
				return err
			}
			_, err := txRepos.Matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusAccepted, time.Now())
			return err
		})
		require.NoError(t, err)

		got, err = repos.Projects.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{7}, got.TeamMembers)
	})
}

func TestMemoryStore_RollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	repos := store.Repositories()
	p := createProject(t, repos, 1, "web", "Go")
	pending := createMatch(t, repos, 7, p.ID)
	boom := errors.New("boom")

	started := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.WithinTx(ctx, func(txRepos repositories.Repositories) error {
			if err := txRepos.Projects.AddTeamMember(ctx, p.ID, 9); err != nil {
				return err
			}
			close(started)
			<-release
			return boom
		})
	}()
	<-started

	// writers outside the unit of work wait for it and are not undone by its rollback
	writesDone := make(chan struct{})
	var other models.Match
	var createErr, deleteErr error
	go func() {
		defer close(writesDone)
		now := time.Now()
		other = models.Match{UserID: 8, ProjectID: p.ID, Status: models.MatchStatusPending, Message: "I would like to join", CreatedAt: now, UpdatedAt: now}
		createErr = repos.Matches.Create(ctx, &other)
		deleteErr = repos.Matches.DeleteIfStatus(ctx, pending.ID, models.MatchStatusPending)
	}()
	close(release)

	require.ErrorIs(t, <-txDone, boom)
	<-writesDone
	require.NoError(t, createErr)
	require.NoError(t, deleteErr)

	_, err := repos.Matches.GetByID(ctx, other.ID)
	assert.NoError(t, err)
	_, err = repos.Matches.GetByID(ctx, pending.ID)
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
	got, err := repos.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TeamMembers)
}
