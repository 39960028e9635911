package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"collab/internal/models"
)

// MemoryStore is an in-memory implementation of every repository and of
// TxManager. It backs DATABASE_DRIVER=memory and fast service tests.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   uint
	users    map[uint]models.User
	projects map[uint]models.Project
	members  map[uint]map[uint]time.Time // project id -> user id -> joined at
	matches  map[uint]models.Match
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]models.User),
		projects: make(map[uint]models.Project),
		members:  make(map[uint]map[uint]time.Time),
		matches:  make(map[uint]models.Match),
	}
}

// Repositories returns repositories reading and writing this store.
func (s *MemoryStore) Repositories() Repositories {
	return s.repositories(false)
}

// repositories built with inTx set assume the caller already holds mu.
func (s *MemoryStore) repositories(inTx bool) Repositories {
	return Repositories{
		Users:    &memoryUserRepository{s: s, inTx: inTx},
		Projects: &memoryProjectRepository{s: s, inTx: inTx},
		Matches:  &memoryMatchRepository{s: s, inTx: inTx},
	}
}

// WithinTx holds the write lock for the whole unit of work, so every other
// reader and writer waits for it. A failing fn restores the state it started from.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(s.repositories(true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) rlock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

type memorySnapshot struct {
	nextID   uint
	users    map[uint]models.User
	projects map[uint]models.Project
	members  map[uint]map[uint]time.Time
	matches  map[uint]models.Match
}

// snapshot and restore must be called with mu held.
func (s *MemoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		nextID:   s.nextID,
		users:    make(map[uint]models.User, len(s.users)),
		projects: make(map[uint]models.Project, len(s.projects)),
		members:  make(map[uint]map[uint]time.Time, len(s.members)),
		matches:  make(map[uint]models.Match, len(s.matches)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.projects {
		snap.projects[k] = v
	}
	for k, team := range s.members {
		cp := make(map[uint]time.Time, len(team))
		for u, t := range team {
			cp[u] = t
		}
		snap.members[k] = cp
	}
	for k, v := range s.matches {
		snap.matches[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.nextID = snap.nextID
	s.users = snap.users
	s.projects = snap.projects
	s.members = snap.members
	s.matches = snap.matches
}

// newID must be called with mu held.
func (s *MemoryStore) newID() uint {
	s.nextID++
	return s.nextID
}

// teamOf must be called with mu held.
func (s *MemoryStore) teamOf(projectID uint) []uint {
	team := s.members[projectID]
	ids := make([]uint, 0, len(team))
	for id := range team {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := team[ids[i]], team[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	return ids
}

type memoryUserRepository struct {
	s    *MemoryStore
	inTx bool
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	defer r.s.lock(r.inTx)()

	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("failed to create user %s: %w", user.Username, ErrDuplicate)
		}
	}
	if user.ID == 0 {
		user.ID = r.s.newID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id }, fmt.Sprintf("ID %d", id))
}

func (r *memoryUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username }, "username "+username)
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email }, "email "+email)
}

func (r *memoryUserRepository) find(match func(models.User) bool, desc string) (*models.User, error) {
	defer r.s.rlock(r.inTx)()

	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with %s: %w", desc, ErrRecordNotFound)
}

type memoryProjectRepository struct {
	s    *MemoryStore
	inTx bool
}

func (r *memoryProjectRepository) Create(ctx context.Context, project *models.Project) error {
	defer r.s.lock(r.inTx)()

	if project.ID == 0 {
		project.ID = r.s.newID()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.TeamMembers = []uint{}
	r.s.projects[project.ID] = *project
	return nil
}

func (r *memoryProjectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	defer r.s.rlock(r.inTx)()

	project, ok := r.s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project with ID %d: %w", id, ErrRecordNotFound)
	}
	project.TeamMembers = r.s.teamOf(id)
	return &project, nil
}

func (r *memoryProjectRepository) List(ctx context.Context, filter models.ProjectFilter, limit, offset int) ([]models.Project, error) {
	defer r.s.rlock(r.inTx)()

	projects := make([]models.Project, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if !hasAllTechnologies(p, filter.Technologies) {
			continue
		}
		p.TeamMembers = r.s.teamOf(p.ID)
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID > projects[j].ID
		}
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})

	if offset > len(projects) {
		offset = len(projects)
	}
	if offset > 0 {
		projects = projects[offset:]
	}
	if limit > 0 && limit < len(projects) {
		projects = projects[:limit]
	}
	return projects, nil
}

func hasAllTechnologies(p models.Project, required []string) bool {
	if len(required) == 0 {
		return true
	}
	techs, err := models.DecodeStringSet(p.Technologies)
	if err != nil {
		return false
	}
	have := make(map[string]struct{}, len(techs))
	for _, t := range techs {
		have[t] = struct{}{}
	}
	for _, t := range required {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

func (r *memoryProjectRepository) AddTeamMember(ctx context.Context, projectID, userID uint) error {
	defer r.s.lock(r.inTx)()

	if _, ok := r.s.projects[projectID]; !ok {
		return fmt.Errorf("failed to add user %d to project %d: %w", userID, projectID, ErrRecordNotFound)
	}
	team, ok := r.s.members[projectID]
	if !ok {
		team = make(map[uint]time.Time)
		r.s.members[projectID] = team
	}
	if _, exists := team[userID]; !exists {
		team[userID] = time.Now()
	}
	return nil
}

type memoryMatchRepository struct {
	s    *MemoryStore
	inTx bool
}

func (r *memoryMatchRepository) Create(ctx context.Context, match *models.Match) error {
	defer r.s.lock(r.inTx)()

	for _, m := range r.s.matches {
		if m.UserID == match.UserID && m.ProjectID == match.ProjectID {
			return fmt.Errorf("match for user %d on project %d: %w", match.UserID, match.ProjectID, ErrDuplicate)
		}
	}
	if match.ID == 0 {
		match.ID = r.s.newID()
	}
	r.s.matches[match.ID] = *match
	return nil
}

func (r *memoryMatchRepository) GetByID(ctx context.Context, id uint) (*models.Match, error) {
	defer r.s.rlock(r.inTx)()

	match, ok := r.s.matches[id]
	if !ok {
		return nil, fmt.Errorf("match with ID %d: %w", id, ErrRecordNotFound)
	}
	return &match, nil
}

func (r *memoryMatchRepository) ExistsForUserAndProject(ctx context.Context, userID, projectID uint) (bool, error) {
	defer r.s.rlock(r.inTx)()

	for _, m := range r.s.matches {
		if m.UserID == userID && m.ProjectID == projectID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryMatchRepository) UpdateStatus(ctx context.Context, id uint, from, to models.MatchStatus, at time.Time) (*models.Match, error) {
	defer r.s.lock(r.inTx)()

	match, ok := r.s.matches[id]
	if !ok {
		return nil, fmt.Errorf("match with ID %d: %w", id, ErrRecordNotFound)
	}
	if match.Status != from {
		return nil, fmt.Errorf("match %d is no longer %s: %w", id, from, ErrStaleStatus)
	}
	match.Status = to
	match.UpdatedAt = at
	r.s.matches[id] = match
	return &match, nil
}

func (r *memoryMatchRepository) DeleteIfStatus(ctx context.Context, id uint, status models.MatchStatus) error {
	defer r.s.lock(r.inTx)()

	match, ok := r.s.matches[id]
	if !ok {
		return fmt.Errorf("match with ID %d: %w", id, ErrRecordNotFound)
	}
	if match.Status != status {
		return fmt.Errorf("match %d is no longer %s: %w", id, status, ErrStaleStatus)
	}
	delete(r.s.matches, id)
	return nil
}

func (r *memoryMatchRepository) ListReceived(ctx context.Context, creatorID uint, status *models.MatchStatus) ([]models.Match, error) {
	return r.list(func(m models.Match) bool {
		return r.s.projects[m.ProjectID].CreatorID == creatorID && (status == nil || m.Status == *status)
	}), nil
}

func (r *memoryMatchRepository) ListSent(ctx context.Context, userID uint, status *models.MatchStatus) ([]models.Match, error) {
	return r.list(func(m models.Match) bool {
		return m.UserID == userID && (status == nil || m.Status == *status)
	}), nil
}

func (r *memoryMatchRepository) CountReceived(ctx context.Context, creatorID uint) (models.StatusCounts, error) {
	return r.count(func(m models.Match) bool { return r.s.projects[m.ProjectID].CreatorID == creatorID }), nil
}

func (r *memoryMatchRepository) CountSent(ctx context.Context, userID uint) (models.StatusCounts, error) {
	return r.count(func(m models.Match) bool { return m.UserID == userID }), nil
}

func (r *memoryMatchRepository) ListAcceptedProjects(ctx context.Context, userID uint) ([]models.AcceptedProject, error) {
	accepted := models.MatchStatusAccepted
	matches, _ := r.ListSent(ctx, userID, &accepted)

	defer r.s.rlock(r.inTx)()

	projects := make([]models.AcceptedProject, 0, len(matches))
	for _, m := range matches {
		p, ok := r.s.projects[m.ProjectID]
		if !ok {
			continue
		}
		projects = append(projects, models.AcceptedProject{
			ProjectID:    p.ID,
			Technologies: p.Technologies,
			Category:     p.Category,
		})
	}
	return projects, nil
}

func (r *memoryMatchRepository) list(keep func(models.Match) bool) []models.Match {
	defer r.s.rlock(r.inTx)()

	matches := make([]models.Match, 0)
	for _, m := range r.s.matches {
		if keep(m) {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches
}

func (r *memoryMatchRepository) count(keep func(models.Match) bool) models.StatusCounts {
	defer r.s.rlock(r.inTx)()

	var counts models.StatusCounts
	for _, m := range r.s.matches {
		if keep(m) {
			counts.Add(m.Status, 1)
		}
	}
	return counts
}
