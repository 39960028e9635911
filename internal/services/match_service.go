package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"collab/internal/metrics"
	"collab/internal/models"
	"collab/internal/repositories"

	"github.com/rs/zerolog"
)

// MatchService runs the match lifecycle: a request is created pending, the
// project creator accepts, rejects or blocks it once, or the requester
// cancels it while it is still pending.
type MatchService struct {
	matches  repositories.MatchRepository
	projects repositories.ProjectRepository
	tx       repositories.TxManager
	log      zerolog.Logger
}

// NewMatchService creates a new MatchService.
func NewMatchService(matches repositories.MatchRepository, projects repositories.ProjectRepository, tx repositories.TxManager, log zerolog.Logger) *MatchService {
	return &MatchService{
		matches:  matches,
		projects: projects,
		tx:       tx,
		log:      log.With().Str("component", "match_service").Logger(),
	}
}

// Eligibility tells a client whether a request button should be offered.
// It is advisory: CreateMatch validates again.
type Eligibility struct {
	CanRequest bool   `json:"canRequest"`
	Reason     string `json:"reason,omitempty"`
}

// MatchStats counts a user's matches in both roles.
type MatchStats struct {
	Sent     models.StatusCounts `json:"sent"`
	Received models.StatusCounts `json:"received"`
}

// CreateMatch records a pending request from requesterID to join projectID.
// Checks run in order and the first failure is returned.
func (s *MatchService) CreateMatch(ctx context.Context, requesterID, projectID uint, message string) (*models.Match, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID == requesterID {
		return nil, errSelfRequest
	}

	exists, err := s.matches.ExistsForUserAndProject(ctx, requesterID, projectID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicate
	}

	if n := utf8.RuneCountInString(message); n < models.MinMatchMessageLength || n > models.MaxMatchMessageLength {
		return nil, newError(ErrInvalidMessage, "message must be between %d and %d characters", models.MinMatchMessageLength, models.MaxMatchMessageLength)
	}

	now := time.Now()
	match := &models.Match{
		ProjectID: projectID,
		UserID:    requesterID,
		Status:    models.MatchStatusPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.matches.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errDuplicate
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	metrics.MatchActions.WithLabelValues("create").Inc()
	s.log.Debug().Uint("match_id", match.ID).Uint("project_id", projectID).Uint("user_id", requesterID).Msg("match created")
	return match, nil
}

// AcceptMatch adds the requester to the project team and marks the match
// accepted. Both writes commit together or not at all.
func (s *MatchService) AcceptMatch(ctx context.Context, matchID, actingUserID uint) (*models.Match, error) {
	return s.respond(ctx, matchID, actingUserID, models.MatchStatusAccepted, "accept")
}

// RejectMatch marks a pending match rejected.
func (s *MatchService) RejectMatch(ctx context.Context, matchID, actingUserID uint) (*models.Match, error) {
	return s.respond(ctx, matchID, actingUserID, models.MatchStatusRejected, "reject")
}

// BlockMatch marks a pending match blocked. It behaves like RejectMatch
// apart from the stored status.
func (s *MatchService) BlockMatch(ctx context.Context, matchID, actingUserID uint) (*models.Match, error) {
	return s.respond(ctx, matchID, actingUserID, models.MatchStatusBlocked, "block")
}

func (s *MatchService) respond(ctx context.Context, matchID, actingUserID uint, to models.MatchStatus, action string) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, match.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID != actingUserID {
		return nil, newError(ErrNotAuthorized, "only the project creator can %s this match", action)
	}
	if match.Status != models.MatchStatusPending {
		return nil, newError(ErrInvalidTransition, "cannot %s a match that is %s", action, match.Status)
	}

	var updated *models.Match
	err = s.tx.WithinTx(ctx, func(repos repositories.Repositories) error {
		if to == models.MatchStatusAccepted {
			if err := repos.Projects.AddTeamMember(ctx, project.ID, match.UserID); err != nil {
				return err
			}
		}
		var err error
		updated, err = repos.Matches.UpdateStatus(ctx, match.ID, models.MatchStatusPending, to, time.Now())
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrStaleStatus):
			return nil, newError(ErrInvalidTransition, "cannot %s a match that is no longer pending", action)
		case isRecordNotFound(err):
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to %s match %d: %w", action, matchID, err)
	}

	metrics.MatchActions.WithLabelValues(action).Inc()
	s.log.Debug().Uint("match_id", matchID).Str("status", string(to)).Msg("match status changed")
	return updated, nil
}

// CancelMatch deletes a pending match on behalf of its requester and returns
// the row as it was before deletion.
func (s *MatchService) CancelMatch(ctx context.Context, matchID, actingUserID uint) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.UserID != actingUserID {
		return nil, newError(ErrNotAuthorized, "only the requester can cancel this match")
	}
	if match.Status != models.MatchStatusPending {
		return nil, newError(ErrInvalidTransition, "only pending matches can be cancelled")
	}

	if err := s.matches.DeleteIfStatus(ctx, match.ID, models.MatchStatusPending); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStaleStatus):
			return nil, newError(ErrInvalidTransition, "only pending matches can be cancelled")
		case isRecordNotFound(err):
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to cancel match %d: %w", matchID, err)
	}

	metrics.MatchActions.WithLabelValues("cancel").Inc()
	return match, nil
}

// CanRequestParticipation mirrors the CreateMatch checks and additionally
// refuses users already on the team. Rule failures are reported in the
// result; only store failures are returned as errors.
func (s *MatchService) CanRequestParticipation(ctx context.Context, userID, projectID uint) (Eligibility, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if isRecordNotFound(err) {
			return Eligibility{Reason: ErrProjectNotFound.Message}, nil
		}
		return Eligibility{}, err
	}
	if project.CreatorID == userID {
		return Eligibility{Reason: errSelfRequest.Message}, nil
	}

	exists, err := s.matches.ExistsForUserAndProject(ctx, userID, projectID)
	if err != nil {
		return Eligibility{}, err
	}
	if exists {
		return Eligibility{Reason: errDuplicate.Message}, nil
	}
	if project.HasMember(userID) {
		return Eligibility{Reason: errAlreadyMember.Message}, nil
	}
	return Eligibility{CanRequest: true}, nil
}

// GetMatch returns a match visible to its requester or the project creator.
func (s *MatchService) GetMatch(ctx context.Context, matchID, actingUserID uint) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.UserID == actingUserID {
		return match, nil
	}
	project, err := s.loadProject(ctx, match.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID != actingUserID {
		return nil, newError(ErrNotAuthorized, "you are not a party to this match")
	}
	return match, nil
}

// GetReceivedMatches lists matches on every project owned by creatorID,
// newest first, optionally restricted to one status.
func (s *MatchService) GetReceivedMatches(ctx context.Context, creatorID uint, status *models.MatchStatus) ([]models.Match, error) {
	return s.matches.ListReceived(ctx, creatorID, status)
}

// GetSentMatches lists matches created by requesterID, newest first,
// optionally restricted to one status.
func (s *MatchService) GetSentMatches(ctx context.Context, requesterID uint, status *models.MatchStatus) ([]models.Match, error) {
	return s.matches.ListSent(ctx, requesterID, status)
}

// GetMatchStats counts the user's sent and received matches per status.
func (s *MatchService) GetMatchStats(ctx context.Context, userID uint) (MatchStats, error) {
	sent, err := s.matches.CountSent(ctx, userID)
	if err != nil {
		return MatchStats{}, err
	}
	received, err := s.matches.CountReceived(ctx, userID)
	if err != nil {
		return MatchStats{}, err
	}
	return MatchStats{Sent: sent, Received: received}, nil
}

func (s *MatchService) loadMatch(ctx context.Context, id uint) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *MatchService) loadProject(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}
