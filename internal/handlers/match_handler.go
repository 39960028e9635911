package handlers

import (
	"context"
	"fmt"

	"collab/internal/audit"
	"collab/internal/middleware"
	"collab/internal/models"
	"collab/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const auditResourceMatch = "match"

// MatchHandler handles HTTP requests for match requests.
type MatchHandler struct {
	service  *services.MatchService
	audit    *audit.Recorder
	validate *validator.Validate
	log      zerolog.Logger
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(service *services.MatchService, recorder *audit.Recorder, log zerolog.Logger) *MatchHandler {
	return &MatchHandler{
		service:  service,
		audit:    recorder,
		validate: newValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the match routes with the Fiber app.
func (h *MatchHandler) RegisterRoutes(router fiber.Router) {
	matchRoutes := router.Group("/matches")
	matchRoutes.Post("/", h.HandleCreateMatch)
	matchRoutes.Get("/received", h.HandleGetReceived)
	matchRoutes.Get("/sent", h.HandleGetSent)
	matchRoutes.Get("/stats", h.HandleGetStats)
	matchRoutes.Get("/:id", h.HandleGetMatch)
	matchRoutes.Post("/:id/accept", h.HandleAccept)
	matchRoutes.Post("/:id/reject", h.HandleReject)
	matchRoutes.Post("/:id/block", h.HandleBlock)
	matchRoutes.Delete("/:id", h.HandleCancel)
}

// CreateMatchRequest represents the request body for asking to join a project.
// Message length is checked by the service so the error carries its own code.
type CreateMatchRequest struct {
	ProjectID uint   `json:"project_id" validate:"required,gt=0"`
	Message   string `json:"message"`
}

// HandleCreateMatch sends a participation request for a project.
func (h *MatchHandler) HandleCreateMatch(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	var req CreateMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	match, err := h.service.CreateMatch(c.UserContext(), userID, req.ProjectID, req.Message)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.record(userID, "created", match)
	return c.Status(fiber.StatusCreated).JSON(match)
}

// HandleGetMatch returns one match visible to the caller.
func (h *MatchHandler) HandleGetMatch(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	matchID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	match, err := h.service.GetMatch(c.UserContext(), matchID, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(match)
}

// HandleGetReceived lists requests on the caller's projects.
func (h *MatchHandler) HandleGetReceived(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	status, err := statusFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	matches, err := h.service.GetReceivedMatches(c.UserContext(), userID, status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"matches": nonNilMatches(matches)})
}

// HandleGetSent lists requests the caller has made.
func (h *MatchHandler) HandleGetSent(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	status, err := statusFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	matches, err := h.service.GetSentMatches(c.UserContext(), userID, status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"matches": nonNilMatches(matches)})
}

// HandleGetStats returns per-status counts of the caller's matches.
func (h *MatchHandler) HandleGetStats(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	stats, err := h.service.GetMatchStats(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(stats)
}

// HandleAccept accepts a pending match on one of the caller's projects.
func (h *MatchHandler) HandleAccept(c *fiber.Ctx) error {
	return h.respond(c, "accepted", h.service.AcceptMatch)
}

// HandleReject rejects a pending match on one of the caller's projects.
func (h *MatchHandler) HandleReject(c *fiber.Ctx) error {
	return h.respond(c, "rejected", h.service.RejectMatch)
}

// HandleBlock blocks a pending match on one of the caller's projects.
func (h *MatchHandler) HandleBlock(c *fiber.Ctx) error {
	return h.respond(c, "blocked", h.service.BlockMatch)
}

type transitionFunc func(ctx context.Context, matchID, actingUserID uint) (*models.Match, error)

func (h *MatchHandler) respond(c *fiber.Ctx, action string, transition transitionFunc) error {
	userID, _ := middleware.CurrentUserID(c)
	matchID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	match, err := transition(c.UserContext(), matchID, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.record(userID, action, match)
	return c.JSON(match)
}

// HandleCancel withdraws the caller's own pending request.
func (h *MatchHandler) HandleCancel(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	matchID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	match, err := h.service.CancelMatch(c.UserContext(), matchID, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.record(userID, "cancelled", match)
	return c.JSON(fiber.Map{"message": "Match cancelled successfully"})
}

func (h *MatchHandler) record(actorID uint, action string, match *models.Match) {
	if h.audit == nil {
		return
	}
	h.audit.Record(actorID, action, auditResourceMatch, match.ID, map[string]any{
		"project_id": match.ProjectID,
		"user_id":    match.UserID,
		"status":     string(match.Status),
	})
}

func statusFilter(c *fiber.Ctx) (*models.MatchStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status := models.MatchStatus(raw)
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status filter: %q", raw)
	}
	return &status, nil
}

func nonNilMatches(matches []models.Match) []models.Match {
	if matches == nil {
		return []models.Match{}
	}
	return matches
}
