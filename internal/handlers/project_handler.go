package handlers

import (
	"strings"

	"collab/internal/middleware"
	"collab/internal/models"
	"collab/internal/recommendation"
	"collab/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProjectHandler handles HTTP requests for projects and their recommendation scores.
type ProjectHandler struct {
	projects *services.ProjectService
	matches  *services.MatchService
	engine   *recommendation.Engine
	validate *validator.Validate
	log      zerolog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *services.ProjectService, matches *services.MatchService, engine *recommendation.Engine, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		matches:  matches,
		engine:   engine,
		validate: newValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the project routes with the Fiber app.
func (h *ProjectHandler) RegisterRoutes(router fiber.Router) {
	projectRoutes := router.Group("/projects")
	projectRoutes.Get("/", h.HandleListProjects)
	projectRoutes.Post("/", h.HandleCreateProject)
	projectRoutes.Get("/:id", h.HandleGetProject)
	projectRoutes.Get("/:id/score", h.HandleGetScore)
	projectRoutes.Get("/:id/can-request", h.HandleCanRequest)

	router.Post("/recommendations/scores", h.HandleBatchScores)
}

// CreateProjectRequest represents the request body for a new project.
type CreateProjectRequest struct {
	Title        string   `json:"title" validate:"required,min=3,max=200"`
	Description  string   `json:"description" validate:"omitempty,max=5000"`
	Category     string   `json:"category" validate:"required,max=100"`
	Technologies []string `json:"technologies" validate:"max=15,dive,required,max=50"`
	Status       string   `json:"status" validate:"omitempty,oneof=idea planning development testing launched"`
}

type projectResponse struct {
	ID                  uint                 `json:"id"`
	CreatorID           uint                 `json:"creator_id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Category            string               `json:"category"`
	Technologies        []string             `json:"technologies"`
	Status              models.ProjectStatus `json:"status"`
	TeamMembers         []uint               `json:"team_members"`
	RecommendationScore *int                 `json:"recommendationScore,omitempty"`
}

func newProjectResponse(p *models.Project) projectResponse {
	technologies, _ := models.DecodeStringSet(p.Technologies)
	team := p.TeamMembers
	if team == nil {
		team = []uint{}
	}
	return projectResponse{
		ID:           p.ID,
		CreatorID:    p.CreatorID,
		Title:        p.Title,
		Description:  p.Description,
		Category:     p.Category,
		Technologies: technologies,
		Status:       p.Status,
		TeamMembers:  team,
	}
}

// HandleCreateProject creates a project owned by the caller.
func (h *ProjectHandler) HandleCreateProject(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	project, err := h.projects.CreateProject(c.UserContext(), userID, services.ProjectInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Technologies: req.Technologies,
		Status:       models.ProjectStatus(req.Status),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newProjectResponse(project))
}

// HandleGetProject retrieves a single project by its ID.
func (h *ProjectHandler) HandleGetProject(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	project, err := h.projects.GetProjectByID(c.UserContext(), projectID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(newProjectResponse(project))
}

// HandleListProjects returns one page of projects ordered by the caller's
// recommendation score, or newest first without scores when sort=newest.
// Filters and paging are applied before scoring.
func (h *ProjectHandler) HandleListProjects(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	limit := c.QueryInt("limit", defaultPageSize)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > maxPageSize {
		return badRequest(c, "limit must be between 1 and 100")
	}
	if offset < 0 {
		return badRequest(c, "offset must not be negative")
	}

	filter := models.ProjectFilter{
		Status:   models.ProjectStatus(c.Query("status")),
		Category: c.Query("category"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return badRequest(c, "invalid status filter")
	}
	for _, t := range strings.Split(c.Query("technologies"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter.Technologies = append(filter.Technologies, t)
		}
	}

	if c.Query("sort") == "newest" {
		projects, err := h.projects.ListProjects(c.UserContext(), filter, limit, offset)
		if err != nil {
			return respondError(c, h.log, err)
		}
		items := make([]projectResponse, len(projects))
		for i := range projects {
			items[i] = newProjectResponse(&projects[i])
		}
		return c.JSON(fiber.Map{"projects": items, "limit": limit, "offset": offset})
	}

	scored, err := h.engine.ProjectsWithScores(c.UserContext(), userID, limit, offset, filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	items := make([]projectResponse, len(scored))
	for i := range scored {
		items[i] = newProjectResponse(&scored[i].Project)
		score := scored[i].RecommendationScore
		items[i].RecommendationScore = &score
	}
	return c.JSON(fiber.Map{
		"projects": items,
		"limit":    limit,
		"offset":   offset,
	})
}

// HandleGetScore returns the caller's recommendation score for a project.
func (h *ProjectHandler) HandleGetScore(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{
		"project_id":          projectID,
		"recommendationScore": h.engine.CalculateScore(c.UserContext(), userID, projectID),
	})
}

// BatchScoresRequest represents the request body for scoring several projects.
type BatchScoresRequest struct {
	ProjectIDs []uint `json:"project_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

// HandleBatchScores returns the caller's score for each requested project.
func (h *ProjectHandler) HandleBatchScores(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	var req BatchScoresRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"scores": h.engine.CalculateScores(c.UserContext(), userID, req.ProjectIDs),
	})
}

// HandleCanRequest tells the caller whether they may ask to join a project.
func (h *ProjectHandler) HandleCanRequest(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	eligibility, err := h.matches.CanRequestParticipation(c.UserContext(), userID, projectID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(eligibility)
}
