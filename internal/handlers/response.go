package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"collab/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// API error codes returned in JSON { "message": "...", "code": "..." } for stable client handling.
const (
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeValidationFailed     = "validation_failed"
	ErrCodeInvalidCredentials   = "invalid_credentials"
	ErrCodeNotFound             = "not_found"
	ErrCodeForbidden            = "forbidden"
	ErrCodeSelfRequestForbidden = "self_request_forbidden"
	ErrCodeDuplicateRequest     = "duplicate_request"
	ErrCodeInvalidMessage       = "invalid_message"
	ErrCodeInvalidTransition    = "invalid_transition"
	ErrCodeConflict             = "conflict"
	ErrCodeInternal             = "internal_error"
)

var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{services.ErrNotFound, fiber.StatusNotFound, ErrCodeNotFound},
	{services.ErrSelfRequestForbidden, fiber.StatusForbidden, ErrCodeSelfRequestForbidden},
	{services.ErrDuplicateRequest, fiber.StatusConflict, ErrCodeDuplicateRequest},
	{services.ErrInvalidMessage, fiber.StatusBadRequest, ErrCodeInvalidMessage},
	{services.ErrNotAuthorized, fiber.StatusForbidden, ErrCodeForbidden},
	{services.ErrInvalidTransition, fiber.StatusConflict, ErrCodeInvalidTransition},
	{services.ErrInvalidInput, fiber.StatusBadRequest, ErrCodeInvalidRequest},
	{services.ErrConflict, fiber.StatusConflict, ErrCodeConflict},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, ErrCodeInvalidCredentials},
}

// respondError maps domain errors to 4xx responses and anything else to 500.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var domainErr *services.Error
	if errors.As(err, &domainErr) {
		for _, m := range errorStatus {
			if errors.Is(domainErr, m.kind) {
				return c.Status(m.status).JSON(fiber.Map{
					"message": domainErr.Message,
					"code":    m.code,
				})
			}
		}
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"code":    ErrCodeInternal,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
		"code":    ErrCodeInvalidRequest,
	})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return badRequest(c, err.Error())
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"code":    ErrCodeValidationFailed,
		"errors":  errorMessages,
	})
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, c.Params(name))
	}
	return uint(id), nil
}
