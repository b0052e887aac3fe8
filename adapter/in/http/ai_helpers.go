package http

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"ai_server/core/service/common"
	"ai_server/pkg/apperr"
)

// parseBody decodes the raw JSON body into v. It does not depend on the
// Content-Type header, so bare arrays posted by the backend decode too.
func parseBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperr.BadRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.BadRequest("invalid JSON body").WithError(err)
	}
	return nil
}

// serviceError maps a service error onto an AppError.
func serviceError(model string, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrDimensionMismatch),
		errors.Is(err, common.ErrEmptyInput):
		return apperr.ValidationFailed(err.Error()).WithError(err)
	case errors.Is(err, common.ErrModelUnavailable):
		return apperr.ModelUnavailable(model, err)
	default:
		return apperr.ExternalError(model, err)
	}
}
