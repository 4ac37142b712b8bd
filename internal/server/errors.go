package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/spigell/skillsynx/internal/analysis"
	"github.com/spigell/skillsynx/internal/extract"
	"github.com/spigell/skillsynx/internal/oracle"
	"github.com/spigell/skillsynx/internal/pipeline"
	"github.com/spigell/skillsynx/internal/store"
	"go.uber.org/zap"
)

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrExtraction):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrEmptyInput), errors.Is(err, store.ErrInvalidKey):
		return fiber.StatusBadRequest
	case errors.Is(err, oracle.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrMalformedResponse):
		return fiber.StatusBadGateway
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
