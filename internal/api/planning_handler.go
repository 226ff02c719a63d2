package api

import (
	"context"
	"errors"
	"strings"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/report"

	"github.com/gofiber/fiber/v2"
)

// Reporter is the read side served to the dashboard.
type Reporter interface {
	Planning(ctx context.Context, q report.Query) (*report.Planning, error)
	Info(ctx context.Context, ean string) (*report.Info, error)
}

// GET /api/planning?brand=&vendor=&category=&location=&page=&limit=
func PlanningHandler(svc Reporter, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := report.Query{
			Brand:    c.Query("brand"),
			Vendor:   c.Query("vendor"),
			Category: c.Query("category"),
			Location: c.Query("location"),
			Page:     c.QueryInt("page", 1),
			Limit:    c.QueryInt("limit", 15),
		}
		out, err := svc.Planning(c.UserContext(), q)
		if errors.Is(err, report.ErrNoSnapshot) {
			return fiber.NewError(fiber.StatusNotFound, "no planning snapshot available yet")
		}
		if err != nil {
			log.Error("planning report failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "planning report could not be built")
		}
		return c.JSON(out)
	}
}

// GET /api/planning/info?ean=
func InfoHandler(svc Reporter, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ean := strings.TrimSpace(c.Query("ean"))
		if ean == "" {
			return fiber.NewError(fiber.StatusBadRequest, "ean is required")
		}
		out, err := svc.Info(c.UserContext(), ean)
		if errors.Is(err, report.ErrNoFact) {
			return fiber.NewError(fiber.StatusNotFound, "no inventory data for this ean")
		}
		if err != nil {
			log.Error("planning info failed", "ean", ean, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "planning info could not be computed")
		}
		return c.JSON(out)
	}
}
