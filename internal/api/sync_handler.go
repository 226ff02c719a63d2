package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/pipeline"
	"invplan-backend/internal/planning"
	"invplan-backend/internal/source"

	"github.com/gofiber/fiber/v2"
)

// Runner triggers pipeline work on demand.
type Runner interface {
	Start(trigger string) (string, error)
	RunSource(ctx context.Context, name, trigger string) (pipeline.SourceReport, error)
	BuildSnapshot(ctx context.Context, date time.Time, ean, trigger string) (planning.BuildResult, error)
	Ingest(ctx context.Context, name, trigger string, patches []facts.Patch) (pipeline.SourceReport, error)
	Today() time.Time
}

// POST /api/sync/run
func RunHandler(runner Runner, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runID, err := runner.Start("api")
		if errors.Is(err, pipeline.ErrRunInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			log.Error("pipeline run could not start", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "pipeline run could not start")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID})
	}
}

// POST /api/sync/sources/:name
func RunSourceHandler(runner Runner, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		rep, err := runner.RunSource(c.UserContext(), name, "api")
		switch {
		case errors.Is(err, source.ErrUnknownSource):
			return fiber.NewError(fiber.StatusNotFound, "unknown or disabled source")
		case errors.Is(err, pipeline.ErrRunInProgress):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case err != nil:
			log.Error("source run failed", "source", name, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(rep)
		}
		return c.JSON(rep)
	}
}

type BuildSnapshotResponse struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

// POST /api/snapshots/build?date=YYYY-MM-DD&ean=
func BuildSnapshotHandler(runner Runner, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := runner.Today()
		if s := strings.TrimSpace(c.Query("date")); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			date = d
		}
		ean := facts.NormalizeEAN(c.Query("ean"))

		res, err := runner.BuildSnapshot(c.UserContext(), date, ean, "api")
		if errors.Is(err, pipeline.ErrRunInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			log.Error("snapshot build failed", "date", date.Format("2006-01-02"), "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "snapshot could not be built")
		}
		return c.JSON(BuildSnapshotResponse{
			Date:      date.Format("2006-01-02"),
			Processed: res.Processed,
			Failed:    res.Failed,
		})
	}
}
