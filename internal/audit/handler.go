package audit

import (
	"encoding/json"
	"time"

	"invplan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SyncRunResponse struct {
	ID         uint              `json:"id"`
	RunID      string            `json:"run_id"`
	Phase      models.SyncPhase  `json:"phase"`
	Source     string            `json:"source"`
	Trigger    string            `json:"trigger"`
	Status     models.SyncStatus `json:"status"`
	Fetched    int               `json:"fetched"`
	Updated    int               `json:"updated"`
	Forked     int               `json:"forked"`
	Inserted   int               `json:"inserted"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Error      string            `json:"error,omitempty"`
	Detail     json.RawMessage   `json:"detail"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	DurationMS int64             `json:"duration_ms"`
}

// GET /api/sync/runs?run_id=&phase=&source=&status=&limit=
func ListRunsHandler(rec *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := rec.List(c.UserContext(), RunFilter{
			RunID:  c.Query("run_id"),
			Phase:  c.Query("phase"),
			Source: c.Query("source"),
			Status: c.Query("status"),
			Limit:  c.QueryInt("limit", 50),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "sync runs could not be loaded")
		}

		resp := make([]SyncRunResponse, 0, len(rows))
		for _, r := range rows {
			detail := json.RawMessage(r.Detail)
			if !json.Valid(detail) {
				detail = json.RawMessage("null")
			}
			resp = append(resp, SyncRunResponse{
				ID:         r.ID,
				RunID:      r.RunID,
				Phase:      r.Phase,
				Source:     r.Source,
				Trigger:    r.Trigger,
				Status:     r.Status,
				Fetched:    r.Fetched,
				Updated:    r.Updated,
				Forked:     r.Forked,
				Inserted:   r.Inserted,
				Skipped:    r.Skipped,
				Failed:     r.Failed,
				Error:      r.Error,
				Detail:     detail,
				StartedAt:  r.StartedAt.Format(time.RFC3339),
				FinishedAt: r.FinishedAt.Format(time.RFC3339),
				DurationMS: r.DurationMS,
			})
		}
		return c.JSON(resp)
	}
}
