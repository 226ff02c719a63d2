package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/pipeline"
)

func TestNewRejectsBadSpec(t *testing.T) {
	run := func(context.Context, string) (pipeline.Report, error) { return pipeline.Report{}, nil }
	if _, err := New("every now and then", time.UTC, time.Minute, run, logger.Nop()); err == nil {
		t.Fatal("want error for bad spec")
	}
	s, err := New("0 */30 * * * *", time.UTC, time.Minute, run, logger.Nop())
	if err != nil {
		t.Fatalf("valid spec: %v", err)
	}
	s.Stop()
}

func TestTickPassesCronTrigger(t *testing.T) {
	var trigger string
	var hadDeadline bool
	run := func(ctx context.Context, tr string) (pipeline.Report, error) {
		trigger = tr
		_, hadDeadline = ctx.Deadline()
		return pipeline.Report{RunID: "r1", Status: models.SyncSucceeded}, nil
	}
	s, err := New("0 0 * * * *", time.UTC, time.Minute, run, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Stop()

	s.tick()
	if trigger != "cron" || !hadDeadline {
		t.Fatalf("trigger=%q deadline=%v", trigger, hadDeadline)
	}
}

func TestTickToleratesOverlap(t *testing.T) {
	calls := 0
	run := func(context.Context, string) (pipeline.Report, error) {
		calls++
		return pipeline.Report{}, pipeline.ErrRunInProgress
	}
	s, _ := New("0 0 * * * *", time.UTC, 0, run, logger.Nop())
	defer s.Stop()
	s.tick()
	s.tick()
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestStopCancelsInFlightContext(t *testing.T) {
	var ctxErr error
	run := func(ctx context.Context, _ string) (pipeline.Report, error) {
		<-ctx.Done()
		ctxErr = ctx.Err()
		return pipeline.Report{}, ctx.Err()
	}
	s, _ := New("0 0 * * * *", time.UTC, 0, run, logger.Nop())
	s.Stop()
	s.tick()
	if !errors.Is(ctxErr, context.Canceled) {
		t.Fatalf("want canceled, got %v", ctxErr)
	}
}
