// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/pipeline"
)

// RunFunc starts one pipeline run.
type RunFunc func(ctx context.Context, trigger string) (pipeline.Report, error)

type Scheduler struct {
	cron    *cron.Cron
	run     RunFunc
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logger.Logger
}

// New parses spec (six fields, seconds first) in loc. Each run gets at
// most timeout before its context is cancelled.
func New(spec string, loc *time.Location, timeout time.Duration, run RunFunc, baseLog *logger.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.NewWithLocation(loc),
		run:     run,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		log:     baseLog.With("component", "Scheduler"),
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid SYNC_CRON %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop prevents new runs and cancels the one in flight.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.cancel()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
	}

	rep, err := s.run(ctx, "cron")
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.log.Warn("scheduled run skipped, previous run still active")
	case err != nil:
		s.log.Error("scheduled run failed", "run_id", rep.RunID, "error", err)
	default:
		s.log.Info("scheduled run done", "run_id", rep.RunID, "status", rep.Status)
	}
}
