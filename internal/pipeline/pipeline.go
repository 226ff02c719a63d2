// Package pipeline runs the periodic batch: read every enabled source,
// merge it into the fact table, refresh roll-ups and build the day's
// planning snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invplan-backend/internal/audit"
	"invplan-backend/internal/cache"
	"invplan-backend/internal/facts"
	"invplan-backend/internal/flow"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/merger"
	"invplan-backend/internal/metrics"
	"invplan-backend/internal/models"
	"invplan-backend/internal/planning"
	"invplan-backend/internal/rollup"
	"invplan-backend/internal/runlock"
	"invplan-backend/internal/source"
	"invplan-backend/internal/store"

	"github.com/google/uuid"
)

const lockKey = "pipeline"

var ErrRunInProgress = errors.New("another pipeline run is in progress")

// Catalog resolves a fact feed by name.
type Catalog interface {
	Get(name string) (source.Source, error)
}

// OrderSource reads the B2B order feed.
type OrderSource interface {
	Read(ctx context.Context) (source.OrderBatch, error)
}

// Recorder persists run history.
type Recorder interface {
	Record(ctx context.Context, e audit.RunEntry) error
}

// Options wires a Runner. Order lists enabled sources in run order;
// Policies must hold an entry for each of them.
type Options struct {
	Order    []string
	Policies map[string]merger.Policy
	Sources  Catalog
	Orders   OrderSource
	Rules    flow.Rules
	Merger   *merger.Merger
	Upcoming store.UpcomingRepo
	Rollup   *rollup.Service
	Engine   *planning.Engine
	Lock     runlock.Locker
	LockTTL  time.Duration
	Cache    cache.Cache
	Audit    Recorder
	Ping     func(ctx context.Context) error
	Location *time.Location
}

type Runner struct {
	opts Options
	now  func() time.Time
	log  *logger.Logger
}

func New(opts Options, baseLog *logger.Logger) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Hour
	}
	if opts.Lock == nil {
		opts.Lock = runlock.NewLocal()
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Ping == nil {
		opts.Ping = func(context.Context) error { return nil }
	}
	return &Runner{
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
		log:  baseLog.With("component", "Pipeline"),
	}
}

// WithClock replaces the time source. Tests only.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// SourceReport is the outcome of one source within a run.
type SourceReport struct {
	Name      string            `json:"name"`
	Status    models.SyncStatus `json:"status"`
	Fetched   int               `json:"fetched"`
	Merge     merger.Result     `json:"merge"`
	Staged    int64             `json:"staged,omitempty"`
	Unmatched int               `json:"unmatched,omitempty"`
	Error     string            `json:"error,omitempty"`

	stageErr error
}

// Report summarises a full run.
type Report struct {
	RunID    string               `json:"run_id"`
	Trigger  string               `json:"trigger"`
	Status   models.SyncStatus    `json:"status"`
	Started  time.Time            `json:"started_at"`
	Finished time.Time            `json:"finished_at"`
	Sources  []SourceReport       `json:"sources"`
	Rollup   rollup.Result        `json:"rollup"`
	Snapshot planning.BuildResult `json:"snapshot"`
}

// Run executes every phase. It returns ErrRunInProgress when another run
// holds the lock and an error when a systemic failure aborted the run.
func (r *Runner) Run(ctx context.Context, trigger string) (Report, error) {
	rep := Report{RunID: uuid.NewString(), Trigger: trigger, Started: r.now()}
	release, err := r.acquire(ctx)
	if err != nil {
		r.skipped(ctx, &rep, err)
		return rep, err
	}
	defer release()
	err = r.execute(ctx, &rep)
	return rep, err
}

// Start takes the lock and runs in the background. The returned run id
// can be looked up in the run history.
func (r *Runner) Start(trigger string) (string, error) {
	rep := Report{RunID: uuid.NewString(), Trigger: trigger, Started: r.now()}
	release, err := r.acquire(context.Background())
	if err != nil {
		r.skipped(context.Background(), &rep, err)
		return "", err
	}
	go func() {
		defer release()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.LockTTL)
		defer cancel()
		_ = r.execute(ctx, &rep)
	}()
	return rep.RunID, nil
}

func (r *Runner) skipped(ctx context.Context, rep *Report, err error) {
	rep.Status = models.SyncSkipped
	rep.Finished = r.now()
	r.record(ctx, audit.RunEntry{RunID: rep.RunID, Phase: models.PhaseRun, Trigger: rep.Trigger,
		Status: rep.Status, Err: err, Started: rep.Started, Finished: rep.Finished})
}

func (r *Runner) execute(ctx context.Context, rep *Report) error {
	log := r.log.With("run_id", rep.RunID, "trigger", rep.Trigger)
	log.Info("pipeline run started", "sources", len(r.opts.Order))
	runErr := r.run(ctx, log, rep)

	rep.Finished = r.now()
	switch {
	case runErr != nil:
		rep.Status = models.SyncFailed
	case rep.partial():
		rep.Status = models.SyncPartial
	default:
		rep.Status = models.SyncSucceeded
	}
	if runErr == nil {
		metrics.LastSuccess.Set(float64(rep.Finished.Unix()))
	}
	metrics.ObserveRun(string(models.PhaseRun), string(rep.Status), rep.Started)
	r.record(ctx, audit.RunEntry{RunID: rep.RunID, Phase: models.PhaseRun, Trigger: rep.Trigger,
		Status: rep.Status, Err: runErr, Detail: rep, Started: rep.Started, Finished: rep.Finished})

	if runErr != nil {
		log.Error("pipeline run failed", "error", runErr)
	} else {
		log.Info("pipeline run finished", "status", rep.Status, "duration", rep.Finished.Sub(rep.Started).String())
	}
	return runErr
}

func (r *Runner) run(ctx context.Context, log *logger.Logger, rep *Report) error {
	if err := r.opts.Ping(ctx); err != nil {
		log.Error("database unreachable, run aborted", "error", err)
		return fmt.Errorf("ping database: %w", err)
	}

	for _, name := range r.opts.Order {
		sr, err := r.runSource(ctx, rep.RunID, rep.Trigger, name)
		rep.Sources = append(rep.Sources, sr)
		if err != nil {
			return err
		}
	}

	started := r.now()
	res, err := r.opts.Rollup.Run(ctx, "")
	rep.Rollup = res
	if err == nil {
		err = res.Systemic
	}
	r.record(ctx, audit.RunEntry{RunID: rep.RunID, Phase: models.PhaseRollup, Trigger: rep.Trigger,
		Status: phaseStatus(err, res.Failed), Updated: res.Processed, Failed: res.Failed, Err: err,
		Started: started, Finished: r.now()})
	if err != nil {
		return fmt.Errorf("rollup: %w", err)
	}

	snap, err := r.buildSnapshot(ctx, rep.RunID, rep.Trigger, r.Today(), "")
	rep.Snapshot = snap
	return err
}

func (rep Report) partial() bool {
	for _, s := range rep.Sources {
		if s.Status != models.SyncSucceeded {
			return true
		}
	}
	return rep.Rollup.Failed > 0 || rep.Snapshot.Failed > 0
}

// RunSource reads and merges a single source outside a full run.
func (r *Runner) RunSource(ctx context.Context, name, trigger string) (SourceReport, error) {
	if _, ok := r.opts.Policies[name]; !ok {
		return SourceReport{Name: name}, fmt.Errorf("%w: %s", source.ErrUnknownSource, name)
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return SourceReport{Name: name, Status: models.SyncSkipped}, err
	}
	defer release()
	return r.runSource(ctx, uuid.NewString(), trigger, name)
}

// Ingest merges patches that did not come from a registered reader, such
// as an uploaded spreadsheet, under the merge policy of source name.
func (r *Runner) Ingest(ctx context.Context, name, trigger string, patches []facts.Patch) (SourceReport, error) {
	policy, ok := r.opts.Policies[name]
	if !ok {
		return SourceReport{Name: name}, fmt.Errorf("%w: %s", source.ErrUnknownSource, name)
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return SourceReport{Name: name, Status: models.SyncSkipped}, err
	}
	defer release()
	return r.merge(ctx, uuid.NewString(), trigger, name, policy, patches, r.now())
}

// BuildSnapshot rebuilds the snapshot of one date, optionally for one EAN.
func (r *Runner) BuildSnapshot(ctx context.Context, date time.Time, ean, trigger string) (planning.BuildResult, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return planning.BuildResult{}, err
	}
	defer release()
	return r.buildSnapshot(ctx, uuid.NewString(), trigger, date, ean)
}

// Today is the current date in the configured time zone.
func (r *Runner) Today() time.Time {
	return store.DateOnly(r.now().In(r.opts.Location))
}

func (r *Runner) acquire(ctx context.Context) (func(), error) {
	release, err := r.opts.Lock.Acquire(ctx, lockKey, r.opts.LockTTL)
	if errors.Is(err, runlock.ErrLocked) {
		r.log.Warn("run skipped, lock held")
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	return release, nil
}

// runSource returns an error only for systemic failures; everything else
// is reported and the run moves on.
func (r *Runner) runSource(ctx context.Context, runID, trigger, name string) (SourceReport, error) {
	sr := SourceReport{Name: name}
	started := r.now()
	log := r.log.With("run_id", runID, "source", name)

	policy, ok := r.opts.Policies[name]
	if !ok {
		sr.Status = models.SyncFailed
		sr.Error = "no merge policy"
		log.Error("source has no merge policy")
		return sr, nil
	}

	var (
		patches  []facts.Patch
		fetchErr error
	)
	if name == source.B2BOrders {
		patches, fetchErr = r.fetchOrders(ctx, runID, trigger, &sr)
		if sr.stageErr != nil && store.IsSystemic(sr.stageErr) {
			sr.Status = models.SyncFailed
			sr.Error = sr.stageErr.Error()
			return sr, fmt.Errorf("stage upcoming stock: %w", sr.stageErr)
		}
	} else {
		patches, fetchErr = r.fetch(ctx, name, &sr)
	}
	if fetchErr != nil {
		sr.Status = models.SyncFailed
		sr.Error = fetchErr.Error()
		metrics.SourceFetchFailures.WithLabelValues(name).Inc()
		log.Error("source fetch failed, skipped for this run", "error", fetchErr)
		r.record(ctx, audit.RunEntry{RunID: runID, Phase: models.PhaseSource, Source: name, Trigger: trigger,
			Status: sr.Status, Err: fetchErr, Started: started, Finished: r.now()})
		metrics.ObserveRun(string(models.PhaseSource), string(sr.Status), started)
		return sr, nil
	}

	sr.Fetched = len(patches)
	out, err := r.merge(ctx, runID, trigger, name, policy, patches, started)
	out.Staged, out.Unmatched = sr.Staged, sr.Unmatched
	return out, err
}

func (r *Runner) merge(ctx context.Context, runID, trigger, name string, policy merger.Policy, patches []facts.Patch, started time.Time) (SourceReport, error) {
	sr := SourceReport{Name: name, Fetched: len(patches)}
	sr.Merge = r.opts.Merger.Merge(ctx, name, policy, patches)
	sr.Status = phaseStatus(sr.Merge.Systemic, sr.Merge.Failed)
	entry := audit.RunEntry{RunID: runID, Phase: models.PhaseSource, Source: name, Trigger: trigger,
		Status: sr.Status, Fetched: sr.Fetched, Updated: sr.Merge.Updated, Forked: sr.Merge.Forked,
		Inserted: sr.Merge.Inserted, Skipped: sr.Merge.Skipped, Failed: sr.Merge.Failed,
		Err: sr.Merge.Systemic, Started: started, Finished: r.now()}
	if sr.Unmatched > 0 {
		entry.Detail = map[string]int{"unmatched_flow_rows": sr.Unmatched}
	}
	r.record(ctx, entry)
	metrics.ObserveRun(string(models.PhaseSource), string(sr.Status), started)

	if sr.Merge.Systemic != nil {
		sr.Error = sr.Merge.Systemic.Error()
		return sr, fmt.Errorf("merge %s: %w", name, sr.Merge.Systemic)
	}
	return sr, nil
}

func (r *Runner) fetch(ctx context.Context, name string, sr *SourceReport) ([]facts.Patch, error) {
	src, err := r.opts.Sources.Get(name)
	if err != nil {
		return nil, err
	}
	patches, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	sr.Fetched = len(patches)
	return patches, nil
}

// fetchOrders stages the order rows as upcoming stock and folds them
// through the flow rules. A staging failure is kept on sr; the flow merge
// still runs unless the caller finds it systemic.
func (r *Runner) fetchOrders(ctx context.Context, runID, trigger string, sr *SourceReport) ([]facts.Patch, error) {
	if r.opts.Orders == nil {
		return nil, fmt.Errorf("%w: %s", source.ErrUnknownSource, source.B2BOrders)
	}
	batch, err := r.opts.Orders.Read(ctx)
	if err != nil {
		return nil, err
	}
	sr.Fetched = len(batch.Lines)

	started := r.now()
	staged, stageErr := r.opts.Upcoming.Ingest(ctx, batch.Upcoming)
	sr.Staged = staged
	sr.stageErr = stageErr
	if stageErr != nil {
		r.log.Error("upcoming stock staging failed", "run_id", runID, "error", stageErr)
	}
	r.record(ctx, audit.RunEntry{RunID: runID, Phase: models.PhaseUpcoming, Source: source.B2BOrders, Trigger: trigger,
		Status: phaseStatus(stageErr, 0), Fetched: len(batch.Upcoming), Inserted: int(staged),
		Skipped: len(batch.Upcoming) - int(staged), Err: stageErr, Started: started, Finished: r.now()})

	patches, summary := batch.Patches(r.opts.Rules)
	sr.Unmatched = summary.Unmatched
	return patches, nil
}

func (r *Runner) buildSnapshot(ctx context.Context, runID, trigger string, date time.Time, ean string) (planning.BuildResult, error) {
	started := r.now()
	res, err := r.opts.Engine.BuildDailySnapshot(ctx, date, ean)
	if err == nil {
		err = res.Systemic
	}
	status := phaseStatus(err, res.Failed)
	r.record(ctx, audit.RunEntry{RunID: runID, Phase: models.PhaseSnapshot, Trigger: trigger,
		Status: status, Updated: res.Processed, Failed: res.Failed, Err: err,
		Detail:  map[string]string{"date": res.Date.Format("2006-01-02"), "ean": ean},
		Started: started, Finished: r.now()})
	metrics.ObserveRun(string(models.PhaseSnapshot), string(status), started)

	if res.Processed > 0 {
		if cerr := r.opts.Cache.Invalidate(ctx); cerr != nil {
			r.log.Warn("report cache not invalidated", "error", cerr)
		}
	}
	if err != nil {
		return res, fmt.Errorf("snapshot: %w", err)
	}
	return res, nil
}

func (r *Runner) record(ctx context.Context, e audit.RunEntry) {
	if r.opts.Audit == nil {
		return
	}
	// the recorder logs its own failures
	_ = r.opts.Audit.Record(ctx, e)
}

func phaseStatus(err error, failed int) models.SyncStatus {
	switch {
	case err != nil:
		return models.SyncFailed
	case failed > 0:
		return models.SyncPartial
	default:
		return models.SyncSucceeded
	}
}
