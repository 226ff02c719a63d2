// Package merger reconciles per-source patches into the wide fact table:
// update the current version, fork a new one, originate, or skip.
package merger

import (
	"context"
	"fmt"
	"time"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/metrics"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store"
)

type Outcome string

const (
	Updated  Outcome = "updated"
	Forked   Outcome = "forked"
	Inserted Outcome = "inserted"
	Skipped  Outcome = "skipped"
	Failed   Outcome = "failed"
)

// Result counts merge outcomes for one batch.
type Result struct {
	Source   string `json:"source"`
	Updated  int    `json:"updated"`
	Forked   int    `json:"forked"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	// Systemic is set when the batch stopped because the store became
	// unreachable.
	Systemic error `json:"-"`
}

func (r Result) Total() int {
	return r.Updated + r.Forked + r.Inserted + r.Skipped + r.Failed
}

func (r *Result) add(o Outcome) {
	switch o {
	case Updated:
		r.Updated++
	case Forked:
		r.Forked++
	case Inserted:
		r.Inserted++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
	}
}

type Merger struct {
	facts store.FactRepo
	log   *logger.Logger
	loc   *time.Location
	now   func() time.Time
}

func New(facts store.FactRepo, loc *time.Location, baseLog *logger.Logger) *Merger {
	if loc == nil {
		loc = time.UTC
	}
	return &Merger{
		facts: facts,
		log:   baseLog.With("component", "Merger"),
		loc:   loc,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Tests only.
func (m *Merger) WithClock(now func() time.Time) *Merger {
	m.now = now
	return m
}

// Merge applies every patch of one source. A failing EAN is logged and
// counted; the batch continues unless the store itself is unreachable.
func (m *Merger) Merge(ctx context.Context, source string, policy Policy, patches []facts.Patch) Result {
	res := Result{Source: source}
	since := policy.Window.Since(m.now(), m.loc)

	for _, p := range patches {
		if err := ctx.Err(); err != nil {
			res.Systemic = err
			break
		}
		if !p.Valid() {
			res.add(Skipped)
			metrics.MergeRows.WithLabelValues(source, string(Skipped)).Inc()
			continue
		}

		outcome, err := m.mergeOne(ctx, since, policy, p)
		if err != nil {
			outcome = Failed
			m.log.Warn("merge failed", "source", source, "ean", p.EAN, "error", err)
			if store.IsSystemic(err) {
				res.add(outcome)
				metrics.MergeRows.WithLabelValues(source, string(outcome)).Inc()
				res.Systemic = err
				break
			}
		}
		res.add(outcome)
		metrics.MergeRows.WithLabelValues(source, string(outcome)).Inc()
	}

	m.log.Info("merge finished",
		"source", source,
		"window", policy.Window.String(),
		"updated", res.Updated,
		"forked", res.Forked,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res
}

func (m *Merger) mergeOne(ctx context.Context, since time.Time, policy Policy, p facts.Patch) (Outcome, error) {
	current, err := m.facts.LatestSince(ctx, p.EAN, since)
	if err != nil {
		return Failed, fmt.Errorf("load current %s: %w", p.EAN, err)
	}
	if current != nil {
		p.Apply(current)
		facts.Recompute(current)
		if err := m.facts.UpdateColumns(ctx, current, facts.WithTotals(p.Columns)); err != nil {
			return Failed, fmt.Errorf("update %s: %w", p.EAN, err)
		}
		return Updated, nil
	}

	latest, err := m.facts.Latest(ctx, p.EAN)
	if err != nil {
		return Failed, fmt.Errorf("load latest %s: %w", p.EAN, err)
	}

	var row *models.SKUFact
	outcome := Forked
	if latest == nil {
		if !policy.Originate {
			return Skipped, nil
		}
		row = facts.NewRow(p.EAN)
		outcome = Inserted
	} else {
		row = facts.Fork(latest)
	}

	row.CreatedAt = m.now()
	p.Apply(row)
	row.EANCode = p.EAN
	facts.Recompute(row)
	if err := m.facts.Insert(ctx, row); err != nil {
		return Failed, fmt.Errorf("insert %s: %w", p.EAN, err)
	}
	return outcome, nil
}
