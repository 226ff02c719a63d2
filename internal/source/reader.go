// Package source reads the upstream operational feeds and turns each row
// into a fact patch owned by that feed.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"gorm.io/gorm"
)

var ErrUnknownSource = errors.New("unknown source")

// Source produces the patches of one feed for the current run.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]facts.Patch, error)
}

// SQLReader runs a definition's query against the operations database.
type SQLReader struct {
	def Definition
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
	log *logger.Logger
}

func NewSQLReader(def Definition, db *gorm.DB, loc *time.Location, baseLog *logger.Logger) *SQLReader {
	if loc == nil {
		loc = time.UTC
	}
	return &SQLReader{
		def: def,
		db:  db,
		loc: loc,
		now: time.Now,
		log: baseLog.With("source", def.Name),
	}
}

// WithClock replaces the clock used for the daily bounds.
func (r *SQLReader) WithClock(now func() time.Time) *SQLReader {
	r.now = now
	return r
}

func (r *SQLReader) Name() string { return r.def.Name }

func (r *SQLReader) Fetch(ctx context.Context) ([]facts.Patch, error) {
	var args []any
	if r.def.Daily {
		start, end := DayBounds(r.now(), r.loc)
		args = append(args, start, end)
	}

	var rows []map[string]any
	if err := r.db.WithContext(ctx).Raw(r.def.Query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: read: %w", r.def.Name, err)
	}

	patches := toPatches(r.def, rows, r.log)
	r.log.Debug("source read", "rows", len(rows), "patches", len(patches))
	return patches, nil
}

// DayBounds returns local midnight of t's day and of the next day.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func toPatches(def Definition, rows []map[string]any, log *logger.Logger) []facts.Patch {
	out := make([]facts.Patch, 0, len(rows))
	skipped := 0
	for _, raw := range rows {
		rec := normalizeRecord(raw)
		ean := rec.EAN()
		if ean == "" {
			skipped++
			continue
		}
		out = append(out, facts.Patch{
			Source:  def.Name,
			EAN:     ean,
			Columns: def.Columns,
			Apply:   func(f *models.SKUFact) { def.Apply(rec, f) },
		})
	}
	if skipped > 0 {
		log.Warn("rows without ean skipped", "count", skipped)
	}
	return out
}
