// Package memory provides in-process implementations of the store
// repositories for engine tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"invplan-backend/internal/models"
	"invplan-backend/internal/store"
)

type FactRepo struct {
	mu     sync.RWMutex
	rows   []models.SKUFact
	nextID uint

	// FailOn makes every write for the listed EANs return this error.
	FailOn map[string]error
}

func NewFactRepo() *FactRepo {
	return &FactRepo{nextID: 1}
}

// Rows returns a copy of every stored version.
func (r *FactRepo) Rows() []models.SKUFact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.SKUFact(nil), r.rows...)
}

// Versions returns the versions of one EAN, oldest first.
func (r *FactRepo) Versions(ean string) []models.SKUFact {
	var out []models.SKUFact
	for _, row := range r.Rows() {
		if row.EANCode == ean {
			out = append(out, row)
		}
	}
	sortAsc(out)
	return out
}

func sortAsc(rows []models.SKUFact) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}

func (r *FactRepo) newest(match func(models.SKUFact) bool) *models.SKUFact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *models.SKUFact
	for i := range r.rows {
		row := r.rows[i]
		if !match(row) {
			continue
		}
		if best == nil || row.CreatedAt.After(best.CreatedAt) ||
			(row.CreatedAt.Equal(best.CreatedAt) && row.ID > best.ID) {
			c := row
			best = &c
		}
	}
	return best
}

func (r *FactRepo) LatestSince(_ context.Context, ean string, since time.Time) (*models.SKUFact, error) {
	return r.newest(func(f models.SKUFact) bool {
		return f.EANCode == ean && !f.CreatedAt.Before(since)
	}), nil
}

func (r *FactRepo) Latest(_ context.Context, ean string) (*models.SKUFact, error) {
	return r.newest(func(f models.SKUFact) bool { return f.EANCode == ean }), nil
}

func (r *FactRepo) UpdateColumns(_ context.Context, row *models.SKUFact, columns []string) error {
	if err := r.FailOn[row.EANCode]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == row.ID {
			return copyColumns(&r.rows[i], row, columns)
		}
	}
	return fmt.Errorf("fact %d not found", row.ID)
}

var factColumns = columnIndex(reflect.TypeOf(models.SKUFact{}))

// columnIndex maps gorm column names to struct field paths, walking
// embedded structs.
func columnIndex(t reflect.Type) map[string][]int {
	out := map[string][]int{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			for col, path := range columnIndex(f.Type) {
				out[col] = append([]int{i}, path...)
			}
			continue
		}
		for _, part := range strings.Split(f.Tag.Get("gorm"), ";") {
			if strings.HasPrefix(part, "column:") {
				out[strings.TrimPrefix(part, "column:")] = f.Index
			}
		}
	}
	return out
}

func copyColumns(dst, src *models.SKUFact, columns []string) error {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	for _, col := range columns {
		path, ok := factColumns[col]
		if !ok {
			return fmt.Errorf("unknown column %q", col)
		}
		dv.FieldByIndex(path).Set(sv.FieldByIndex(path))
	}
	return nil
}

func (r *FactRepo) Insert(_ context.Context, row *models.SKUFact) error {
	if err := r.FailOn[row.EANCode]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	row.ID = r.nextID
	r.nextID++
	r.rows = append(r.rows, *row)
	return nil
}

func (r *FactRepo) History(_ context.Context, ean string, since time.Time) ([]models.SKUFact, error) {
	var out []models.SKUFact
	for _, row := range r.Versions(ean) {
		if !row.CreatedAt.Before(since) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *FactRepo) LatestPerEAN(ctx context.Context, ean string) ([]models.SKUFact, error) {
	seen := map[string]struct{}{}
	var eans []string
	for _, row := range r.Rows() {
		if ean != "" && row.EANCode != ean {
			continue
		}
		if _, ok := seen[row.EANCode]; !ok {
			seen[row.EANCode] = struct{}{}
			eans = append(eans, row.EANCode)
		}
	}
	sort.Strings(eans)
	out := make([]models.SKUFact, 0, len(eans))
	for _, e := range eans {
		latest, _ := r.Latest(ctx, e)
		out = append(out, *latest)
	}
	return out, nil
}

func (r *FactRepo) SearchLatest(ctx context.Context, q store.FactQuery) ([]models.SKUFact, int64, error) {
	all, _ := r.LatestPerEAN(ctx, "")
	var hits []models.SKUFact
	s := strings.ToLower(strings.TrimSpace(q.Search))
	for _, row := range all {
		if q.Brand != "" && row.Brand != q.Brand {
			continue
		}
		if s != "" && !strings.Contains(strings.ToLower(row.EANCode+" "+row.ProductTitle+" "+row.GBSKU), s) {
			continue
		}
		hits = append(hits, row)
	}
	page, limit := store.Paging(q.Page, q.Limit)
	start := (page - 1) * limit
	if start > len(hits) {
		start = len(hits)
	}
	end := start + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end], int64(len(hits)), nil
}

type snapshotKey struct {
	ean  string
	date time.Time
}

type SnapshotRepo struct {
	mu     sync.RWMutex
	rows   map[snapshotKey]models.PlanningSnapshot
	nextID uint

	FailOn map[string]error
}

func NewSnapshotRepo() *SnapshotRepo {
	return &SnapshotRepo{rows: map[snapshotKey]models.PlanningSnapshot{}, nextID: 1}
}

func (r *SnapshotRepo) Upsert(_ context.Context, snap *models.PlanningSnapshot) error {
	if err := r.FailOn[snap.EANCode]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snap.SnapshotDate = store.DateOnly(snap.SnapshotDate)
	key := snapshotKey{snap.EANCode, snap.SnapshotDate}
	if prev, ok := r.rows[key]; ok {
		snap.ID = prev.ID
		snap.CreatedAt = prev.CreatedAt
	} else {
		snap.ID = r.nextID
		r.nextID++
		snap.CreatedAt = time.Now().UTC()
	}
	r.rows[key] = *snap
	return nil
}

func (r *SnapshotRepo) Get(_ context.Context, ean string, date time.Time) (*models.PlanningSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.rows[snapshotKey{ean, store.DateOnly(date)}]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (r *SnapshotRepo) ListByDate(_ context.Context, date time.Time) ([]models.PlanningSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	day := store.DateOnly(date)
	var out []models.PlanningSnapshot
	for k, v := range r.rows {
		if k.date.Equal(day) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EANCode < out[j].EANCode })
	return out, nil
}

func (r *SnapshotRepo) LatestDate(_ context.Context) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest time.Time
	for k := range r.rows {
		if k.date.After(latest) {
			latest = k.date
		}
	}
	return latest, !latest.IsZero(), nil
}

type UpcomingRepo struct {
	mu   sync.RWMutex
	rows []models.UpcomingStock

	// FailIngest makes Ingest return this error.
	FailIngest error
}

func NewUpcomingRepo() *UpcomingRepo {
	return &UpcomingRepo{}
}

func (r *UpcomingRepo) Ingest(_ context.Context, rows []models.UpcomingStock) (int64, error) {
	if r.FailIngest != nil {
		return 0, r.FailIngest
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	for _, row := range r.rows {
		seen[row.EAN+"\x00"+row.SourceRecordID] = struct{}{}
	}
	var n int64
	for _, row := range rows {
		key := row.EAN + "\x00" + row.SourceRecordID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		row.BatchDate = store.DateOnly(row.BatchDate)
		r.rows = append(r.rows, row)
		n++
	}
	return n, nil
}

func (r *UpcomingRepo) Pending(_ context.Context, ean string) (store.Pending, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest time.Time
	for _, row := range r.rows {
		if row.EAN == ean && row.BatchDate.After(latest) {
			latest = row.BatchDate
		}
	}
	var batch []models.UpcomingStock
	for _, row := range r.rows {
		if row.EAN == ean && row.BatchDate.Equal(latest) {
			batch = append(batch, row)
		}
	}
	if len(batch) == 0 {
		return store.Pending{}, nil
	}
	return store.NetPending(batch), nil
}

var (
	_ store.FactRepo     = (*FactRepo)(nil)
	_ store.SnapshotRepo = (*SnapshotRepo)(nil)
	_ store.UpcomingRepo = (*UpcomingRepo)(nil)
)
