package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"gorm.io/gorm"
)

// FactRepo reads and writes versions of the wide SKU fact record. Lookups
// that find nothing return nil, not an error.
type FactRepo interface {
	// LatestSince returns the newest version created at or after since.
	LatestSince(ctx context.Context, ean string, since time.Time) (*models.SKUFact, error)
	// Latest returns the newest version regardless of age.
	Latest(ctx context.Context, ean string) (*models.SKUFact, error)
	// UpdateColumns writes only the named columns of row, matched by id.
	UpdateColumns(ctx context.Context, row *models.SKUFact, columns []string) error
	Insert(ctx context.Context, row *models.SKUFact) error
	// History returns versions created at or after since, oldest first.
	History(ctx context.Context, ean string, since time.Time) ([]models.SKUFact, error)
	// LatestPerEAN returns the newest version of every EAN, or of one EAN
	// when ean is not empty.
	LatestPerEAN(ctx context.Context, ean string) ([]models.SKUFact, error)
	SearchLatest(ctx context.Context, q FactQuery) ([]models.SKUFact, int64, error)
}

type FactQuery struct {
	Search string
	Brand  string
	Page   int
	Limit  int
}

type factRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFactRepo(db *gorm.DB, baseLog *logger.Logger) FactRepo {
	return &factRepo{db: db, log: baseLog.With("repo", "FactRepo")}
}

func (r *factRepo) first(ctx context.Context, q *gorm.DB) (*models.SKUFact, error) {
	var row models.SKUFact
	err := q.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *factRepo) LatestSince(ctx context.Context, ean string, since time.Time) (*models.SKUFact, error) {
	return r.first(ctx, r.db.Where("ean_code = ? AND created_at >= ?", ean, since.UTC()))
}

func (r *factRepo) Latest(ctx context.Context, ean string) (*models.SKUFact, error) {
	return r.first(ctx, r.db.Where("ean_code = ?", ean))
}

func (r *factRepo) UpdateColumns(ctx context.Context, row *models.SKUFact, columns []string) error {
	if row.ID == 0 {
		return fmt.Errorf("update fact %s: missing id", row.EANCode)
	}
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(row).
		Select(columns).
		Updates(row).Error
}

func (r *factRepo) Insert(ctx context.Context, row *models.SKUFact) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *factRepo) History(ctx context.Context, ean string, since time.Time) ([]models.SKUFact, error) {
	var rows []models.SKUFact
	err := r.db.WithContext(ctx).
		Where("ean_code = ? AND created_at >= ?", ean, since.UTC()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// latestIDs selects the id of the newest version of each EAN. The
// correlated form runs unchanged on postgres, mysql and sqlite.
func (r *factRepo) latestIDs() *gorm.DB {
	return r.db.Table("sku_inventory_report AS f").
		Select("f.id").
		Where(`f.id = (SELECT f2.id FROM sku_inventory_report f2
			WHERE f2.ean_code = f.ean_code
			ORDER BY f2.created_at DESC, f2.id DESC LIMIT 1)`)
}

func (r *factRepo) LatestPerEAN(ctx context.Context, ean string) ([]models.SKUFact, error) {
	q := r.db.WithContext(ctx).Where("id IN (?)", r.latestIDs())
	if ean != "" {
		q = q.Where("ean_code = ?", ean)
	}
	var rows []models.SKUFact
	if err := q.Order("ean_code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *factRepo) SearchLatest(ctx context.Context, q FactQuery) ([]models.SKUFact, int64, error) {
	page, limit := Paging(q.Page, q.Limit)

	dbq := r.db.WithContext(ctx).Model(&models.SKUFact{}).Where("id IN (?)", r.latestIDs())
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		dbq = dbq.Where("LOWER(ean_code) LIKE ? OR LOWER(product_title) LIKE ? OR LOWER(gb_sku) LIKE ?", like, like, like)
	}
	if b := strings.TrimSpace(q.Brand); b != "" {
		dbq = dbq.Where("brand = ?", b)
	}

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SKUFact
	if err := dbq.Order("ean_code ASC").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Paging clamps page and limit to sane values.
func Paging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 15
	}
	if limit > 500 {
		limit = 500
	}
	return page, limit
}
