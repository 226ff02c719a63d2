// Package facts describes writes into the wide SKU fact record and the
// roll-up arithmetic shared by every writer.
package facts

import (
	"strings"

	"invplan-backend/internal/models"
)

// Patch is one source's contribution for one EAN: the columns it owns and
// a function that sets them on a fact row.
type Patch struct {
	Source  string
	EAN     string
	Columns []string
	Apply   func(*models.SKUFact)
}

// NormalizeEAN trims whitespace and a trailing ".0" that numeric
// spreadsheet cells tend to add.
func NormalizeEAN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	return s
}

// Valid reports whether the patch can be merged.
func (p Patch) Valid() bool {
	return p.EAN != "" && len(p.Columns) > 0 && p.Apply != nil
}

// NewRow returns a fresh fact row for an EAN with every metric zeroed.
func NewRow(ean string) *models.SKUFact {
	return &models.SKUFact{EANCode: ean}
}

// Fork copies prev into a new unsaved version. Descriptors and metrics are
// carried over verbatim; the caller overwrites the columns it owns.
func Fork(prev *models.SKUFact) *models.SKUFact {
	next := *prev
	next.ID = 0
	return &next
}
