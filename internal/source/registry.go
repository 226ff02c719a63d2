package source

import (
	"fmt"
	"sort"
	"time"

	"invplan-backend/internal/logger"

	"gorm.io/gorm"
)

// Registry holds the readers for one operations database.
type Registry struct {
	sources map[string]Source
	orders  *OrderReader
}

// NewRegistry wires a SQL reader per definition. When inventoryXLSX is set
// inventory details are read from that workbook instead.
func NewRegistry(db *gorm.DB, loc *time.Location, inventoryXLSX string, baseLog *logger.Logger) *Registry {
	r := &Registry{
		sources: make(map[string]Source),
		orders:  NewOrderReader(db, loc, baseLog),
	}
	for _, def := range Definitions() {
		if def.Name == InventoryDetails && inventoryXLSX != "" {
			r.sources[def.Name] = NewXLSXReader(def, inventoryXLSX, baseLog)
			continue
		}
		r.sources[def.Name] = NewSQLReader(def, db, loc, baseLog)
	}
	return r
}

// Register adds or replaces a reader.
func (r *Registry) Register(s Source) {
	r.sources[s.Name()] = s
}

func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return s, nil
}

func (r *Registry) Orders() *OrderReader { return r.orders }

// Names lists every known feed, b2b_orders included.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.sources)+1)
	for name := range r.sources {
		out = append(out, name)
	}
	out = append(out, B2BOrders)
	sort.Strings(out)
	return out
}
