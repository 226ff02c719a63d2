package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/logger"

	"github.com/xuri/excelize/v2"
)

// XLSXReader feeds a definition from a spreadsheet export instead of the
// operations database. The first row holding an "ean" header starts the
// table; headers are normalized the same way as database columns.
type XLSXReader struct {
	def  Definition
	path string
	log  *logger.Logger
}

func NewXLSXReader(def Definition, path string, baseLog *logger.Logger) *XLSXReader {
	return &XLSXReader{
		def:  def,
		path: path,
		log:  baseLog.With("source", def.Name, "file", path),
	}
}

func (r *XLSXReader) Name() string { return r.def.Name }

func (r *XLSXReader) Fetch(ctx context.Context) ([]facts.Patch, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("%s: open workbook: %w", r.def.Name, err)
	}
	defer f.Close()
	return ReadWorkbook(ctx, r.def, f, r.log)
}

// ReadWorkbook parses the first sheet of an .xlsx stream into patches.
func ReadWorkbook(ctx context.Context, def Definition, rd io.Reader, log *logger.Logger) ([]facts.Patch, error) {
	book, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, fmt.Errorf("%s: parse workbook: %w", def.Name, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", def.Name)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %q: %w", def.Name, sheets[0], err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	headerAt := -1
	for i, row := range rows {
		if hasEANHeader(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("%s: no header row with an ean column", def.Name)
	}

	header := make([]string, len(rows[headerAt]))
	for i, h := range rows[headerAt] {
		header[i] = NormalizeKey(h)
	}

	records := make([]map[string]any, 0, len(rows)-headerAt-1)
	for _, row := range rows[headerAt+1:] {
		if len(row) == 0 {
			continue
		}
		rec := make(map[string]any, len(header))
		for i, key := range header {
			if key == "" || i >= len(row) {
				continue
			}
			rec[key] = row[i]
		}
		records = append(records, rec)
	}
	return toPatches(def, records, log), nil
}

func hasEANHeader(row []string) bool {
	for _, cell := range row {
		switch NormalizeKey(cell) {
		case "ean", "ean_code":
			return true
		}
	}
	return false
}

// IsWorkbookName reports whether a file name looks like an .xlsx upload.
func IsWorkbookName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}
