package orchestrator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"
)

// CatalogRow is one parsed spreadsheet line. Only structural fields are
// interpreted here; the product schema itself is owned by the catalog
// service that consumes the import.
type CatalogRow struct {
	Number   int // 1-based spreadsheet row, excluding the header
	Name     string
	SKU      string
	Price    string
	Category string
	ImageURL string
}

// TemplateCSV is the spreadsheet operators download before filling in their
// catalog.
const TemplateCSV = "name,sku,price,category,image_url\n" +
	"Camiseta Basica,SKU-001,49.90,Vestuario,https://example.com/camiseta.jpg\n"

var templateColumns = []string{"name", "sku", "price", "category", "image_url"}

// ParseCatalog reads the uploaded spreadsheet and returns its rows. A
// missing or malformed header fails the whole file; per-row problems are
// deferred to row processing so one bad line never aborts the batch.
func ParseCatalog(r io.Reader) ([]CatalogRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("unreadable header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "name")
	}

	field := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []CatalogRow
	for number := 1; ; number++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unreadable row %d: %w", number, err)
		}

		rows = append(rows, CatalogRow{
			Number:   number,
			Name:     field(record, "name"),
			SKU:      field(record, "sku"),
			Price:    field(record, "price"),
			Category: field(record, "category"),
			ImageURL: field(record, "image_url"),
		})
	}

	return rows, nil
}

// ProcessRow validates one catalog row and produces its outcome log. Row
// failures are data, never errors: the caller keeps going regardless of the
// returned status.
func ProcessRow(row CatalogRow, cfg model.ImportConfig, seenSKUs map[string]bool) model.ImportLog {
	entry := model.ImportLog{
		RowNumber:   row.Number,
		ProductName: row.Name,
		SKU:         row.SKU,
		Status:      model.RowSuccess,
		Message:     "imported",
		Timestamp:   time.Now(),
	}

	fail := func(msg string) model.ImportLog {
		entry.Status = model.RowError
		entry.Message = msg
		return entry
	}

	warn := func(msg string) model.ImportLog {
		// Strict validation escalates warnings to row errors
		if cfg.StrictValidation {
			return fail(msg)
		}
		entry.Status = model.RowWarning
		entry.Message = msg
		return entry
	}

	if row.Name == "" {
		return fail("product name is required")
	}

	if row.Price == "" {
		return fail("price is required")
	}
	if price, err := strconv.ParseFloat(strings.ReplaceAll(row.Price, ",", "."), 64); err != nil || price < 0 {
		return fail(fmt.Sprintf("invalid price %q", row.Price))
	}

	if row.SKU != "" {
		if seenSKUs[row.SKU] {
			if cfg.UpdateExisting {
				entry.Message = "updated existing product"
			} else {
				return warn(fmt.Sprintf("duplicate SKU %q, row skipped", row.SKU))
			}
		}
		seenSKUs[row.SKU] = true
	} else {
		return warn("missing SKU, product created without one")
	}

	if row.Category == "" && cfg.CreateCategories {
		return warn("no category given, default category kept")
	}

	if row.ImageURL != "" && cfg.UploadImages {
		if !strings.HasPrefix(row.ImageURL, "http://") && !strings.HasPrefix(row.ImageURL, "https://") {
			return warn(fmt.Sprintf("image URL %q is not absolute, image skipped", row.ImageURL))
		}
	}

	return entry
}
