package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

func TestParseCatalog_ReadsRowsInOrder(t *testing.T) {
	t.Parallel()

	input := "name,sku,price,category,image_url\n" +
		"Camiseta,SKU-1,49.90,Vestuario,https://cdn.example.com/1.jpg\n" +
		"Caneca,SKU-2,19.90,,\n"

	rows, err := ParseCatalog(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, 1, rows[0].Number)
	require.Equal(t, "Camiseta", rows[0].Name)
	require.Equal(t, "SKU-1", rows[0].SKU)
	require.Equal(t, "49.90", rows[0].Price)
	require.Equal(t, "Vestuario", rows[0].Category)
	require.Equal(t, "https://cdn.example.com/1.jpg", rows[0].ImageURL)

	require.Equal(t, 2, rows[1].Number)
	require.Equal(t, "Caneca", rows[1].Name)
	require.Empty(t, rows[1].Category)
}

func TestParseCatalog_HeaderIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	rows, err := ParseCatalog(strings.NewReader("Name,SKU,Price\nCamiseta,SKU-1,10\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Camiseta", rows[0].Name)
	require.Equal(t, "SKU-1", rows[0].SKU)
}

func TestParseCatalog_ShortRowsGetEmptyFields(t *testing.T) {
	t.Parallel()

	rows, err := ParseCatalog(strings.NewReader("name,sku,price\nCamiseta\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Camiseta", rows[0].Name)
	require.Empty(t, rows[0].SKU)
	require.Empty(t, rows[0].Price)
}

func TestParseCatalog_RejectsEmptyFile(t *testing.T) {
	t.Parallel()

	_, err := ParseCatalog(strings.NewReader(""))
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty file")
}

func TestParseCatalog_RejectsMissingNameColumn(t *testing.T) {
	t.Parallel()

	_, err := ParseCatalog(strings.NewReader("sku,price\nSKU-1,10\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), `missing required column "name"`)
}

func TestParseCatalog_TemplateParses(t *testing.T) {
	t.Parallel()

	rows, err := ParseCatalog(strings.NewReader(TemplateCSV))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	log := ProcessRow(rows[0], model.ImportConfig{}, map[string]bool{})
	require.Equal(t, model.RowSuccess, log.Status)
}

func TestProcessRow_ValidRowSucceeds(t *testing.T) {
	t.Parallel()

	row := CatalogRow{Number: 3, Name: "Camiseta", SKU: "SKU-1", Price: "49.90"}
	log := ProcessRow(row, model.ImportConfig{}, map[string]bool{})

	require.Equal(t, model.RowSuccess, log.Status)
	require.Equal(t, 3, log.RowNumber)
	require.Equal(t, "Camiseta", log.ProductName)
	require.Equal(t, "SKU-1", log.SKU)
	require.False(t, log.Timestamp.IsZero())
}

func TestProcessRow_MissingNameFails(t *testing.T) {
	t.Parallel()

	log := ProcessRow(CatalogRow{Number: 1, Price: "10"}, model.ImportConfig{}, map[string]bool{})
	require.Equal(t, model.RowError, log.Status)
	require.Contains(t, log.Message, "name is required")
}

func TestProcessRow_PriceRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		price  string
		status model.RowStatus
	}{
		{"missing", "", model.RowError},
		{"not a number", "caro", model.RowError},
		{"negative", "-5", model.RowError},
		{"decimal comma", "49,90", model.RowSuccess},
		{"plain", "49.90", model.RowSuccess},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			row := CatalogRow{Number: 1, Name: "Camiseta", SKU: "SKU-1", Price: tc.price}
			log := ProcessRow(row, model.ImportConfig{}, map[string]bool{})
			require.Equal(t, tc.status, log.Status)
		})
	}
}

func TestProcessRow_DuplicateSKUIsAWarning(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	first := ProcessRow(CatalogRow{Number: 1, Name: "Camiseta", SKU: "SKU-1", Price: "10"}, model.ImportConfig{}, seen)
	require.Equal(t, model.RowSuccess, first.Status)

	second := ProcessRow(CatalogRow{Number: 2, Name: "Camiseta G", SKU: "SKU-1", Price: "12"}, model.ImportConfig{}, seen)
	require.Equal(t, model.RowWarning, second.Status)
	require.Contains(t, second.Message, "duplicate SKU")
}

func TestProcessRow_DuplicateSKUUpdatesWhenConfigured(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{"SKU-1": true}
	cfg := model.ImportConfig{UpdateExisting: true}

	log := ProcessRow(CatalogRow{Number: 2, Name: "Camiseta G", SKU: "SKU-1", Price: "12"}, cfg, seen)
	require.Equal(t, model.RowSuccess, log.Status)
	require.Equal(t, "updated existing product", log.Message)
}

func TestProcessRow_MissingSKUIsAWarning(t *testing.T) {
	t.Parallel()

	log := ProcessRow(CatalogRow{Number: 1, Name: "Camiseta", Price: "10"}, model.ImportConfig{}, map[string]bool{})
	require.Equal(t, model.RowWarning, log.Status)
	require.Contains(t, log.Message, "missing SKU")
}

func TestProcessRow_StrictValidationEscalatesWarnings(t *testing.T) {
	t.Parallel()

	cfg := model.ImportConfig{StrictValidation: true}
	log := ProcessRow(CatalogRow{Number: 1, Name: "Camiseta", Price: "10"}, cfg, map[string]bool{})
	require.Equal(t, model.RowError, log.Status)
	require.Contains(t, log.Message, "missing SKU")
}

func TestProcessRow_RelativeImageURL(t *testing.T) {
	t.Parallel()

	row := CatalogRow{Number: 1, Name: "Camiseta", SKU: "SKU-1", Price: "10", ImageURL: "images/1.jpg"}

	// Without image upload the URL is ignored
	log := ProcessRow(row, model.ImportConfig{}, map[string]bool{})
	require.Equal(t, model.RowSuccess, log.Status)

	log = ProcessRow(row, model.ImportConfig{UploadImages: true}, map[string]bool{})
	require.Equal(t, model.RowWarning, log.Status)
	require.Contains(t, log.Message, "not absolute")
}

func TestSplitIntoBatches(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7}

	batches := SplitIntoBatches(items, 3)
	require.Len(t, batches, 3)
	require.Equal(t, []int{1, 2, 3}, batches[0])
	require.Equal(t, []int{4, 5, 6}, batches[1])
	require.Equal(t, []int{7}, batches[2])

	require.Len(t, SplitIntoBatches([]int{}, 3), 0)
	require.Len(t, SplitIntoBatches(items, 100), 1)
}
