package xlsxexport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/httputil"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// workbook builds an issuer-style export: a cover sheet, then the holdings sheet
func workbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Disclosures"))
	require.NoError(t, f.SetSheetRow("Disclosures", "A1", &[]interface{}{"Not holdings"}))

	_, err := f.NewSheet("Daily Fund Holdings")
	require.NoError(t, err)

	grid := [][]interface{}{
		{"Capital Group Dividend Value ETF"},
		{"As of 01/20/2026"},
		{},
		{"Security Name", "Ticker", "CUSIP", "Shares", "Percent of Net Assets"},
		{"Microsoft Corp", "MSFT", "594918104", 1000, 0.0597},
		{"Broadcom Inc", "AVGO", "11135F101", 800, 0.0612},
		{"Cash & Equivalents", "-", "", "", 0.02},
		{"Philip Morris", "PM", "718172109", 500, "3.10%"},
		{"Delisted", "XYZ", "", 0, 0},
		{"Total Net Assets", "TOTAL", "", "", 1},
		{"RTX Corp", "RTX", "75513E101", 400, 0.045},
	}
	for i, row := range grid {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Daily Fund Holdings", cellName, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	rows, err := ParseWorkbook(workbook(t), "Daily Fund Holdings")
	require.NoError(t, err)

	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.Code
	}
	assert.Equal(t, []string{"AVGO", "MSFT", "RTX", "PM"}, codes, "sorted by weight, totals and empties dropped")

	assert.Equal(t, "Broadcom Inc", rows[0].Name)
	assert.True(t, rows[0].WeightPercent.Equal(decimal.RequireFromString("6.12")), "got %s", rows[0].WeightPercent)
	assert.True(t, rows[3].WeightPercent.Equal(decimal.RequireFromString("3.1")), "got %s", rows[3].WeightPercent)
}

func TestParseWorkbookFallsBackToFirstSheet(t *testing.T) {
	_, err := ParseWorkbook(workbook(t), "Monthly")
	assert.ErrorContains(t, err, "header row not found")
}

func TestParseWorkbookInvalid(t *testing.T) {
	_, err := ParseWorkbook([]byte("not a zip"), "")
	assert.Error(t, err)
}

func TestFindHeaderNameFallback(t *testing.T) {
	cols, ok := findHeader([][]string{{"Ticker", "Percent of Net Assets"}})
	require.True(t, ok)
	assert.Equal(t, 0, cols.name)
	assert.Equal(t, 1, cols.weight)
}

func TestAdapterFetch(t *testing.T) {
	data := workbook(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Write(data)
	}))
	defer server.Close()

	adapter, err := NewClient(logger.Nop()).Factory()(registry.SourceSpec{
		ID:     "capital",
		Params: map[string]string{"url": server.URL, "sheet": "Daily Fund Holdings"},
	})
	require.NoError(t, err)

	cfg := &config.Config{HTTP: config.HTTPConfig{Timeout: 5 * time.Second, RatePerSec: 100, Burst: 10}}
	sess, err := session.New(httputil.New(cfg, logger.Nop()), logger.Nop())
	require.NoError(t, err)

	res, err := adapter.Fetch(context.Background(), sess)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)
	assert.Empty(t, res.PageTitle)

	_, err = NewClient(logger.Nop()).Factory()(registry.SourceSpec{ID: "capital"})
	assert.Error(t, err)
}
