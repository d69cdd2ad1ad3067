// Package xlsxexport reads daily holdings workbooks published by fund issuers.
package xlsxexport

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

var one = decimal.NewFromInt(1)

// Client downloads and parses holdings workbooks
type Client struct {
	logger *logger.Logger
}

// NewClient creates a new workbook client
func NewClient(log *logger.Logger) *Client {
	return &Client{logger: log}
}

// Factory builds spreadsheet-export adapters from registry entries.
// params: url (required), sheet (name hint, optional)
func (c *Client) Factory() registry.AdapterFactory {
	return func(spec registry.SourceSpec) (registry.Adapter, error) {
		url := spec.Param("url", "")
		if url == "" {
			return nil, fmt.Errorf("params.url required")
		}
		sheetHint := spec.Param("sheet", "")

		return registry.AdapterFunc(func(ctx context.Context, sess *session.Session) (registry.FetchResult, error) {
			return c.Fetch(ctx, sess, spec.ID, url, sheetHint)
		}), nil
	}
}

// Fetch downloads the workbook at url and extracts its holdings
func (c *Client) Fetch(ctx context.Context, sess *session.Session, sourceID, url, sheetHint string) (registry.FetchResult, error) {
	body, err := sess.Client().GetBody(ctx, url)
	if err != nil {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "download workbook", err)
	}

	rows, err := ParseWorkbook(body, sheetHint)
	if err != nil {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "parse workbook", err)
	}

	c.logger.WithSource(sourceID).WithFields(map[string]interface{}{
		"rows": len(rows),
	}).Debug("workbook parsed")

	return registry.FetchResult{Rows: rows}, nil
}

// ParseWorkbook returns holdings sorted by weight descending.
// The sheet whose name contains sheetHint is read, else the first sheet.
func ParseWorkbook(data []byte, sheetHint string) ([]holdings.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	if sheetHint != "" {
		for _, name := range sheets {
			if strings.Contains(name, sheetHint) {
				sheet = name
				break
			}
		}
	}

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return parseGrid(grid)
}

type columns struct {
	header int
	ticker int
	weight int
	name   int
}

// findHeader locates the row holding both "ticker" and "percent of net assets"
func findHeader(grid [][]string) (columns, bool) {
	for i, row := range grid {
		cols := columns{header: i, ticker: -1, weight: -1, name: -1}
		for j, cell := range row {
			v := strings.ToLower(cell)
			if cols.ticker < 0 && strings.Contains(v, "ticker") {
				cols.ticker = j
			}
			if cols.weight < 0 && strings.Contains(v, "percent of net assets") {
				cols.weight = j
			}
			if cols.name < 0 && (strings.Contains(v, "security name") || strings.Contains(v, "name")) {
				cols.name = j
			}
		}
		if cols.ticker >= 0 && cols.weight >= 0 {
			if cols.name < 0 {
				cols.name = 0
			}
			return cols, true
		}
	}
	return columns{}, false
}

func parseGrid(grid [][]string) ([]holdings.RawRow, error) {
	cols, ok := findHeader(grid)
	if !ok {
		return nil, fmt.Errorf("header row not found")
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rows := []holdings.RawRow{}
	for _, row := range grid[cols.header+1:] {
		ticker := cell(row, cols.ticker)
		if ticker == "" || ticker == "-" {
			continue
		}

		weight, err := holdings.ParseWeight(cell(row, cols.weight))
		if err != nil || !weight.IsPositive() {
			continue
		}
		// 소수 비중(0.0597 = 5.97%)은 퍼센트로 환산
		if weight.LessThan(one) {
			weight = weight.Shift(2)
		}

		name := cell(row, cols.name)
		if name == "" {
			name = ticker
		}

		if strings.Contains(strings.ToLower(ticker), "total") || strings.Contains(strings.ToLower(name), "total") {
			continue
		}

		rows = append(rows, holdings.RawRow{
			Code:          ticker,
			Name:          name,
			WeightPercent: weight.Round(2),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].WeightPercent.GreaterThan(rows[j].WeightPercent)
	})

	return rows, nil
}
