// Package sheets reads account totals from the Google Sheets ledger.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/httputil"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// leadingInt mirrors how ledger cells are read: the leading integer wins
var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// Client looks up single ledger cells through the gviz CSV export
// ⭐ SSOT: 스프레드시트 조회는 이 클라이언트에서만
type Client struct {
	httpClient   *httputil.Client
	logger       *logger.Logger
	baseURL      string
	sheetID      string
	defaultSheet string
}

// NewClient creates a new ledger client
func NewClient(httpClient *httputil.Client, cfg config.SheetsConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		logger:       log,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		sheetID:      cfg.SpreadsheetID,
		defaultSheet: cfg.DefaultSheetName,
	}
}

// CellURL builds the gviz CSV URL for one cell
func (c *Client) CellURL(ref registry.CellRef) string {
	sheet := ref.Sheet
	if sheet == "" {
		sheet = c.defaultSheet
	}

	params := url.Values{}
	params.Set("tqx", "out:csv")
	params.Set("sheet", sheet)
	params.Set("range", ref.Cell)

	return fmt.Sprintf("%s/%s/gviz/tq?%s", c.baseURL, url.PathEscape(c.sheetID), params.Encode())
}

// Lookup returns the integer value of a ledger cell.
// Any failure or negative balance is logged and reported as 0 (amount unknown).
func (c *Client) Lookup(ctx context.Context, ref registry.CellRef) int64 {
	amount, err := c.lookup(ctx, ref)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"cell":  ref.String(),
			"error": err.Error(),
		}).Warn("Total amount unavailable")
		return 0
	}
	if amount < 0 {
		c.logger.WithFields(map[string]interface{}{
			"cell":   ref.String(),
			"amount": amount,
		}).Warn("Negative total amount ignored")
		return 0
	}
	return amount
}

func (c *Client) lookup(ctx context.Context, ref registry.CellRef) (int64, error) {
	body, err := c.httpClient.GetBody(ctx, c.CellURL(ref))
	if err != nil {
		return 0, err
	}
	return ParseAmount(string(body))
}

// ParseAmount reads the first CSV field and strips quotes, whitespace,
// "₩" and thousands separators: `"₩1,234,567"` → 1234567
func ParseAmount(text string) (int64, error) {
	field := text
	if rec, err := csv.NewReader(strings.NewReader(text)).Read(); err == nil && len(rec) > 0 {
		field = rec[0]
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '₩', ',', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, field)

	digits := leadingInt.FindString(cleaned)
	if digits == "" {
		return 0, fmt.Errorf("not a number: %q", strings.TrimSpace(text))
	}

	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", digits, err)
	}
	return amount, nil
}
