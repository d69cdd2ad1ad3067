// Package jsonfeed maps JSON holdings endpoints onto raw rows with JSONPath.
// Next.js pages are supported by reading the embedded __NEXT_DATA__ document.
package jsonfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// Weight scales
const (
	ScalePercent  = "percent"  // 12.34 means 12.34%
	ScaleFraction = "fraction" // 0.1234 means 12.34%
	ScaleAuto     = "auto"     // fraction when every weight is <= 1
)

// Feed describes how to read one endpoint
type Feed struct {
	URL         string
	NextData    bool
	Rows        string // JSONPath to the row list
	Code        string // JSONPath relative to a row
	Name        string
	Weight      string
	Title       string // JSONPath from the document root
	WeightScale string
}

// FeedFromSpec reads a Feed from registry params
func FeedFromSpec(spec registry.SourceSpec) (Feed, error) {
	f := Feed{
		URL:         spec.Param("url", ""),
		NextData:    spec.Param("next_data", "false") == "true",
		Rows:        spec.Param("rows", ""),
		Code:        spec.Param("code", ""),
		Name:        spec.Param("name", ""),
		Weight:      spec.Param("weight", ""),
		Title:       spec.Param("title", ""),
		WeightScale: spec.Param("weight_scale", ScalePercent),
	}

	switch {
	case f.URL == "":
		return f, fmt.Errorf("params.url required")
	case f.Rows == "":
		return f, fmt.Errorf("params.rows required")
	case f.Code == "":
		return f, fmt.Errorf("params.code required")
	case f.Weight == "":
		return f, fmt.Errorf("params.weight required")
	}

	switch f.WeightScale {
	case ScalePercent, ScaleFraction, ScaleAuto:
	default:
		return f, fmt.Errorf("params.weight_scale: unknown scale %q", f.WeightScale)
	}

	return f, nil
}

// Client reads JSON holdings feeds
type Client struct {
	logger *logger.Logger
}

// NewClient creates a new feed client
func NewClient(log *logger.Logger) *Client {
	return &Client{logger: log}
}

// Factory builds json-endpoint adapters from registry entries
func (c *Client) Factory() registry.AdapterFactory {
	return func(spec registry.SourceSpec) (registry.Adapter, error) {
		feed, err := FeedFromSpec(spec)
		if err != nil {
			return nil, err
		}
		return registry.AdapterFunc(func(ctx context.Context, sess *session.Session) (registry.FetchResult, error) {
			return c.Fetch(ctx, sess, spec.ID, feed)
		}), nil
	}
}

// Fetch downloads and maps one feed
func (c *Client) Fetch(ctx context.Context, sess *session.Session, sourceID string, feed Feed) (registry.FetchResult, error) {
	body, err := sess.Client().GetBody(ctx, feed.URL)
	if err != nil {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "fetch feed", err)
	}

	if feed.NextData {
		body, err = extractNextData(body)
		if err != nil {
			return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "extract __NEXT_DATA__", err)
		}
	}

	res, err := Map(body, feed)
	if err != nil {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "map feed", err)
	}

	c.logger.WithSource(sourceID).WithFields(map[string]interface{}{
		"rows": len(res.Rows),
	}).Debug("json feed mapped")

	return res, nil
}

// Map evaluates the feed's paths against a JSON document
func Map(body []byte, feed Feed) (registry.FetchResult, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return registry.FetchResult{}, fmt.Errorf("decode json: %w", err)
	}

	found, err := jsonpath.Get(feed.Rows, doc)
	if err != nil {
		return registry.FetchResult{}, fmt.Errorf("rows %q: %w", feed.Rows, err)
	}
	items, ok := found.([]interface{})
	if !ok {
		return registry.FetchResult{}, fmt.Errorf("rows %q: not a list", feed.Rows)
	}

	rows := make([]holdings.RawRow, 0, len(items))
	for i, item := range items {
		code := text(first(jsonpath.Get(feed.Code, item)))
		if code == "" {
			continue
		}

		name := code
		if feed.Name != "" {
			if n := text(first(jsonpath.Get(feed.Name, item))); n != "" {
				name = n
			}
		}

		weight, err := number(first(jsonpath.Get(feed.Weight, item)))
		if err != nil {
			return registry.FetchResult{}, fmt.Errorf("row %d weight: %w", i, err)
		}

		rows = append(rows, holdings.RawRow{Code: code, Name: name, WeightPercent: weight})
	}

	scaleWeights(rows, feed.WeightScale)

	var title string
	if feed.Title != "" {
		title = text(first(jsonpath.Get(feed.Title, doc)))
	}

	return registry.FetchResult{Rows: rows, PageTitle: title}, nil
}

// extractNextData returns the JSON payload of script#__NEXT_DATA__
func extractNextData(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	payload := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if payload == "" {
		return nil, fmt.Errorf("script#__NEXT_DATA__ not found")
	}
	return []byte(payload), nil
}

func scaleWeights(rows []holdings.RawRow, scale string) {
	fraction := scale == ScaleFraction
	if scale == ScaleAuto && len(rows) > 0 {
		fraction = true
		one := decimal.NewFromInt(1)
		for _, r := range rows {
			if r.WeightPercent.GreaterThan(one) {
				fraction = false
				break
			}
		}
	}
	if !fraction {
		return
	}

	for i := range rows {
		rows[i].WeightPercent = rows[i].WeightPercent.Shift(2)
	}
}

// first keeps the first element when jsonpath answers with a list
func first(v interface{}, err error) interface{} {
	if err != nil {
		return nil
	}
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func number(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return holdings.ParseWeight(t.String())
	case float64:
		return holdings.ParseWeight(strconv.FormatFloat(t, 'f', -1, 64))
	case string:
		return holdings.ParseWeight(t)
	default:
		return decimal.Zero, fmt.Errorf("unsupported weight %T", v)
	}
}
