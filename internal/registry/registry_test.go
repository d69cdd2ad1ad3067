package registry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
)

func stubFactories() Factories {
	stub := func(spec SourceSpec) (Adapter, error) {
		return AdapterFunc(func(ctx context.Context, _ *session.Session) (FetchResult, error) {
			return FetchResult{PageTitle: spec.Param("url", "")}, nil
		}), nil
	}
	return Factories{
		KindBrowserPage:       stub,
		KindJSONEndpoint:      stub,
		KindSpreadsheetExport: stub,
	}
}

func TestLoadEmbeddedDefault(t *testing.T) {
	reg, err := Load("", stubFactories())
	require.NoError(t, err)

	wantOrder := []string{
		"ace", "tiger", "kodex", "capital", "wisdomtree",
		"etf_hx77", "etf_mve2", "etf_mqes", "etf_vr1y", "sol_mix",
		"custom_bonds_extra", "custom_reits", "custom_cash", "custom_real_estate", "custom_googl",
	}
	ids := make([]string, 0, reg.Len())
	for _, src := range reg.Sources() {
		ids = append(ids, src.ID)
	}
	assert.Equal(t, wantOrder, ids)

	_, ok := reg.Get("ace_issuer")
	assert.False(t, ok, "disabled sources are not registered")

	assert.Equal(t, "TIGER미국테크TOP10채권혼합", reg.Titles()["tiger"])
	assert.Len(t, reg.Hash(), 64)

	capital, ok := reg.Get("capital")
	require.True(t, ok)
	assert.Equal(t, KindSpreadsheetExport, capital.Kind)
	assert.Equal(t, 10, capital.MaxItems)

	cash, ok := reg.Get("custom_cash")
	require.True(t, ok)
	assert.Equal(t, []CellRef{{Sheet: "26년01월", Cell: "E4"}, {Sheet: "26년01월", Cell: "C11"}}, cash.TotalRefs)
	assert.Equal(t, "26년01월!E4+26년01월!C11", cash.TotalLabel())

	bonds, _ := reg.Get("custom_bonds_extra")
	assert.Equal(t, "D66+D51", bonds.TotalLabel())
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", `sources: []`},
		{"unknown field", `
sources:
  - id: a
    kind: synthetic-constant
    max_item: 3
    params: {code: X}`},
		{"missing id", `
sources:
  - kind: synthetic-constant
    params: {code: X}`},
		{"duplicate id", `
sources:
  - {id: a, kind: synthetic-constant, params: {code: X}}
  - {id: a, kind: synthetic-constant, params: {code: Y}}`},
		{"unknown kind", `
sources:
  - {id: a, kind: carrier-pigeon}`},
		{"negative max items", `
sources:
  - {id: a, kind: synthetic-constant, max_items: -1, params: {code: X}}`},
		{"bad cell", `
sources:
  - {id: a, kind: synthetic-constant, totals: [{cell: "D0"}], params: {code: X}}`},
		{"synthetic without code", `
sources:
  - {id: a, kind: synthetic-constant}`},
		{"no factory for kind", `
sources:
  - {id: a, kind: browser-page, params: {url: "http://x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), nil)
			assert.Error(t, err)
		})
	}
}

func TestParseValidationErrorField(t *testing.T) {
	_, err := Parse([]byte(`
sources:
  - {id: a, kind: synthetic-constant, params: {code: X}}
  - {id: b, kind: synthetic-constant, totals: [{cell: "1A"}], params: {code: Y}}`), nil)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sources[1].totals[0].cell", verr.Field)
}

func TestSyntheticBuiltIn(t *testing.T) {
	reg, err := Parse([]byte(`
sources:
  - id: custom_googl
    kind: synthetic-constant
    totals: [{cell: D49}]
    params: {code: GOOGL, name: Alphabet Inc. Class A}`), nil)
	require.NoError(t, err)

	src, ok := reg.Get("custom_googl")
	require.True(t, ok)
	assert.Equal(t, "CUSTOM_GOOGL", src.Name, "name defaults to the upper-cased id")

	res, err := src.Adapter.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "GOOGL", res.Rows[0].Code)
	assert.Equal(t, "Alphabet Inc. Class A", res.Rows[0].Name)
	assert.True(t, res.Rows[0].WeightPercent.Equal(decimal.NewFromInt(100)))
}

func TestSyntheticCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Synthetic{Code: "X"}.Fetch(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadSources(t *testing.T) {
	ok := Synthetic{Code: "X"}

	_, err := New([]Source{{ID: "a", Adapter: ok}, {ID: "a", Adapter: ok}}, nil)
	assert.Error(t, err)

	_, err = New([]Source{{ID: "a"}}, nil)
	assert.Error(t, err)

	_, err = New([]Source{{Adapter: ok}}, nil)
	assert.Error(t, err)
}

func TestRegistryIsImmutable(t *testing.T) {
	titles := holdings.Titles{"a": "Alpha"}
	refs := []CellRef{{Cell: "D1"}}
	reg, err := New([]Source{{ID: "a", Adapter: Synthetic{Code: "A"}, TotalRefs: refs}}, titles)
	require.NoError(t, err)

	titles["a"] = "changed"
	refs[0].Cell = "Z9"
	listed := reg.Sources()
	listed[0].ID = "mutated"
	reg.Titles()["a"] = "overwritten"

	src, _ := reg.Get("a")
	assert.Equal(t, "D1", src.TotalRefs[0].Cell)
	assert.Equal(t, "Alpha", reg.Titles()["a"])
	assert.Equal(t, "a", reg.Sources()[0].ID)
}

func TestSubset(t *testing.T) {
	reg, err := Load("", stubFactories())
	require.NoError(t, err)

	sub, err := reg.Subset([]string{"custom_cash", "tiger", " ace "})
	require.NoError(t, err)

	var ids []string
	for _, src := range sub.Sources() {
		ids = append(ids, src.ID)
	}
	assert.Equal(t, []string{"ace", "tiger", "custom_cash"}, ids, "registration order is kept")
	assert.Equal(t, reg.Hash(), sub.Hash())
	assert.Equal(t, reg.Titles()["tiger"], sub.Titles()["tiger"])

	_, err = reg.Subset([]string{"nope"})
	assert.Error(t, err)
}
