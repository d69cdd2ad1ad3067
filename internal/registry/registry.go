// Package registry holds the immutable, ordered table of holdings sources.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
)

// Kind tags the adapter variant of a source
type Kind string

const (
	KindBrowserPage       Kind = "browser-page"
	KindJSONEndpoint      Kind = "json-endpoint"
	KindSpreadsheetExport Kind = "spreadsheet-export"
	KindSynthetic         Kind = "synthetic-constant"
)

// Valid reports whether k is a known adapter kind
func (k Kind) Valid() bool {
	switch k {
	case KindBrowserPage, KindJSONEndpoint, KindSpreadsheetExport, KindSynthetic:
		return true
	}
	return false
}

// FetchResult is what an adapter extracted from its provider
type FetchResult struct {
	Rows      []holdings.RawRow
	PageTitle string
}

// Adapter retrieves raw holdings for one source.
// Failures are reported as *holdings.SourceFetchError.
type Adapter interface {
	Fetch(ctx context.Context, sess *session.Session) (FetchResult, error)
}

// AdapterFunc adapts a plain function to Adapter
type AdapterFunc func(ctx context.Context, sess *session.Session) (FetchResult, error)

// Fetch calls f
func (f AdapterFunc) Fetch(ctx context.Context, sess *session.Session) (FetchResult, error) {
	return f(ctx, sess)
}

// CellRef addresses one ledger cell. Empty Sheet means the default sheet.
type CellRef struct {
	Sheet string `json:"sheet,omitempty" yaml:"sheet"`
	Cell  string `json:"cell" yaml:"cell"`
}

func (c CellRef) String() string {
	if c.Sheet == "" {
		return c.Cell
	}
	return c.Sheet + "!" + c.Cell
}

// Source is one registered holdings source
type Source struct {
	ID        string
	Name      string
	Kind      Kind
	Adapter   Adapter
	TotalRefs []CellRef
	MaxItems  int
}

// TotalLabel renders the total cells, e.g. "D66+D51"
func (s Source) TotalLabel() string {
	parts := make([]string, len(s.TotalRefs))
	for i, ref := range s.TotalRefs {
		parts[i] = ref.String()
	}
	return strings.Join(parts, "+")
}

// Registry is built once at startup and read-only afterwards.
// Iteration order is registration order.
type Registry struct {
	sources []Source
	index   map[string]int
	titles  holdings.Titles
	hash    string
}

// New builds a registry from sources in registration order
func New(sources []Source, titles holdings.Titles) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(sources)),
		index:   make(map[string]int, len(sources)),
		titles:  make(holdings.Titles, len(titles)),
	}

	for _, src := range sources {
		if src.ID == "" {
			return nil, fmt.Errorf("source without id")
		}
		if _, dup := r.index[src.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		if src.Adapter == nil {
			return nil, fmt.Errorf("source %q: no adapter", src.ID)
		}
		if src.Name == "" {
			src.Name = strings.ToUpper(src.ID)
		}
		src.TotalRefs = append([]CellRef(nil), src.TotalRefs...)

		r.index[src.ID] = len(r.sources)
		r.sources = append(r.sources, src)
	}

	for id, title := range titles {
		r.titles[id] = title
	}

	return r, nil
}

// Sources returns a copy of all sources in registration order
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get looks up a source by id
func (r *Registry) Get(id string) (Source, bool) {
	i, ok := r.index[id]
	if !ok {
		return Source{}, false
	}
	return r.sources[i], true
}

// Len returns the number of sources
func (r *Registry) Len() int {
	return len(r.sources)
}

// Titles returns a copy of the static title table
func (r *Registry) Titles() holdings.Titles {
	out := make(holdings.Titles, len(r.titles))
	for id, title := range r.titles {
		out[id] = title
	}
	return out
}

// Hash is the fingerprint of the definition the registry was loaded from
// (empty for registries built in code)
func (r *Registry) Hash() string {
	return r.hash
}

// Subset returns a registry limited to ids, keeping registration order
func (r *Registry) Subset(ids []string) (*Registry, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := r.index[id]; !ok {
			return nil, fmt.Errorf("unknown source %q", id)
		}
		want[id] = true
	}

	var picked []Source
	for _, src := range r.sources {
		if want[src.ID] {
			picked = append(picked, src)
		}
	}

	sub, err := New(picked, r.titles)
	if err != nil {
		return nil, err
	}
	sub.hash = r.hash
	return sub, nil
}
