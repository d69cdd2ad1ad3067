package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/httputil"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

type fakeTotals map[string]int64

func (f fakeTotals) Lookup(_ context.Context, ref registry.CellRef) int64 {
	return f[ref.String()]
}

func testSessions(t *testing.T) SessionFactory {
	t.Helper()
	cfg := &config.Config{HTTP: config.HTTPConfig{Timeout: 5 * time.Second, RatePerSec: 100, Burst: 10}}
	base := httputil.New(cfg, logger.Nop())
	return func() (*session.Session, error) {
		return session.New(base, logger.Nop())
	}
}

func rows(pairs ...string) []holdings.RawRow {
	out := make([]holdings.RawRow, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, holdings.RawRow{
			Code:          pairs[i],
			Name:          pairs[i] + " Inc",
			WeightPercent: decimal.RequireFromString(pairs[i+1]),
		})
	}
	return out
}

func static(res registry.FetchResult) registry.Adapter {
	return registry.AdapterFunc(func(ctx context.Context, _ *session.Session) (registry.FetchResult, error) {
		return res, nil
	})
}

func failing(err error) registry.Adapter {
	return registry.AdapterFunc(func(ctx context.Context, _ *session.Session) (registry.FetchResult, error) {
		return registry.FetchResult{}, err
	})
}

func newDriver(t *testing.T, sources []registry.Source, titles holdings.Titles, totals fakeTotals) *Driver {
	t.Helper()
	reg, err := registry.New(sources, titles)
	require.NoError(t, err)
	return NewDriver(reg, totals, testSessions(t), Config{Workers: 4}, logger.Nop())
}

func TestRunAllocatesAndTitles(t *testing.T) {
	driver := newDriver(t, []registry.Source{
		{ID: "tiger", Name: "Tiger", Adapter: static(registry.FetchResult{Rows: rows("A", "60", "B", "30", "C", "10"), PageTitle: "page"}), TotalRefs: []registry.CellRef{{Cell: "D22"}}, MaxItems: 2},
		{ID: "untitled", Adapter: static(registry.FetchResult{Rows: rows("X", "100")})},
		{ID: "bonds", Name: "Bonds", Adapter: registry.Synthetic{Code: "국고채권 기타"}, TotalRefs: []registry.CellRef{{Cell: "D66"}, {Cell: "D51"}}},
	}, holdings.Titles{"tiger": "TIGER미국테크TOP10채권혼합", "bonds": "Additional Bonds (D66+D51)"}, fakeTotals{"D22": 1000, "D66": 700, "D51": 300})

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Reports, 3)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))

	tiger := result.Reports[0]
	assert.Equal(t, "TIGER미국테크TOP10채권혼합 (1,000원)", tiger.Title, "static title wins over the page title")
	assert.Equal(t, int64(1000), tiger.TotalAmount)
	require.Len(t, tiger.Components, 3)
	assert.Equal(t, holdings.OtherCode, tiger.Components[2].Code)
	assert.Equal(t, []string{"600원", "300원", "100원"}, []string{
		tiger.Components[0].DisplayAmount(), tiger.Components[1].DisplayAmount(), tiger.Components[2].DisplayAmount(),
	})

	untitled := result.Reports[1]
	assert.Equal(t, holdings.DefaultTitle, untitled.Title, "no total: no amount suffix")
	assert.Equal(t, holdings.UnknownAmount, untitled.Components[0].DisplayAmount())

	bonds := result.Reports[2]
	assert.Equal(t, "Additional Bonds (D66+D51) (1,000원)", bonds.Title)
	require.Len(t, bonds.Components, 1)
	assert.Equal(t, int64(1000), bonds.Components[0].Amount)
}

func TestRunOneSourceFails(t *testing.T) {
	driver := newDriver(t, []registry.Source{
		{ID: "a", Name: "A", Adapter: static(registry.FetchResult{Rows: rows("AAPL", "100")})},
		{ID: "b", Name: "B", Adapter: failing(holdings.NewSourceFetchError("b", "fetch page", errors.New("table not found")))},
		{ID: "c", Name: "C", Adapter: static(registry.FetchResult{Rows: rows("MSFT", "100")})},
	}, nil, fakeTotals{})

	result, err := driver.Run(context.Background())
	require.NoError(t, err)

	ids := []string{result.Reports[0].ID, result.Reports[1].ID, result.Reports[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	failed := result.Reports[1]
	assert.Equal(t, "B (Error)", failed.Title)
	assert.Empty(t, failed.Components)
	assert.NotNil(t, failed.Components)
	assert.Contains(t, failed.Error, "table not found")
	assert.Equal(t, 1, result.FailedCount())
}

func TestRunAllSourcesFail(t *testing.T) {
	driver := newDriver(t, []registry.Source{
		{ID: "a", Adapter: failing(errors.New("down"))},
		{ID: "b", Adapter: failing(errors.New("down"))},
	}, nil, fakeTotals{})

	result, err := driver.Run(context.Background())
	assert.ErrorIs(t, err, holdings.ErrAllSourcesFailed)
	require.NotNil(t, result)
	assert.Len(t, result.Reports, 2)
	assert.Equal(t, "A (Error)", result.Reports[0].Title)
}

func TestRunRecoversPanics(t *testing.T) {
	driver := newDriver(t, []registry.Source{
		{ID: "boom", Name: "Boom", Adapter: registry.AdapterFunc(func(ctx context.Context, _ *session.Session) (registry.FetchResult, error) {
			panic("nil map")
		})},
		{ID: "ok", Adapter: static(registry.FetchResult{Rows: rows("A", "100")})},
	}, nil, fakeTotals{})

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Boom (Error)", result.Reports[0].Title)
	assert.Contains(t, result.Reports[0].Error, "nil map")
	assert.False(t, result.Reports[1].Failed())
}

func TestRunTimeoutIsASourceFailure(t *testing.T) {
	slow := registry.AdapterFunc(func(ctx context.Context, _ *session.Session) (registry.FetchResult, error) {
		select {
		case <-ctx.Done():
			return registry.FetchResult{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return registry.FetchResult{}, nil
		}
	})
	driver := newDriver(t, []registry.Source{
		{ID: "slow", Name: "Slow", Adapter: slow},
	}, nil, fakeTotals{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := driver.Run(ctx)
	assert.ErrorIs(t, err, holdings.ErrAllSourcesFailed)
	assert.Contains(t, result.Reports[0].Error, "deadline exceeded")
}

func TestRunKeepsRegistrationOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var sources []registry.Source
	for i := 0; i < 20; i++ {
		delay := time.Duration(rng.Intn(15)) * time.Millisecond
		code := fmt.Sprintf("S%02d", i)
		sources = append(sources, registry.Source{
			ID: code,
			Adapter: registry.AdapterFunc(func(ctx context.Context, _ *session.Session) (registry.FetchResult, error) {
				time.Sleep(delay)
				return registry.FetchResult{Rows: rows(code, "100")}, nil
			}),
		})
	}

	driver := newDriver(t, sources, nil, fakeTotals{})
	result, err := driver.Run(context.Background())
	require.NoError(t, err)

	for i, rep := range result.Reports {
		assert.Equal(t, fmt.Sprintf("S%02d", i), rep.ID)
		assert.Equal(t, rep.ID, rep.Components[0].Code)
	}
}

func TestRunEmptyRegistry(t *testing.T) {
	driver := newDriver(t, nil, nil, fakeTotals{})

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Reports)
}

func TestRunSharesOneSession(t *testing.T) {
	var mu sync.Mutex
	seen := map[*session.Session]bool{}
	capture := registry.AdapterFunc(func(ctx context.Context, sess *session.Session) (registry.FetchResult, error) {
		mu.Lock()
		seen[sess] = true
		mu.Unlock()
		return registry.FetchResult{}, nil
	})

	driver := newDriver(t, []registry.Source{
		{ID: "a", Adapter: capture}, {ID: "b", Adapter: capture}, {ID: "c", Adapter: capture},
	}, nil, fakeTotals{})

	_, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 1, "one session per run")

	_, err = driver.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 2, "a new session for the next run")
}

func TestRunSessionFactoryError(t *testing.T) {
	reg, err := registry.New(nil, nil)
	require.NoError(t, err)

	driver := NewDriver(reg, fakeTotals{}, func() (*session.Session, error) {
		return nil, errors.New("no jar")
	}, Config{}, logger.Nop())

	_, err = driver.Run(context.Background())
	assert.Error(t, err)
}

func TestRunWithObserver(t *testing.T) {
	driver := newDriver(t, []registry.Source{
		{ID: "ok", Adapter: static(registry.FetchResult{Rows: rows("A", "100")})},
		{ID: "bad", Adapter: failing(errors.New("down"))},
	}, nil, fakeTotals{})

	var mu sync.Mutex
	states := map[string][]State{}
	runIDs := map[string]bool{}

	result, err := driver.RunWithObserver(context.Background(), func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		states[ev.SourceID] = append(states[ev.SourceID], ev.State)
		runIDs[ev.RunID] = true
	})
	require.NoError(t, err)

	assert.Equal(t, []State{StatePending, StateFetching, StateReducing, StateAllocating, StateDone}, states["ok"])
	assert.Equal(t, []State{StatePending, StateFetching, StateFailed}, states["bad"])
	assert.Equal(t, map[string]bool{result.RunID: true}, runIDs)
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateReducing.Terminal())
}
