package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/gtoboy77/MoneyTrainer/internal/aggregator"
	"github.com/gtoboy77/MoneyTrainer/internal/archive"
	"github.com/gtoboy77/MoneyTrainer/internal/external"
	"github.com/gtoboy77/MoneyTrainer/internal/external/sheets"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/database"
	"github.com/gtoboy77/MoneyTrainer/pkg/httputil"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *registry.Registry
	driver   *aggregator.Driver
	ledger   *sheets.Client

	// nil unless a database is configured
	db      *database.DB
	archive *archive.Repository
}

// appOptions selects the optional parts of the wiring
type appOptions struct {
	only       string // comma separated source ids
	needDB     bool   // fail when DATABASE_URL is missing
	optionalDB bool   // connect when DATABASE_URL is set
}

// newApp loads config and wires registry, session factory and driver
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load source registry
	reg, err := external.LoadRegistry(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if opts.only != "" {
		reg, err = reg.Subset(strings.Split(opts.only, ","))
		if err != nil {
			return nil, fmt.Errorf("select sources: %w", err)
		}
	}

	// 4. HTTP client + ledger lookup
	httpClient := httputil.New(cfg, log)
	ledger := sheets.NewClient(httpClient, cfg.Sheets, log)

	// 5. Driver: one session per run
	newSession := func() (*session.Session, error) {
		return session.New(httpClient, log)
	}
	driver := aggregator.NewDriver(reg, ledger, newSession, aggregator.Config{Workers: cfg.Aggregator.Workers}, log)

	a := &app{cfg: cfg, log: log, registry: reg, driver: driver, ledger: ledger}

	// 6. Optional snapshot archive
	if opts.needDB || (opts.optionalDB && cfg.Database.URL != "") {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		repo := archive.NewRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure archive schema: %w", err)
		}
		a.db = db
		a.archive = repo
		log.Info("Connected to database")
	}

	log.WithFields(map[string]interface{}{
		"sources":       reg.Len(),
		"registry_hash": reg.Hash(),
		"workers":       cfg.Aggregator.Workers,
	}).Debug("Application wired")

	return a, nil
}

// Close releases the database pool if one was opened
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
