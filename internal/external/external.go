// Package external wires provider clients into registry adapter factories.
package external

import (
	"github.com/gtoboy77/MoneyTrainer/internal/external/etfcheck"
	"github.com/gtoboy77/MoneyTrainer/internal/external/jsonfeed"
	"github.com/gtoboy77/MoneyTrainer/internal/external/xlsxexport"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// Factories returns the adapter constructor for every provider kind
func Factories(cfg *config.Config, log *logger.Logger) registry.Factories {
	return registry.Factories{
		registry.KindBrowserPage:       etfcheck.NewClient(cfg.ETFCheck, log).Factory(),
		registry.KindJSONEndpoint:      jsonfeed.NewClient(log).Factory(),
		registry.KindSpreadsheetExport: xlsxexport.NewClient(log).Factory(),
	}
}

// LoadRegistry loads SOURCES_FILE (or the embedded default) with all providers wired
func LoadRegistry(cfg *config.Config, log *logger.Logger) (*registry.Registry, error) {
	return registry.Load(cfg.SourcesFile, Factories(cfg, log))
}
