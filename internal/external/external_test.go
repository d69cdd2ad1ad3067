package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

func TestLoadRegistryDefault(t *testing.T) {
	cfg := &config.Config{ETFCheck: config.ETFCheckConfig{BaseURL: "https://www.etfcheck.co.kr"}}

	reg, err := LoadRegistry(cfg, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 15, reg.Len())

	kinds := map[registry.Kind]int{}
	for _, src := range reg.Sources() {
		kinds[src.Kind]++
	}
	assert.Equal(t, 9, kinds[registry.KindBrowserPage])
	assert.Equal(t, 1, kinds[registry.KindSpreadsheetExport])
	assert.Equal(t, 5, kinds[registry.KindSynthetic])
}

func TestLoadRegistryMissingFile(t *testing.T) {
	cfg := &config.Config{SourcesFile: "/nonexistent/sources.yaml"}
	_, err := LoadRegistry(cfg, logger.Nop())
	assert.Error(t, err)
}
