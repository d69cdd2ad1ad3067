package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gtoboy77/MoneyTrainer/internal/api/handlers"
)

// sourcesCmd lists the registry
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "등록된 소스 목록",
	Long: `sources.yaml(SOURCES_FILE 또는 내장 파일)에 등록된 소스를
등록 순서대로 보여줍니다. 비활성(disabled) 소스는 제외됩니다.`,
	RunE: listSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func listSources(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	WriteSources(os.Stdout, handlers.DescribeSources(a.registry))
	fmt.Printf("\n%d sources (registry %s)\n", a.registry.Len(), shortHash(a.registry.Hash()))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
