package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/gtoboy77/MoneyTrainer/internal/api/handlers"
	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// Output formats of the aggregate command
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// component table layout (display width, Hangul counts double)
var (
	componentColumns = []string{"No", "Code", "Name", "Qty", "Amount", "Weight"}
	componentWidths  = []int{4, 10, 36, 10, 16, 7}
)

func validFormat(f string) bool {
	return f == FormatTable || f == FormatMarkdown || f == FormatJSON
}

// WriteResult prints a run in the requested format
func WriteResult(w io.Writer, result *holdings.Result, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"success": !result.AllFailed(),
			"run_id":  result.RunID,
			"data":    result.Reports,
		})

	case FormatMarkdown:
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(120),
		)
		if err != nil {
			return fmt.Errorf("create markdown renderer: %w", err)
		}
		out, err := renderer.Render(RenderMarkdown(result))
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err

	case FormatTable:
		WriteTable(w, result)
		return nil
	}

	return fmt.Errorf("unknown format %q", format)
}

// RenderMarkdown renders one section per source, in report order
func RenderMarkdown(result *holdings.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 구성종목 집계\n\n")
	fmt.Fprintf(&b, "run `%s` · %d sources · %d failed\n\n", result.RunID, len(result.Reports), result.FailedCount())

	for _, rep := range result.Reports {
		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdown(rep.Title))

		if rep.Failed() {
			fmt.Fprintf(&b, "> ⚠️ %s\n\n", escapeMarkdown(rep.Error))
			continue
		}

		b.WriteString("| " + strings.Join(componentColumns, " | ") + " |\n")
		b.WriteString("|---:|---|---|---:|---:|---:|\n")
		for _, c := range rep.Components {
			fmt.Fprintf(&b, "| %s |\n", strings.Join(escapeAll(componentCells(c)), " | "))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// WriteTable prints the run as fixed-width terminal tables
func WriteTable(w io.Writer, result *holdings.Result) {
	for i, rep := range result.Reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
		fmt.Fprintf(w, "  %s\n", rep.Title)
		fmt.Fprintln(w, "───────────────────────────────────────────────────────────")

		if rep.Failed() {
			fmt.Fprintf(w, "❌ %s\n", rep.Error)
			continue
		}

		writeTableRow(w, componentColumns, componentWidths)
		writeTableRule(w, componentWidths)
		for _, c := range rep.Components {
			if c.IsOther() {
				writeTableRule(w, componentWidths)
			}
			writeTableRow(w, componentCells(c), componentWidths)
		}
		if rep.TotalAmount > 0 {
			writeTableRule(w, componentWidths)
			writeTableRow(w, []string{"", "", "합계", "", holdings.FormatAmount(holdings.SumAmounts(rep.Components)), ""}, componentWidths)
		}
	}

	fmt.Fprintln(w)
	if n := result.FailedCount(); n > 0 {
		fmt.Fprintf(w, "⚠️  %d/%d sources failed\n", n, len(result.Reports))
	} else {
		fmt.Fprintf(w, "✅ %d sources (run %s)\n", len(result.Reports), result.RunID)
	}
}

// WriteSources prints the registry listing
func WriteSources(w io.Writer, sources []handlers.SourceInfo) {
	widths := []int{14, 20, 20, 6, 40}
	writeTableRow(w, []string{"ID", "Name", "Kind", "Top", "Cells"}, widths)
	writeTableRule(w, widths)

	for _, s := range sources {
		cells := make([]string, 0, len(s.Cells))
		for _, c := range s.Cells {
			cells = append(cells, c.String())
		}
		top := "all"
		if s.MaxItems > 0 {
			top = fmt.Sprint(s.MaxItems)
		}
		writeTableRow(w, []string{s.ID, s.Name, string(s.Kind), top, strings.Join(cells, " + ")}, widths)
	}
}

func componentCells(c holdings.AllocatedHolding) []string {
	qty := holdings.UnknownAmount
	if c.Quantity != nil && *c.Quantity != "" {
		qty = *c.Quantity
	}
	return []string{
		fmt.Sprint(c.Rank),
		c.Code,
		c.Name,
		qty,
		c.DisplayAmount(),
		c.WeightPercent.StringFixed(2),
	}
}

// writeTableRow pads by display width so Hangul names line up
func writeTableRow(w io.Writer, values []string, widths []int) {
	cols := make([]string, len(values))
	for i, v := range values {
		v = runewidth.Truncate(v, widths[i], "…")
		cols[i] = runewidth.FillRight(v, widths[i])
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(cols, "  "), " "))
}

func writeTableRule(w io.Writer, widths []int) {
	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = escapeMarkdown(v)
	}
	return out
}
