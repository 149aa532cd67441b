package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mindspero/mindspero/pkg/client"
	"gopkg.in/yaml.v3"
)

// Table renders data as a formatted table.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		writer:  os.Stdout,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the table to stdout.
func (t *Table) Render() {
	w := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	// Header
	fmt.Fprintln(w, strings.Join(t.headers, "\t"))

	// Separator
	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	// Rows
	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printOutput prints data in the requested format.
func printOutput(data interface{}) error {
	format := getOutputFormat()
	switch format {
	case "json":
		return printJSON(data)
	case "yaml":
		return printYAML(data)
	default:
		// Table output is rendered by the caller; anything else falls back to JSON.
		return printJSON(data)
	}
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(data interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatStage returns a document stage with a progress marker
func formatStage(stage string) string {
	switch stage {
	case client.StageUploaded:
		return "[1/4] uploaded"
	case client.StageSummarizing:
		return "[2/4] summarizing"
	case client.StageSummarized:
		return "[3/4] summarized"
	case client.StageAudioPending:
		return "[3/4] audio pending"
	case client.StageAudioReady:
		return "[4/4] audio ready"
	case client.StageFailed:
		return "[-] failed"
	default:
		return stage
	}
}

// formatTier shows the effective tier, noting when the stored tier differs
func formatTier(stored, current string) string {
	if stored == "" || stored == current {
		return current
	}
	return fmt.Sprintf("%s (stored: %s)", current, stored)
}

// formatDays renders a countdown; nil means the tier has none
func formatDays(days *int) string {
	if days == nil {
		return "-"
	}
	if *days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", *days)
}

// formatMoney renders minor units as a decimal amount
func formatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	amount := fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	if currency == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(currency)
}

// formatBytes renders a byte count with a binary unit
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
