package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"alfredoptarigan/call-auditor/internal/models"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// FormatBatch renders an audit batch in the requested format.
func FormatBatch(format Format, batch *models.BatchResult) (string, error) {
	if batch == nil {
		return "", nil
	}
	if format == FormatJSON {
		return marshalIndent(batch)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"File", "Criterion", "Verdict", "Confidence", "Reasoning"})

	for _, file := range batch.Results {
		name := file.Filename
		if file.Error != "" {
			name += " (error)"
		}
		for _, v := range file.Results {
			t.AppendRow(table.Row{name, v.Parameter, string(v.Verdict), v.Confidence, truncate(v.Reasoning, 80)})
		}
		t.AppendRow(table.Row{name, "", "", fmt.Sprintf("%.1f%%", file.OverallScore), file.Error})
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{"", "", "", "", batch.OverallSummary})
	return t.Render(), nil
}

// FormatCriteria renders the criterion catalog.
func FormatCriteria(format Format, criteria []models.Criterion) (string, error) {
	if format == FormatJSON {
		return marshalIndent(criteria)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Name", "Category", "Description"})
	for _, c := range criteria {
		t.AppendRow(table.Row{c.ID, c.Name, c.Category, truncate(c.Description, 60)})
	}
	return t.Render(), nil
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
