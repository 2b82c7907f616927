// package formatter renders query results as CSV, Markdown tables or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/desertthunder/audioquery/internal/models"
)

// leadingColumns are listed first, in this order, when present.
var leadingColumns = []string{"_id", "title", "name", "artist", "album"}

// Rows normalizes a reply value into records.
//
// Replies arrive as []models.Record or models.Record from the plugin and as []any or
// map[string]any once they have crossed JSON. Anything else becomes a single "value" row.
func Rows(value any) []models.Record {
	switch v := value.(type) {
	case nil:
		return nil
	case []models.Record:
		return v
	case models.Record:
		return []models.Record{v}
	case map[string]any:
		return []models.Record{models.Record(v)}
	case []any:
		rows := make([]models.Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, models.Record(m))
			} else {
				rows = append(rows, models.Record{"value": item})
			}
		}
		return rows
	default:
		return []models.Record{{"value": v}}
	}
}

// Columns returns the union of the records' keys, well-known columns first and the rest sorted.
func Columns(records []models.Record) []string {
	seen := map[string]bool{}
	for _, r := range records {
		for k := range r {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, c := range leadingColumns {
		if seen[c] {
			cols = append(cols, c)
			delete(seen, c)
		}
	}

	rest := make([]string, 0, len(seen))
	for c := range seen {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// Cell renders one value for tabular output.
func Cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	case []string:
		return strings.Join(v, ";")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = Cell(item)
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprint(v)
	}
}

// ExportToCSV writes records as CSV with a header row of columns.
func ExportToCSV(records []models.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = Cell(r[c])
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown writes records as a Markdown table under an optional heading.
func ExportToMarkdown(records []models.Record, columns []string, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	}
	if len(columns) == 0 {
		buf.WriteString("_No results_\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")

	for _, r := range records {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = strings.ReplaceAll(Cell(r[c]), "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return buf.Bytes(), nil
}

// ExportToText writes one numbered block per record with a "column: value" line per column.
func ExportToText(records []models.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer

	width := 0
	for _, c := range columns {
		width = max(width, len(c)+1)
	}

	buf.WriteString(fmt.Sprintf("Results: %d\n", len(records)))
	for i, r := range records {
		buf.WriteString(fmt.Sprintf("\n%d.\n", i+1))
		for _, c := range columns {
			buf.WriteString(fmt.Sprintf("  %-*s  %s\n", width, c+":", Cell(r[c])))
		}
	}

	return buf.Bytes(), nil
}

// Export renders records in format: "csv", "markdown" or "text".
func Export(records []models.Record, columns []string, format string) ([]byte, error) {
	switch format {
	case "csv":
		return ExportToCSV(records, columns)
	case "markdown", "md":
		return ExportToMarkdown(records, columns, "")
	case "text", "txt":
		return ExportToText(records, columns)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteExport renders records in format and writes them to path.
func WriteExport(records []models.Record, format, path string) error {
	data, err := Export(records, Columns(records), format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
