// Package report renders scan snapshots as CSV, JSON, Markdown or YAML
// documents with optional column selection.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/sortutil"
)

// Format selects a report output encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatYAML     Format = "yaml"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatMarkdown, FormatYAML:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Options select the output format and the columns to include. An empty
// Columns slice renders every column.
type Options struct {
	Format  Format
	Columns []string
}

// StatusColumns are the columns of the status table.
var StatusColumns = []string{"name", "branch", "upstream", "up", "main_ref", "main"}

var allColumns = []string{
	"name", "path", "branch",
	"upstream", "up_ahead", "up_behind", "up",
	"main_ref", "main_ahead", "main_behind", "main",
	"default_refs", "origin", "error", "error_class",
}

// AllColumns returns every renderable column in display order, including
// the derived divergence columns.
func AllColumns() []string {
	return slices.Clone(allColumns)
}

// Load reads a scan snapshot, a JSON array of records, from path.
func Load(path string) ([]model.RepositoryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []model.RepositoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return records, nil
}

// Render writes the records to w in the selected format, ordered by name.
func Render(w io.Writer, records []model.RepositoryRecord, opts Options) error {
	recs := slices.Clone(records)
	sortutil.SortRecords(recs)

	var cols []string
	for _, col := range opts.Columns {
		if col = strings.TrimSpace(col); col != "" {
			cols = append(cols, col)
		}
	}

	switch opts.Format {
	case FormatJSON:
		return renderJSON(w, recs, cols)
	case FormatYAML:
		return renderYAML(w, recs, cols)
	case FormatMarkdown:
		return renderMarkdown(w, recs, cols)
	case FormatCSV, "":
		return renderCSV(w, recs, cols)
	}
	return fmt.Errorf("unsupported report format %q", opts.Format)
}

// Cell returns the display form of one record column for table output,
// with "-" standing in for absent values.
func Cell(rec model.RepositoryRecord, column string) string {
	v := value(rec, column)
	if v == nil {
		return "-"
	}
	return display(v)
}

// DivergenceCell formats an ahead/behind pair the way the status table
// shows it: "-" when both counts are absent, "≡" when the repository is
// level with the ref, else "N↑/M↓".
func DivergenceCell(ahead, behind *int) string {
	if ahead == nil && behind == nil {
		return "-"
	}
	if ahead != nil && behind != nil && *ahead == 0 && *behind == 0 {
		return "≡"
	}
	return countCell(ahead) + "↑/" + countCell(behind) + "↓"
}

func countCell(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

// value returns the native value of one column, or nil when the record has
// no value for it. Unknown columns are nil, matching the quiet behavior of
// selecting a column a record does not carry.
func value(rec model.RepositoryRecord, column string) any {
	switch column {
	case "name":
		return rec.Name
	case "path":
		return rec.Path
	case "branch":
		return rec.Branch
	case "upstream":
		return stringOrNil(rec.Upstream)
	case "up_ahead":
		return intOrNil(rec.UpAhead)
	case "up_behind":
		return intOrNil(rec.UpBehind)
	case "up":
		return DivergenceCell(rec.UpAhead, rec.UpBehind)
	case "main_ref":
		return stringOrNil(rec.MainRef)
	case "main_ahead":
		return intOrNil(rec.MainAhead)
	case "main_behind":
		return intOrNil(rec.MainBehind)
	case "main":
		return DivergenceCell(rec.MainAhead, rec.MainBehind)
	case "default_refs":
		if len(rec.DefaultRefs) == 0 {
			return nil
		}
		return rec.DefaultRefs
	case "origin":
		return stringOrNil(rec.Origin)
	case "error":
		return stringOrNil(rec.Error)
	case "error_class":
		return stringOrNil(rec.ErrorClass)
	}
	return nil
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intOrNil(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// display flattens a column value to its textual cell form.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case []string:
		return strings.Join(t, ",")
	}
	return fmt.Sprint(v)
}

func renderCSV(w io.Writer, records []model.RepositoryRecord, cols []string) error {
	if len(cols) == 0 {
		cols = AllColumns()
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, rec := range records {
		for i, col := range cols {
			row[i] = display(value(rec, col))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, records []model.RepositoryRecord, cols []string) error {
	data, err := json.MarshalIndent(payload(records, cols), "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func renderYAML(w io.Writer, records []model.RepositoryRecord, cols []string) error {
	data, err := yaml.Marshal(payload(records, cols))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// payload keeps the document an array: unfiltered renders marshal the
// records themselves, filtered renders project each record onto the
// requested columns, absent values encoding as null.
func payload(records []model.RepositoryRecord, cols []string) any {
	if len(cols) == 0 {
		return records
	}
	filtered := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(cols))
		for _, col := range cols {
			row[col] = value(rec, col)
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func renderMarkdown(w io.Writer, records []model.RepositoryRecord, cols []string) error {
	if len(cols) == 0 {
		cols = AllColumns()
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	cells := make([]string, len(cols))
	for _, rec := range records {
		for i, col := range cols {
			cells[i] = display(value(rec, col))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
