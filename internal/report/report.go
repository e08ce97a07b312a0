// Package report renders end-of-run summaries and run history as terminal
// tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sells-group/corpus-refresh/internal/changelog"
	"github.com/sells-group/corpus-refresh/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	statusColors = map[model.Status]lipgloss.Color{
		model.StatusUpdated:      lipgloss.Color("#5FD068"),
		model.StatusForcedUpdate: lipgloss.Color("#5FD068"),
		model.StatusForceFailed:  lipgloss.Color("#E84855"),
		model.StatusError:        lipgloss.Color("#E84855"),
		model.StatusSkipped:      lipgloss.Color("#888888"),
	}
)

const missing = "-"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// StatusTable pivots entries into one row per record and one column per
// field. Records and fields keep first-seen order. When a field was logged
// more than once for a record, the last entry wins.
func StatusTable(entries []model.ChangeLogEntry) string {
	var records, fields []string
	seenRecord := make(map[string]bool)
	seenField := make(map[string]bool)
	cells := make(map[string]map[string]model.Status)

	for _, e := range entries {
		if !seenRecord[e.RecordID] {
			seenRecord[e.RecordID] = true
			records = append(records, e.RecordID)
			cells[e.RecordID] = make(map[string]model.Status)
		}
		if !seenField[e.Field] {
			seenField[e.Field] = true
			fields = append(fields, e.Field)
		}
		cells[e.RecordID][e.Field] = e.Status
	}

	t := newTable(append([]string{"RECORD"}, fields...)...)
	for _, r := range records {
		row := make([]string, 0, len(fields)+1)
		row = append(row, r)
		for _, f := range fields {
			if s, ok := cells[r][f]; ok {
				row = append(row, string(s))
			} else {
				row = append(row, missing)
			}
		}
		t.Row(row...)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 0 || row < 0 || row >= len(records) {
			return cellStyle
		}
		s, ok := cells[records[row]][fields[col-1]]
		if !ok {
			return mutedStyle
		}
		if c, ok := statusColors[s]; ok {
			return cellStyle.Foreground(c)
		}
		return cellStyle
	})
	return t.Render()
}

// CountsTable lists every status in display order with its count.
func CountsTable(counts map[model.Status]int) string {
	t := newTable("STATUS", "COUNT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	total := 0
	for _, s := range model.AllStatuses {
		n := counts[s]
		total += n
		t.Row(string(s), strconv.Itoa(n))
	}
	t.Row("TOTAL", strconv.Itoa(total))
	return t.Render()
}

// Summary writes the end-of-run report for a change log.
func Summary(w io.Writer, title string, entries []model.ChangeLogEntry) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if len(entries) == 0 {
		fmt.Fprintln(w, "No fields were evaluated.")
		return
	}
	fmt.Fprintln(w, StatusTable(entries))
	fmt.Fprintln(w, CountsTable(changelog.Count(entries)))
}

// RunsTable lists past runs, newest first as given.
func RunsTable(runs []model.Run) string {
	t := newTable("ID", "KIND", "STARTED", "DURATION", "APPLIED", "TOTAL").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range runs {
		duration := "running"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		applied, total := 0, 0
		for s, n := range r.Counts {
			total += n
			if s.Applied() {
				applied += n
			}
		}
		t.Row(r.ID, r.Kind, r.StartedAt.Local().Format("2006-01-02 15:04"), duration,
			strconv.Itoa(applied), strconv.Itoa(total))
	}
	return t.Render()
}

// ChangesTable lists the change-log entries of one run.
func ChangesTable(entries []model.ChangeLogEntry) string {
	t := newTable("TIME", "RECORD", "FIELD", "DECISION", "ACTION", "STATUS", "REASON").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, e := range entries {
		t.Row(e.Timestamp.Local().Format("15:04:05"), e.RecordID, e.Field,
			string(e.Decision), e.Action, string(e.Status), truncate(e.Reason, 60))
	}
	return t.Render()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
