package feed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/model"
)

// Operator approves generated candidates.
type Operator interface {
	// Select returns the zero-based indices of approved candidates.
	Select(ctx context.Context, candidates []model.LedgerEntry) ([]int, error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
}

// LineReader reads one operator answer after writing a question.
type LineReader interface {
	ReadLine(ctx context.Context, question string) (string, error)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801")).Padding(0, 1)

// TerminalOperator lists candidates in a table and reads answers from a
// LineReader.
type TerminalOperator struct {
	lines LineReader
	out   io.Writer
}

// NewTerminalOperator creates a TerminalOperator.
func NewTerminalOperator(lines LineReader, out io.Writer) *TerminalOperator {
	return &TerminalOperator{lines: lines, out: out}
}

// Select implements Operator. An unparseable answer approves nothing.
func (o *TerminalOperator) Select(ctx context.Context, candidates []model.LedgerEntry) ([]int, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	fmt.Fprintln(o.out, RenderCandidates(candidates))

	answer, err := o.lines.ReadLine(ctx, "Which updates do you approve? (numbers separated by commas, 'all' or 'none'): ")
	if err != nil {
		return nil, err
	}
	idx, err := ParseSelection(answer, len(candidates))
	if err != nil {
		zap.L().Warn("feed: invalid selection, approving none", zap.String("answer", answer))
		fmt.Fprintln(o.out, "Invalid input format. No updates approved.")
		return nil, nil
	}
	return idx, nil
}

// Confirm implements Operator.
func (o *TerminalOperator) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := o.lines.ReadLine(ctx, question+" (yes/no): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// RenderCandidates draws the numbered candidate table.
func RenderCandidates(candidates []model.LedgerEntry) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("#", "TITLE", "DATE", "SOURCES")
	for i, c := range candidates {
		t.Row(fmt.Sprint(i+1), c.Title, c.Date, strings.Join(c.Sources, "; "))
	}
	return t.Render()
}

// ScriptedOperator returns fixed answers. Used in tests and for
// non-interactive merges.
type ScriptedOperator struct {
	mu        sync.Mutex
	Selection string
	Confirmed bool
	Shown     [][]model.LedgerEntry
	Questions []string
}

// Select implements Operator.
func (o *ScriptedOperator) Select(_ context.Context, candidates []model.LedgerEntry) ([]int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Shown = append(o.Shown, candidates)
	return ParseSelection(o.Selection, len(candidates))
}

// Confirm implements Operator.
func (o *ScriptedOperator) Confirm(_ context.Context, question string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Questions = append(o.Questions, question)
	return o.Confirmed, nil
}
