package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
)

// ErrInputClosed is returned when the operator input reaches EOF.
var ErrInputClosed = eris.New("approval: input closed")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// TerminalPrompter reads answers line by line from an io.Reader and writes
// prompts to an io.Writer.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer

	once      sync.Once
	closeOnce sync.Once
	lines     chan string
	done      chan struct{}
}

// NewTerminalPrompter creates a prompter over in and out, usually stdin and
// stdout.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out, done: make(chan struct{})}
}

// Prompt shows req and waits for y/yes, n/no or s/skip. Other answers
// re-prompt.
func (p *TerminalPrompter) Prompt(ctx context.Context, req Request) (Result, error) {
	fmt.Fprintln(p.out, renderRequest(req))
	question := fmt.Sprintf("Update %s for %s? (y/n/s=skip all): ", req.Section, displayName(req))
	for {
		line, err := p.ReadLine(ctx, question)
		if err != nil {
			return Deny, err
		}
		if res, valid := ParseAnswer(line); valid {
			return res, nil
		}
		fmt.Fprintln(p.out, "Please enter 'y' for yes, 'n' for no, or 's' to skip all remaining updates")
	}
}

// ReadLine writes question and returns the next input line. Other
// interactive steps share the prompter so every read goes through one
// scanner.
func (p *TerminalPrompter) ReadLine(ctx context.Context, question string) (string, error) {
	p.once.Do(p.start)

	fmt.Fprint(p.out, question)
	select {
	case <-p.done:
		return "", ErrInputClosed
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.out)
			return "", ErrInputClosed
		}
		return line, nil
	}
}

// Close releases the reader goroutine. Later reads return ErrInputClosed.
// A read already blocked in the underlying reader ends when it returns.
func (p *TerminalPrompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Out returns the writer prompts go to.
func (p *TerminalPrompter) Out() io.Writer { return p.out }

func (p *TerminalPrompter) start() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			select {
			case p.lines <- sc.Text():
			case <-p.done:
				return
			}
		}
	}()
}

// ParseAnswer maps operator input to a Result.
func ParseAnswer(s string) (Result, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return Grant, true
	case "n", "no":
		return Deny, true
	case "s", "skip":
		return SkipAll, true
	default:
		return Deny, false
	}
}

func renderRequest(req Request) string {
	lines := []string{
		titleStyle.Render("SECTION UPDATE REQUEST"),
		labelStyle.Render("Record:  ") + displayName(req),
		labelStyle.Render("Section: ") + req.Section,
		labelStyle.Render("Reason:  ") + req.Reason,
	}
	if req.Development != "" {
		lines = append(lines, labelStyle.Render("Found:   ")+req.Development)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func displayName(req Request) string {
	if req.RecordName != "" {
		return req.RecordName
	}
	return req.RecordID
}

// ScriptedPrompter answers from a fixed list, then denies. It records every
// request it was shown.
type ScriptedPrompter struct {
	mu       sync.Mutex
	answers  []Result
	Requests []Request
}

// NewScriptedPrompter creates a prompter returning answers in order.
func NewScriptedPrompter(answers ...Result) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

// Prompt implements Prompter.
func (p *ScriptedPrompter) Prompt(_ context.Context, req Request) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if len(p.answers) == 0 {
		return Deny, nil
	}
	res := p.answers[0]
	p.answers = p.answers[1:]
	return res, nil
}

// AutoPrompter always returns the same result. Used for non-interactive
// runs.
type AutoPrompter struct {
	Result Result
}

// Prompt implements Prompter.
func (p AutoPrompter) Prompt(context.Context, Request) (Result, error) {
	return p.Result, nil
}
