// Package console renders run progress, agent activity and result panels
// to the terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/bengabay11/ticket2pr/internal/agent"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/hosting"
)

const panelWidth = 80

// Console writes user-facing output. It satisfies workflow.Reporter.
type Console struct {
	out   io.Writer
	color bool
	quiet bool
	mu    sync.Mutex

	styles styles
}

type styles struct {
	step, info, warn, dim lipgloss.Style
	success, failure      lipgloss.Style
	warning               lipgloss.Style
}

// Option configures a Console.
type Option func(*Console)

// WithColor forces colour on or off.
func WithColor(enabled bool) Option {
	return func(c *Console) {
		c.color = enabled
	}
}

// WithQuiet hides agent activity; steps, warnings and panels still print.
func WithQuiet(quiet bool) Option {
	return func(c *Console) {
		c.quiet = quiet
	}
}

// New creates a Console on out. Colour is enabled when out is a terminal.
func New(out io.Writer, opts ...Option) *Console {
	c := &Console{out: out, color: isTerminal(out)}
	for _, opt := range opts {
		opt(c)
	}
	c.styles = newStyles(c.color)
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newStyles(color bool) styles {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(panelWidth)
	if !color {
		return styles{success: panel, failure: panel, warning: panel}
	}
	return styles{
		step:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		info:    lipgloss.NewStyle(),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		success: panel.BorderForeground(lipgloss.Color("42")),
		failure: panel.BorderForeground(lipgloss.Color("196")),
		warning: panel.BorderForeground(lipgloss.Color("214")),
	}
}

func (c *Console) render(style lipgloss.Style, s string) string {
	if !c.color {
		return s
	}
	return style.Render(s)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// Step announces a pipeline step.
func (c *Console) Step(msg string) {
	c.println(c.render(c.styles.step, "==> "+msg))
}

// Info prints an informational line.
func (c *Console) Info(msg string) {
	c.println(c.render(c.styles.info, "    "+msg))
}

// Warn prints a warning line.
func (c *Console) Warn(msg string) {
	c.println(c.render(c.styles.warn, "  ! "+msg))
}

// AgentEvent prints one line of agent activity.
func (c *Console) AgentEvent(ev agent.Event) {
	if c.quiet {
		return
	}
	line := agent.Render(ev)
	if line == "" {
		return
	}
	if ev.Kind == agent.KindText {
		c.println(indent(line, "    "))
		return
	}
	c.println(c.render(c.styles.dim, "    "+line))
}

// Success prints a bordered panel for a finished run.
func (c *Console) Success(title string, lines ...string) {
	c.panel(c.styles.success, title, lines)
}

// Warning prints a bordered warning panel.
func (c *Console) Warning(title string, lines ...string) {
	c.panel(c.styles.warning, title, lines)
}

// Error prints err as a panel. Structured errors show their title and
// What/Why/Fix block; anything else is shown verbatim.
func (c *Console) Error(err error) {
	if err == nil {
		return
	}
	title := "Error"
	body := err.Error()
	if e := t2perrors.AsError(err); e != nil {
		title = e.Title()
		body = e.UserMessage()
	}
	c.panel(c.styles.failure, title, []string{body})
}

func (c *Console) panel(style lipgloss.Style, title string, lines []string) {
	body := lipgloss.NewStyle().Bold(c.color).Render(title)
	if len(lines) > 0 {
		body += "\n\n" + strings.Join(lines, "\n")
	}
	c.println(style.Render(body))
}

// PullRequest prints a PR's title, description and changed files.
func (c *Console) PullRequest(pr *hosting.PRDetails) {
	c.println(c.render(c.styles.step, fmt.Sprintf("#%d %s", pr.Number, pr.Title)))
	if pr.HTMLURL != "" {
		c.println(c.render(c.styles.dim, pr.HTMLURL))
	}
	if body := strings.TrimSpace(pr.Body); body != "" {
		c.println("")
		c.println(body)
	}
	c.println("")
	c.println(FilesTable(pr.Files, c.color))
}

// FilesTable renders file diffs as a table with a totals row.
func FilesTable(files []hosting.FileDiff, color bool) string {
	var adds, dels int
	rows := make([][]string, 0, len(files)+1)
	for _, f := range files {
		adds += f.Additions
		dels += f.Deletions
		rows = append(rows, []string{f.Filename, f.Status, "+" + strconv.Itoa(f.Additions), "-" + strconv.Itoa(f.Deletions)})
	}
	rows = append(rows, []string{fmt.Sprintf("%d files", len(files)), "", "+" + strconv.Itoa(adds), "-" + strconv.Itoa(dels)})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("File", "Status", "Added", "Removed").
		Rows(rows...)
	if color {
		header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		cell := lipgloss.NewStyle().Padding(0, 1)
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col == 2:
				return cell.Foreground(lipgloss.Color("42"))
			case col == 3:
				return cell.Foreground(lipgloss.Color("196"))
			default:
				return cell
			}
		})
	}
	return t.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
