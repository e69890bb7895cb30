// Package wizard provides a Bubbletea-based wizard for interactive setup.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts the wizard.
var ErrCancelled = errors.New("wizard cancelled")

// ErrNotInteractive is returned when stdin or stdout is not a terminal.
var ErrNotInteractive = errors.New("the setup wizard needs an interactive terminal")

// State holds the wizard's collected data.
// Each step reads from and writes to this shared state.
type State map[string]any

// String returns the string stored under key, or "".
func (s State) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the bool stored under key, or false.
func (s State) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Step represents a single wizard step.
type Step interface {
	ID() string
	Title() string
	Description() string

	// Skip returns true if this step should be skipped based on current state.
	Skip(state State) bool

	// Init creates the initial model for this step.
	Init(state State) tea.Model

	// Result extracts the result from the model and stores it in state.
	// Called when the step completes successfully.
	Result(model tea.Model, state State)
}

// Wizard manages a sequence of steps.
type Wizard struct {
	steps   []Step
	current int
	state   State
	model   tea.Model
	err     error

	styles Styles
}

// Styles contains the visual styling for the wizard.
type Styles struct {
	Title       lipgloss.Style
	Description lipgloss.Style
	Progress    lipgloss.Style
}

// DefaultStyles returns the default wizard styling.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1),
		Description: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1),
		Progress: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// New creates a new wizard with the given steps.
func New(steps ...Step) *Wizard {
	return &Wizard{
		steps:  steps,
		state:  make(State),
		styles: DefaultStyles(),
	}
}

// WithState seeds the state, typically with current config values.
func (w *Wizard) WithState(state State) *Wizard {
	w.state = state
	return w
}

// State returns the wizard's current state.
func (w *Wizard) State() State {
	return w.state
}

// Interactive reports whether stdin and stdout are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Run executes the wizard interactively until every step completes, the
// user cancels or ctx is done.
func (w *Wizard) Run(ctx context.Context) error {
	if !Interactive() {
		return ErrNotInteractive
	}
	if !w.begin() {
		return nil
	}

	p := tea.NewProgram(w, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ErrCancelled
		}
		return fmt.Errorf("wizard: %w", err)
	}
	return w.err
}

// begin positions the wizard on the first runnable step. It returns false
// when every step is skipped.
func (w *Wizard) begin() bool {
	w.skipToNextStep()
	if w.current >= len(w.steps) {
		return false
	}
	w.model = w.steps[w.current].Init(w.state)
	return true
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	if w.model == nil {
		return nil
	}
	return w.model.Init()
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			w.err = ErrCancelled
			return w, tea.Quit
		}

	case StepCompleteMsg:
		w.steps[w.current].Result(w.model, w.state)

		w.current++
		w.skipToNextStep()
		if w.current >= len(w.steps) {
			w.model = nil
			return w, tea.Quit
		}

		w.model = w.steps[w.current].Init(w.state)
		return w, w.model.Init()
	}

	if w.model != nil {
		var cmd tea.Cmd
		w.model, cmd = w.model.Update(msg)
		return w, cmd
	}
	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	if w.current >= len(w.steps) {
		return ""
	}

	step := w.steps[w.current]
	s := w.styles.Progress.Render(fmt.Sprintf("Step %d of %d", w.current+1, len(w.steps))) + "\n\n"
	s += w.styles.Title.Render(step.Title()) + "\n"
	if desc := step.Description(); desc != "" {
		s += w.styles.Description.Render(desc) + "\n"
	}
	if w.model != nil {
		s += w.model.View()
	}
	return s
}

// Done reports whether every step has completed.
func (w *Wizard) Done() bool {
	return w.current >= len(w.steps) && w.err == nil
}

func (w *Wizard) skipToNextStep() {
	for w.current < len(w.steps) && w.steps[w.current].Skip(w.state) {
		w.current++
	}
}

// StepCompleteMsg signals that the current step is complete.
type StepCompleteMsg struct{}

// CompleteStep returns a command that signals step completion.
func CompleteStep() tea.Cmd {
	return func() tea.Msg {
		return StepCompleteMsg{}
	}
}
