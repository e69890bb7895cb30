package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// base carries the fields every step shares.
type base struct {
	id          string
	title       string
	description string
	stateKey    string
	skipFunc    func(State) bool
}

func (b *base) ID() string          { return b.id }
func (b *base) Title() string       { return b.title }
func (b *base) Description() string { return b.description }

func (b *base) Skip(state State) bool {
	return b.skipFunc != nil && b.skipFunc(state)
}

// ---------------------- Select Step ----------------------

// SelectOption represents a single selectable option.
type SelectOption struct {
	Value       string
	Label       string
	Description string
}

// SelectStep allows the user to choose one option from a list.
type SelectStep struct {
	base
	options    []SelectOption
	defaultVal string
}

// NewSelectStep creates a new select step storing its value under id.
func NewSelectStep(id, title string, options []SelectOption) *SelectStep {
	return &SelectStep{
		base:    base{id: id, title: title, stateKey: id},
		options: options,
	}
}

// WithDescription sets the step description.
func (s *SelectStep) WithDescription(desc string) *SelectStep {
	s.description = desc
	return s
}

// WithDefault places the cursor on the option with value.
func (s *SelectStep) WithDefault(value string) *SelectStep {
	s.defaultVal = value
	return s
}

// WithSkipFunc sets a function to determine if this step should be skipped.
func (s *SelectStep) WithSkipFunc(fn func(State) bool) *SelectStep {
	s.skipFunc = fn
	return s
}

func (s *SelectStep) Init(state State) tea.Model {
	current := state.String(s.stateKey)
	if current == "" {
		current = s.defaultVal
	}
	cursor := 0
	for i, opt := range s.options {
		if opt.Value == current {
			cursor = i
		}
	}
	return &selectModel{options: s.options, cursor: cursor, selected: -1}
}

func (s *SelectStep) Result(model tea.Model, state State) {
	if m, ok := model.(*selectModel); ok && m.selected >= 0 {
		state[s.stateKey] = m.options[m.selected].Value
	}
}

type selectModel struct {
	options  []SelectOption
	cursor   int
	selected int
}

func (m *selectModel) Init() tea.Cmd { return nil }

func (m *selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.selected = m.cursor
			return m, CompleteStep()
		}
	}
	return m, nil
}

func (m *selectModel) View() string {
	var b strings.Builder
	for i, opt := range m.options {
		line := "  " + opt.Label
		if i == m.cursor {
			line = "> " + opt.Label
		}
		if opt.Description != "" {
			line += " - " + hintStyle.Render(opt.Description)
		}
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("↑/↓: navigate • enter: select"))
	return b.String()
}

// ---------------------- Confirm Step ----------------------

// ConfirmStep asks the user a yes/no question.
type ConfirmStep struct {
	base
	defaultVal bool
}

// NewConfirmStep creates a new confirmation step defaulting to yes.
func NewConfirmStep(id, title string) *ConfirmStep {
	return &ConfirmStep{
		base:       base{id: id, title: title, stateKey: id},
		defaultVal: true,
	}
}

// WithDescription sets the step description.
func (s *ConfirmStep) WithDescription(desc string) *ConfirmStep {
	s.description = desc
	return s
}

// WithDefault sets the default answer.
func (s *ConfirmStep) WithDefault(val bool) *ConfirmStep {
	s.defaultVal = val
	return s
}

// WithSkipFunc sets a function to determine if this step should be skipped.
func (s *ConfirmStep) WithSkipFunc(fn func(State) bool) *ConfirmStep {
	s.skipFunc = fn
	return s
}

func (s *ConfirmStep) Init(state State) tea.Model {
	value := s.defaultVal
	if v, ok := state[s.stateKey].(bool); ok {
		value = v
	}
	return &confirmModel{value: value}
}

func (s *ConfirmStep) Result(model tea.Model, state State) {
	if m, ok := model.(*confirmModel); ok {
		state[s.stateKey] = m.value
	}
}

type confirmModel struct {
	value bool
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.value = true
			return m, CompleteStep()
		case "n", "N":
			m.value = false
			return m, CompleteStep()
		case "enter":
			return m, CompleteStep()
		case "left", "h":
			m.value = true
		case "right", "l":
			m.value = false
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	yes, no := hintStyle.Render(" Yes "), selectedStyle.Render("[No]")
	if m.value {
		yes, no = selectedStyle.Render("[Yes]"), hintStyle.Render(" No ")
	}
	return fmt.Sprintf("%s / %s\n\n%s", yes, no,
		hintStyle.Render("y/n: select • ←/→: toggle • enter: confirm"))
}

// ---------------------- Input Step ----------------------

// InputStep asks for a line of text. Masked steps echo bullets and are
// meant for tokens.
type InputStep struct {
	base
	placeholder  string
	defaultValue string
	masked       bool
	validate     func(string) error
}

// NewInputStep creates a new text input step storing its value under id.
func NewInputStep(id, title string) *InputStep {
	return &InputStep{base: base{id: id, title: title, stateKey: id}}
}

// WithDescription sets the step description.
func (s *InputStep) WithDescription(desc string) *InputStep {
	s.description = desc
	return s
}

// WithPlaceholder sets the placeholder text.
func (s *InputStep) WithPlaceholder(placeholder string) *InputStep {
	s.placeholder = placeholder
	return s
}

// WithDefault sets the value used when the state holds none.
func (s *InputStep) WithDefault(val string) *InputStep {
	s.defaultValue = val
	return s
}

// WithMask hides the typed characters.
func (s *InputStep) WithMask() *InputStep {
	s.masked = true
	return s
}

// WithValidate rejects values for which fn returns an error.
func (s *InputStep) WithValidate(fn func(string) error) *InputStep {
	s.validate = fn
	return s
}

// WithSkipFunc sets a function to determine if this step should be skipped.
func (s *InputStep) WithSkipFunc(fn func(State) bool) *InputStep {
	s.skipFunc = fn
	return s
}

func (s *InputStep) Init(state State) tea.Model {
	ti := textinput.New()
	ti.Placeholder = s.placeholder
	value := state.String(s.stateKey)
	if value == "" {
		value = s.defaultValue
	}
	ti.SetValue(value)
	if s.masked {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	ti.Width = 60

	return &inputModel{textInput: ti, validate: s.validate}
}

func (s *InputStep) Result(model tea.Model, state State) {
	if m, ok := model.(*inputModel); ok {
		state[s.stateKey] = strings.TrimSpace(m.textInput.Value())
	}
}

type inputModel struct {
	textInput textinput.Model
	validate  func(string) error
	err       error
}

func (m *inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		if m.validate != nil {
			if err := m.validate(strings.TrimSpace(m.textInput.Value())); err != nil {
				m.err = err
				return m, nil
			}
		}
		m.err = nil
		return m, CompleteStep()
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *inputModel) View() string {
	s := m.textInput.View() + "\n\n"
	if m.err != nil {
		s += errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	return s + hintStyle.Render("enter: confirm")
}

// ---------------------- Display Step ----------------------

// DisplayStep shows text built from the state and waits for enter.
type DisplayStep struct {
	base
	content func(State) string
}

// NewDisplayStep creates a display step.
func NewDisplayStep(id, title string, content func(State) string) *DisplayStep {
	return &DisplayStep{base: base{id: id, title: title, stateKey: id}, content: content}
}

func (s *DisplayStep) Init(state State) tea.Model {
	return &displayModel{content: s.content(state)}
}

func (s *DisplayStep) Result(tea.Model, State) {}

type displayModel struct {
	content string
}

func (m *displayModel) Init() tea.Cmd { return nil }

func (m *displayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && (key.Type == tea.KeyEnter || key.String() == " ") {
		return m, CompleteStep()
	}
	return m, nil
}

func (m *displayModel) View() string {
	return m.content + "\n\n" + hintStyle.Render("enter: continue")
}
