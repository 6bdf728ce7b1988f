package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/fasttext-bridge/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	bridge   *bridge.Bridge
	path     string
	result   string
	ops      []bridge.Operation
	inputs   []textinput.Model
	handle   handle
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(b *bridge.Bridge, path string) *interactiveModel {
	return &interactiveModel{
		bridge: b,
		path:   path,
		state:  stateSelectOp,
	}
}

type loadedMsg struct {
	err    error
	handle handle
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModel
}

func (m *interactiveModel) loadModel() tea.Msg {
	h, err := m.bridge.Load(m.path)
	return loadedMsg{handle: h, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.state != stateInputArgs {
				return m, m.quit()
			}

		case "up":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if len(m.ops) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOperation
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.handle = msg.handle
		m.ops = bridge.Operations()

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) quit() tea.Cmd {
	if m.handle != 0 {
		m.bridge.Release(m.handle)
		m.handle = 0
	}
	return tea.Quit
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.Params))
	for i, p := range op.Params {
		ti := textinput.New()
		ti.Placeholder = witTypeStr(p.Type)
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callOperation() tea.Msg {
	op := m.ops[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), op.Params[i].Type)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", op.Params[i].Name, err)}
		}
		args[i] = v
	}

	payload, err := m.bridge.Call(m.handle, op.Name, args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: string(payload)}
}

func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.S32:
		v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	default:
		return value, nil
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.ops) == 0 {
		return "Loading model..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("fastText"))
	b.WriteString(" ")
	b.WriteString(m.path)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatOp(op)))
			} else {
				b.WriteString("  " + formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(op.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(witTypeStr(op.Params[i].Type)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(op.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatOp(op bridge.Operation) string {
	var params []string
	for _, p := range op.Params {
		params = append(params, p.Name+": "+typeStyle.Render(witTypeStr(p.Type)))
	}
	result := ""
	if op.Result != nil {
		result = " -> " + typeStyle.Render(witTypeStr(op.Result))
	}
	return funcStyle.Render(op.Name) + "(" + strings.Join(params, ", ") + ")" + result
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.F32:
		return "f32"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		switch kind := v.Kind.(type) {
		case *wit.List:
			return "list<" + witTypeStr(kind.Type) + ">"
		case *wit.Record:
			if v.Name != nil {
				return *v.Name
			}
			return "record"
		}
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(b *bridge.Bridge, path string) error {
	p := tea.NewProgram(newInteractiveModel(b, path), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
