package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// choice is one row of a picker. index points back into the caller's slice.
type choice struct {
	title string
	desc  string
	terms []string // extra words the filter matches
	index int
}

func (c choice) Title() string       { return c.title }
func (c choice) Description() string { return c.desc }

func (c choice) FilterValue() string {
	values := []string{c.title}
	for _, t := range c.terms {
		if t != "" {
			values = append(values, t)
		}
	}
	return strings.Join(values, " ")
}

// pickResult is how a picker ended.
type pickResult int

const (
	pickCancelled pickResult = iota
	pickChosen
	pickTyped
)

var pickerKeys = struct {
	Choose key.Binding
	Type   key.Binding
	Cancel key.Binding
}{
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose")),
	Type:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "type a target")),
	Cancel: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "cancel")),
}

// pickerModel is a filterable list that ends on enter, esc or, when
// typing is allowed, m.
type pickerModel struct {
	list     list.Model
	canType  bool
	result   pickResult
	chosen   int
	finished bool
}

func newPicker(title string, choices []choice, canType bool) pickerModel {
	items := make([]list.Item, len(choices))
	for i, c := range choices {
		items[i] = c
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = title
	l.SetShowStatusBar(false)
	l.Styles.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	if canType {
		l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{pickerKeys.Type} }
	}

	return pickerModel{list: l, canType: canType, chosen: -1}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Keys belong to the filter input while it is open.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, pickerKeys.Choose):
			if c, ok := m.list.SelectedItem().(choice); ok {
				m.result, m.chosen = pickChosen, c.index
			}
			return m.finish()
		case m.canType && key.Matches(msg, pickerKeys.Type):
			m.result = pickTyped
			return m.finish()
		case key.Matches(msg, pickerKeys.Cancel):
			m.result = pickCancelled
			return m.finish()
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) finish() (tea.Model, tea.Cmd) {
	m.finished = true
	return m, tea.Quit
}

func (m pickerModel) View() string {
	if m.finished {
		return ""
	}
	view := m.list.View()
	if m.canType {
		view += lipgloss.NewStyle().Foreground(ColorMuted).Render("\n  Press 'm' to type user@host instead")
	}
	return view
}

// run shows the picker until the user ends it.
func (m pickerModel) run(output io.Writer, input io.Reader) (pickerModel, error) {
	final, err := tea.NewProgram(m, tea.WithOutput(output), tea.WithInput(input)).Run()
	if err != nil {
		return m, err
	}
	if fm, ok := final.(pickerModel); ok {
		return fm, nil
	}
	return m, nil
}
