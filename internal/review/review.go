// internal/review/review.go
//
// Interactive review of a sampled selection before it is rendered. The list
// shows each selected question with its tags and correct response; the user
// accepts it, asks for a fresh sample, or aborts the run.

package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/testgen/internal/bank"
	"github.com/kingrea/testgen/internal/generate"
)

// questionItem implements list.Item for one selected question.
type questionItem struct {
	number int
	item   bank.Item
}

func (q questionItem) Title() string {
	return fmt.Sprintf("%d. %s", q.number, q.item.Text)
}

func (q questionItem) Description() string {
	answer := ""
	if q.item.Correct >= 1 && q.item.Correct <= len(q.item.Responses) {
		answer = q.item.Responses[q.item.Correct-1]
	}
	return fmt.Sprintf("tags: %s · answer: %s", strings.Join(q.item.Tags, ", "), answer)
}

func (q questionItem) FilterValue() string { return q.item.Text }

// Model is the bubbletea model for one review round.
type Model struct {
	list     list.Model
	round    int
	decision generate.Decision
	done     bool
	width    int
	height   int
}

// NewModel builds a review model for the selected items. Round numbers the
// sample being shown, starting at 1.
func NewModel(items []bank.Item, round int) *Model {
	entries := make([]list.Item, len(items))
	for i, it := range items {
		entries[i] = questionItem{number: i + 1, item: it}
	}
	l := list.New(entries, list.NewDefaultDelegate(), 0, 0)
	l.Title = fmt.Sprintf("Selection · sample %d · %d questions", round, len(items))
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return &Model{list: l, round: round, decision: generate.Abort}
}

// Decision reports what the user chose. It is Abort until a choice is made.
func (m *Model) Decision() generate.Decision { return m.decision }

// Done reports whether the user made a choice.
func (m *Model) Done() bool { return m.done }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(max(0, msg.Width-4), max(0, msg.Height-6))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m.finish(generate.Abort)
		case "enter":
			return m.finish(generate.Accept)
		case "r":
			return m.finish(generate.Resample)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) finish(d generate.Decision) (tea.Model, tea.Cmd) {
	m.decision = d
	m.done = true
	return m, tea.Quit
}

func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("TESTGEN REVIEW")
	body := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width-4)).
		Render(m.list.View())
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("enter accept · r resample · q abort")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// Run shows items in the terminal and blocks until the user decides.
func Run(items []bank.Item, round int, opts ...tea.ProgramOption) (generate.Decision, error) {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	p := tea.NewProgram(NewModel(items, round), opts...)
	final, err := p.Run()
	if err != nil {
		return generate.Abort, fmt.Errorf("review: %w", err)
	}
	m, ok := final.(*Model)
	if !ok {
		return generate.Abort, fmt.Errorf("review: unexpected model %T", final)
	}
	return m.Decision(), nil
}
