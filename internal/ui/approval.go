// Package ui implements the human checkpoint of a release: a terminal
// approval screen and a plain line prompt.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	"github.com/relicta-tech/crateship/internal/fileutil"
)

// ApprovalResult represents the result of an approval interaction.
type ApprovalResult int

const (
	// ApprovalPending means no decision has been made yet.
	ApprovalPending ApprovalResult = iota
	// ApprovalAccepted means the operator approved the release.
	ApprovalAccepted
	// ApprovalRejected means the operator rejected the release.
	ApprovalRejected
)

// Decision converts the result to a checkpoint decision. Anything but an
// explicit approval rejects.
func (r ApprovalResult) Decision() ports.Decision {
	if r == ApprovalAccepted {
		return ports.DecisionAccept
	}
	return ports.DecisionReject
}

// ApprovalModel is the Bubble Tea model for the approval screen.
type ApprovalModel struct {
	summary  ports.Summary
	notes    string
	viewport viewport.Model
	result   ApprovalResult
	ready    bool
	width    int
	height   int
	showHelp bool
	keymap   approvalKeyMap
	styles   approvalStyles
}

type approvalKeyMap struct {
	Approve  key.Binding
	Help     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

type approvalStyles struct {
	title     lipgloss.Style
	success   lipgloss.Style
	error     lipgloss.Style
	subtle    lipgloss.Style
	bold      lipgloss.Style
	border    lipgloss.Style
	statusBar lipgloss.Style
	stat      lipgloss.Style
	statValue lipgloss.Style
}

func defaultKeyMap() approvalKeyMap {
	return approvalKeyMap{
		Approve: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "release"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("k/up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "page down"),
		),
	}
}

func defaultStyles() approvalStyles {
	return approvalStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		bold:    lipgloss.NewStyle().Bold(true),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1),
		statusBar: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1),
		stat: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12),
		statValue: lipgloss.NewStyle().
			Bold(true),
	}
}

// NewApprovalModel creates a model asking to approve summary. notes is the
// changelog text shown in the scrollable pane.
func NewApprovalModel(summary ports.Summary, notes string) ApprovalModel {
	return ApprovalModel{
		summary: summary,
		notes:   notes,
		result:  ApprovalPending,
		keymap:  defaultKeyMap(),
		styles:  defaultStyles(),
	}
}

// Init implements tea.Model.
func (m ApprovalModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Only the approve key releases; scrolling and
// help keys are inert and every other key rejects.
func (m ApprovalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 8
		footerHeight := 4
		viewportHeight := max(m.height-headerHeight-footerHeight, 3)

		if !m.ready {
			m.viewport = viewport.New(m.width-4, viewportHeight)
			m.viewport.SetContent(m.renderNotesContent())
			m.ready = true
		} else {
			m.viewport.Width = m.width - 4
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Approve):
			m.result = ApprovalAccepted
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keymap.Up, m.keymap.Down, m.keymap.PageUp, m.keymap.PageDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		default:
			m.result = ApprovalRejected
			return m, tea.Quit
		}
	}

	return m, cmd
}

// View implements tea.Model.
func (m ApprovalModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.styles.title.Render("Release " + m.summary.Package))
	b.WriteString("\n\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n")
	b.WriteString(m.styles.border.Render(m.viewport.View()))
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderPrompt())
	}
	return b.String()
}

func (m ApprovalModel) renderSummary() string {
	var b strings.Builder

	current := m.summary.Current
	if current == "" {
		current = "-"
	}
	fmt.Fprintf(&b, "%s %s  ->  %s\n",
		m.styles.stat.Render("Version:"),
		m.styles.subtle.Render(current),
		m.styles.statValue.Render(m.summary.Next))
	fmt.Fprintf(&b, "%s %s\n",
		m.styles.stat.Render("Tag:"),
		m.styles.statValue.Render(m.summary.Tag))
	if m.summary.ChangelogPath != "" {
		fmt.Fprintf(&b, "%s %s\n",
			m.styles.stat.Render("Changelog:"),
			m.styles.subtle.Render(m.summary.ChangelogPath))
	}
	return b.String()
}

func (m ApprovalModel) renderNotesContent() string {
	if strings.TrimSpace(m.notes) == "" {
		return m.styles.subtle.Render("No changelog entry available")
	}
	return m.notes
}

func (m ApprovalModel) renderPrompt() string {
	var b strings.Builder

	b.WriteString(m.styles.statusBar.Render("Proceed with release?"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %s  %s  %s\n",
		m.styles.success.Render("[y]es"),
		m.styles.error.Render("[any other key] abort"),
		m.styles.subtle.Render("[?]help"))
	return b.String()
}

func (m ApprovalModel) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.bold.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, binding := range []key.Binding{
		m.keymap.Approve, m.keymap.Up, m.keymap.Down, m.keymap.PageUp, m.keymap.PageDown, m.keymap.Help,
	} {
		h := binding.Help()
		fmt.Fprintf(&b, "  %s  %s\n",
			m.styles.success.Render(fmt.Sprintf("%-12s", h.Key)),
			m.styles.subtle.Render(h.Desc))
	}
	fmt.Fprintf(&b, "  %s  %s\n",
		m.styles.error.Render(fmt.Sprintf("%-12s", "other")),
		m.styles.subtle.Render("abort the release"))
	return b.String()
}

// Result returns the approval result.
func (m ApprovalModel) Result() ApprovalResult {
	return m.result
}

type approvalProgramRunner interface {
	Run() (tea.Model, error)
}

var newApprovalProgram = func(ctx context.Context, model ApprovalModel, in io.Reader, out io.Writer) approvalProgramRunner {
	return tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
}

// TUIDecider asks for approval on a full-screen terminal UI.
type TUIDecider struct {
	in  io.Reader
	out io.Writer
}

var _ ports.Decider = (*TUIDecider)(nil)

// NewTUIDecider creates a TUIDecider on the given terminal.
func NewTUIDecider(in io.Reader, out io.Writer) *TUIDecider {
	return &TUIDecider{in: in, out: out}
}

// Decide shows the summary and the changelog head and waits for a key.
func (d *TUIDecider) Decide(ctx context.Context, s ports.Summary) (ports.Decision, error) {
	notes := ""
	if s.ChangelogPath != "" {
		if data, err := fileutil.ReadFileLimited(s.ChangelogPath, fileutil.MaxChangelogSize); err == nil {
			notes = LatestEntry(string(data))
		}
	}

	final, err := newApprovalProgram(ctx, NewApprovalModel(s, notes), d.in, d.out).Run()
	if err != nil {
		return ports.DecisionReject, fmt.Errorf("TUI error: %w", err)
	}
	model, ok := final.(ApprovalModel)
	if !ok {
		return ports.DecisionReject, fmt.Errorf("unexpected model type returned from TUI")
	}
	return model.Result().Decision(), nil
}

// LatestEntry returns the first "## " section of a changelog.
func LatestEntry(changelog string) string {
	lines := strings.Split(changelog, "\n")
	start := -1
	for i, line := range lines {
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		if start >= 0 {
			return strings.TrimSpace(strings.Join(lines[start:i], "\n"))
		}
		start = i
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}
