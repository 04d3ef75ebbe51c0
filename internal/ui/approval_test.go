package ui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
)

var testSummary = ports.Summary{
	Package:       "demo",
	Current:       "0.1.0",
	Next:          "0.2.0",
	Tag:           "v0.2.0",
	ChangelogPath: "CHANGELOG.md",
}

func readyModel(t *testing.T, notes string) ApprovalModel {
	t.Helper()
	model := NewApprovalModel(testSummary, notes)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(ApprovalModel)
}

func press(m ApprovalModel, msg tea.KeyMsg) (ApprovalModel, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(ApprovalModel), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApprovalModel_Approve(t *testing.T) {
	for _, k := range []string{"y", "Y"} {
		model, cmd := press(readyModel(t, ""), runes(k))
		assert.Equal(t, ApprovalAccepted, model.Result(), k)
		assert.NotNil(t, cmd, "approval should quit")
		assert.Equal(t, ports.DecisionAccept, model.Result().Decision())
	}
}

func TestApprovalModel_AnyOtherKeyRejects(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		runes("n"),
		runes("x"),
		{Type: tea.KeyEnter},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		model, cmd := press(readyModel(t, ""), msg)
		assert.Equal(t, ApprovalRejected, model.Result(), msg.String())
		assert.NotNil(t, cmd)
		assert.Equal(t, ports.DecisionReject, model.Result().Decision())
	}
}

func TestApprovalModel_NavigationKeepsWaiting(t *testing.T) {
	model := readyModel(t, strings.Repeat("- line\n", 100))
	for _, msg := range []tea.KeyMsg{runes("j"), runes("k"), {Type: tea.KeyDown}, {Type: tea.KeyPgDown}} {
		model, _ = press(model, msg)
		assert.Equal(t, ApprovalPending, model.Result(), msg.String())
	}
}

func TestApprovalModel_Help(t *testing.T) {
	model, cmd := press(readyModel(t, ""), runes("?"))
	assert.Nil(t, cmd)
	assert.Equal(t, ApprovalPending, model.Result())
	assert.Contains(t, model.View(), "Keyboard Shortcuts")
}

func TestApprovalModel_View(t *testing.T) {
	assert.Equal(t, "Initializing...", NewApprovalModel(testSummary, "").View())

	view := readyModel(t, "## [v0.2.0] - 2024-03-09\n\n- Add widgets").View()
	assert.Contains(t, view, "Release demo")
	assert.Contains(t, view, "0.2.0")
	assert.Contains(t, view, "v0.2.0")
	assert.Contains(t, view, "Add widgets")
	assert.Contains(t, view, "Proceed with release?")

	assert.Contains(t, readyModel(t, "").View(), "No changelog entry available")
}

func TestApprovalModel_Init(t *testing.T) {
	assert.Nil(t, NewApprovalModel(testSummary, "").Init())
}

func TestLatestEntry(t *testing.T) {
	doc := "# Changelog\n\n## [v0.2.0] - 2024-03-09\n\n- New\n\n## [v0.1.0] - 2024-01-01\n\n- Old\n"
	assert.Equal(t, "## [v0.2.0] - 2024-03-09\n\n- New", LatestEntry(doc))
	assert.Equal(t, "## [v1.0.0]\n- Only", LatestEntry("# Changelog\n## [v1.0.0]\n- Only\n"))
	assert.Equal(t, "", LatestEntry("# Changelog\n"))
}

type stubProgram struct {
	model tea.Model
	err   error
}

func (s stubProgram) Run() (tea.Model, error) { return s.model, s.err }

type invalidModel struct{}

func (invalidModel) Init() tea.Cmd                       { return nil }
func (invalidModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return invalidModel{}, nil }
func (invalidModel) View() string                        { return "" }

func stubApprovalProgram(t *testing.T, run stubProgram, seen *ApprovalModel) {
	t.Helper()
	orig := newApprovalProgram
	t.Cleanup(func() { newApprovalProgram = orig })
	newApprovalProgram = func(_ context.Context, model ApprovalModel, _ io.Reader, _ io.Writer) approvalProgramRunner {
		if seen != nil {
			*seen = model
		}
		return run
	}
}

func TestTUIDecider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CHANGELOG.md")
	require.NoError(t, os.WriteFile(path, []byte("# Changelog\n\n## [v0.2.0] - 2024-03-09\n\n- New\n"), 0o644))

	var seen ApprovalModel
	stubApprovalProgram(t, stubProgram{model: ApprovalModel{result: ApprovalAccepted}}, &seen)

	s := testSummary
	s.ChangelogPath = path
	decision, err := NewTUIDecider(strings.NewReader(""), io.Discard).Decide(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, ports.DecisionAccept, decision)
	assert.Equal(t, "## [v0.2.0] - 2024-03-09\n\n- New", seen.notes)
}

func TestTUIDecider_Errors(t *testing.T) {
	stubApprovalProgram(t, stubProgram{err: errors.New("no tty")}, nil)
	decision, err := NewTUIDecider(strings.NewReader(""), io.Discard).Decide(context.Background(), testSummary)
	require.Error(t, err)
	assert.Equal(t, ports.DecisionReject, decision)

	stubApprovalProgram(t, stubProgram{model: invalidModel{}}, nil)
	decision, err = NewTUIDecider(strings.NewReader(""), io.Discard).Decide(context.Background(), testSummary)
	require.Error(t, err)
	assert.Equal(t, ports.DecisionReject, decision)
}
