// Package tui binds the workflow controller to terminal views. Views never
// mutate workflow state directly beyond the controller's named transitions,
// and all gateway traffic funnels through the root model here.
package tui

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sobandev/docflow/internal/docengine"
	"github.com/sobandev/docflow/internal/tui/style"
	"github.com/sobandev/docflow/internal/workflow"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Engine is the remote gateway surface the TUI depends on.
type Engine interface {
	ProcessSubmission(ctx context.Context, req docengine.ProcessRequest) (*docengine.ProcessResult, error)
	GenerateDocument(ctx context.Context, req docengine.GenerateRequest) (*docengine.GenerateResult, error)
}

// Config wires the TUI to its collaborators.
type Config struct {
	Controller *workflow.Controller
	Engine     Engine
	// StartDir is where file picking begins.
	StartDir string
	// OutputDir receives the generated document.
	OutputDir string
	// Now supplies the date for suggested file names; defaults to time.Now.
	Now func() time.Time
}

// Intent messages emitted by views; only the root model talks to the engine.
type (
	submitIntentMsg   struct{}
	generateIntentMsg struct{}
	restartIntentMsg  struct{}
)

// processDoneMsg carries the outcome of a processing call.
type processDoneMsg struct {
	token  workflow.Token
	result *docengine.ProcessResult
	err    error
}

// generateDoneMsg carries the outcome of a generation call.
type generateDoneMsg struct {
	token  workflow.Token
	result *docengine.GenerateResult
	err    error
}

// documentSavedMsg reports the local write of the generated document.
type documentSavedMsg struct {
	path string
	err  error
}

// Model is the root TUI model. It routes messages to the view matching the
// controller's current phase.
type Model struct {
	cfg Config

	ctrl   *workflow.Controller
	sel    selectModel
	review reviewModel
	done   doneModel

	forceQuit key.Binding

	width  int
	height int
}

// New creates the root model.
func New(cfg Config) *Model {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Model{
		cfg:  cfg,
		ctrl: cfg.Controller,
		sel:  newSelectModel(cfg.Controller, cfg.StartDir),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		width:  80,
		height: 24,
	}
}

// Init returns the initial command.
func (m *Model) Init() tea.Cmd {
	return m.sel.Init()
}

// Update handles all messages.
func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, m.forceQuit) {
			return m, tea.Quit
		}

	case submitIntentMsg:
		token, err := m.ctrl.BeginSubmission()
		if err != nil {
			// Guard rechecked here; the view should not have offered submit.
			slog.Debug("Submission rejected", "error", err)
			return m, nil
		}

		return m, tea.Batch(m.sel.spin.Init(), m.processCmd(token))

	case generateIntentMsg:
		token, err := m.ctrl.BeginGeneration()
		if err != nil {
			slog.Debug("Generation rejected", "error", err)
			return m, nil
		}

		return m, tea.Batch(m.review.spin.Init(), m.generateCmd(token))

	case restartIntentMsg:
		m.ctrl.Restart()
		m.sel = newSelectModel(m.ctrl, m.cfg.StartDir)

		return m, m.sel.Init()

	case processDoneMsg:
		return m.onProcessDone(msg)

	case generateDoneMsg:
		return m.onGenerateDone(msg)
	}

	return m.routeToView(teaMsg)
}

// View renders the view for the controller's current phase.
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("docflow"))
	sb.WriteString(style.Subtitle.Render("  " + phaseLabel(m.ctrl)))
	sb.WriteString("\n\n")

	switch m.ctrl.Phase() {
	case workflow.PhaseIdle, workflow.PhaseSubmitting:
		sb.WriteString(m.sel.View())
	case workflow.PhaseReviewing:
		sb.WriteString(m.review.View())
	case workflow.PhaseComplete:
		sb.WriteString(m.done.View())
	}

	return sb.String()
}

func (m *Model) routeToView(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.ctrl.Phase() {
	case workflow.PhaseIdle, workflow.PhaseSubmitting:
		m.sel, cmd = m.sel.Update(teaMsg)
	case workflow.PhaseReviewing:
		m.review, cmd = m.review.Update(teaMsg)
	case workflow.PhaseComplete:
		m.done, cmd = m.done.Update(teaMsg)
	}

	return m, cmd
}

func (m *Model) onProcessDone(msg processDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if err := m.ctrl.FailSubmission(msg.token, msg.err); err != nil {
			slog.Debug("Dropping stale processing failure", "error", msg.err)
		}

		return m, nil
	}

	if err := m.ctrl.ApplySubmission(msg.token, msg.result); err != nil {
		slog.Debug("Dropping stale processing result")
		return m, nil
	}

	m.review = newReviewModel(m.ctrl, m.width, m.height)

	return m, m.review.Init()
}

func (m *Model) onGenerateDone(msg generateDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if err := m.ctrl.FailGeneration(msg.token, msg.err); err != nil {
			slog.Debug("Dropping stale generation failure", "error", msg.err)
		}

		return m, nil
	}

	if err := m.ctrl.ApplyGeneration(msg.token, msg.result); err != nil {
		slog.Debug("Dropping stale generation result")
		return m, nil
	}

	m.done = newDoneModel(m.ctrl)

	return m, m.saveDocumentCmd()
}

func (m *Model) processCmd(token workflow.Token) tea.Cmd {
	req := m.ctrl.ProcessRequest()

	return func() tea.Msg {
		result, err := m.cfg.Engine.ProcessSubmission(context.Background(), req)
		return processDoneMsg{token: token, result: result, err: err}
	}
}

func (m *Model) generateCmd(token workflow.Token) tea.Cmd {
	req := m.ctrl.GenerateRequest()

	return func() tea.Msg {
		result, err := m.cfg.Engine.GenerateDocument(context.Background(), req)
		return generateDoneMsg{token: token, result: result, err: err}
	}
}

func (m *Model) saveDocumentCmd() tea.Cmd {
	result := m.ctrl.Result()
	name := m.ctrl.SuggestedFileName(m.cfg.Now())
	path := filepath.Join(m.cfg.OutputDir, name)

	return func() tea.Msg {
		//nolint:gosec // Generated documents need to be readable
		err := os.WriteFile(path, result.Document, 0o644)
		return documentSavedMsg{path: path, err: err}
	}
}

func phaseLabel(c *workflow.Controller) string {
	switch c.Phase() {
	case workflow.PhaseIdle:
		return "select audio"
	case workflow.PhaseSubmitting:
		return "processing"
	case workflow.PhaseReviewing:
		if c.IsGenerating() {
			return "generating"
		}

		return "review fields"
	case workflow.PhaseComplete:
		return "done"
	}

	return string(c.Phase())
}
