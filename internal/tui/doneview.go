package tui

import (
	"fmt"
	"strings"

	"github.com/sobandev/docflow/internal/tui/style"
	"github.com/sobandev/docflow/internal/workflow"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// doneKeyMap defines the key bindings for the terminal view.
type doneKeyMap struct {
	Restart key.Binding
	Quit    key.Binding
}

func defaultDoneKeyMap() doneKeyMap {
	return doneKeyMap{
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "start over"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "enter"),
			key.WithHelp("q/enter", "quit"),
		),
	}
}

// doneModel is the Complete view: the generated document has been written to
// disk and the user can restart or quit.
type doneModel struct {
	ctrl *workflow.Controller
	keys doneKeyMap

	savedPath string
	saveErr   error
}

func newDoneModel(ctrl *workflow.Controller) doneModel {
	return doneModel{
		ctrl: ctrl,
		keys: defaultDoneKeyMap(),
	}
}

func (dm doneModel) Init() tea.Cmd {
	return nil
}

func (dm doneModel) Update(teaMsg tea.Msg) (doneModel, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case documentSavedMsg:
		dm.savedPath = msg.path
		dm.saveErr = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, dm.keys.Restart):
			return dm, func() tea.Msg { return restartIntentMsg{} }

		case key.Matches(msg, dm.keys.Quit):
			return dm, tea.Quit
		}
	}

	return dm, nil
}

func (dm doneModel) View() string {
	var sb strings.Builder

	sb.WriteString(style.Success.Render("Document ready"))
	sb.WriteString("\n\n")

	switch {
	case dm.saveErr != nil:
		sb.WriteString(style.Error.Render(fmt.Sprintf("Could not save document: %v", dm.saveErr)))
	case dm.savedPath != "":
		sb.WriteString(style.Label.Render("Saved: "))
		sb.WriteString(dm.savedPath)
	default:
		sb.WriteString(style.Muted.Render("Saving..."))
	}
	sb.WriteString("\n")

	if result := dm.ctrl.Result(); result != nil && result.ServerFilename != "" {
		sb.WriteString(style.Muted.Render("Engine suggested: " + result.ServerFilename))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(renderKeyHelp(dm.keys.Restart, " "))
	sb.WriteString(renderKeyHelp(dm.keys.Quit))

	return sb.String()
}
