package tui

import (
	"strings"

	"github.com/sobandev/docflow/internal/tui/components/labeledspinner"
	"github.com/sobandev/docflow/internal/tui/style"
	"github.com/sobandev/docflow/internal/workflow"
	"github.com/sobandev/docflow/pkg/collections"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// reviewKeyMap defines the key bindings for the review view.
type reviewKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Edit     key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	Generate key.Binding
	Quit     key.Binding
}

func defaultReviewKeyMap() reviewKeyMap {
	return reviewKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous field"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next field"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter/e", "edit field"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save value"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "discard edit"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate document"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// reviewModel is the Reviewing view: transcript on top, one editable control
// per extracted field below, in the order the service defined.
type reviewModel struct {
	ctrl *workflow.Controller
	keys reviewKeyMap

	transcript viewport.Model
	input      textinput.Model
	cursor     int
	editing    bool

	spin labeledspinner.Model

	width  int
	height int
}

func newReviewModel(ctrl *workflow.Controller, width, height int) reviewModel {
	vpWidth := width - 4
	if vpWidth < 20 {
		vpWidth = 20
	}

	vpHeight := height / 3
	if vpHeight < 4 {
		vpHeight = 4
	}

	vp := viewport.New(vpWidth, vpHeight)
	vp.SetContent(wrapText(ctrl.Transcript(), vpWidth))

	input := textinput.New()
	input.CharLimit = 0
	input.Width = vpWidth - 2

	return reviewModel{
		ctrl:       ctrl,
		keys:       defaultReviewKeyMap(),
		transcript: vp,
		input:      input,
		spin: labeledspinner.New(
			spinner.Pulse,
			"Generating document...",
			"The engine is filling your template",
			"This may take a moment",
		),
		width:  width,
		height: height,
	}
}

func (rm reviewModel) Init() tea.Cmd {
	return nil
}

func (rm reviewModel) Update(teaMsg tea.Msg) (reviewModel, tea.Cmd) {
	var cmds []tea.Cmd

	if rm.ctrl.IsGenerating() {
		var cmd tea.Cmd
		rm.spin, cmd = rm.spin.Update(teaMsg)
		cmds = append(cmds, cmd)
	}

	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		rm.width = msg.Width
		rm.height = msg.Height
		rm.transcript.Width = msg.Width - 4
		rm.transcript.SetContent(wrapText(rm.ctrl.Transcript(), msg.Width-4))

	case tea.KeyMsg:
		if rm.editing {
			return rm.updateEditing(msg)
		}

		return rm.updateBrowsing(msg, cmds)
	}

	var cmd tea.Cmd
	rm.transcript, cmd = rm.transcript.Update(teaMsg)
	cmds = append(cmds, cmd)

	return rm, tea.Batch(cmds...)
}

func (rm reviewModel) updateEditing(msg tea.KeyMsg) (reviewModel, tea.Cmd) {
	switch {
	case key.Matches(msg, rm.keys.Confirm):
		names := rm.ctrl.FieldNames()
		if rm.cursor < len(names) {
			if err := rm.ctrl.EditField(names[rm.cursor], rm.input.Value()); err != nil {
				// Unknown fields cannot happen here; phase errors mean a
				// stale view and the edit is simply dropped.
				rm.editing = false
				rm.input.Blur()

				return rm, nil
			}
		}

		rm.editing = false
		rm.input.Blur()

		return rm, nil

	case key.Matches(msg, rm.keys.Cancel):
		rm.editing = false
		rm.input.Blur()

		return rm, nil
	}

	var cmd tea.Cmd
	rm.input, cmd = rm.input.Update(msg)

	return rm, cmd
}

func (rm reviewModel) updateBrowsing(msg tea.KeyMsg, cmds []tea.Cmd) (reviewModel, tea.Cmd) {
	names := rm.ctrl.FieldNames()

	switch {
	case key.Matches(msg, rm.keys.Up):
		if rm.cursor > 0 {
			rm.cursor--
		}

	case key.Matches(msg, rm.keys.Down):
		if rm.cursor < len(names)-1 {
			rm.cursor++
		}

	case key.Matches(msg, rm.keys.Edit):
		if len(names) == 0 {
			break
		}

		value, _ := rm.ctrl.FieldValue(names[rm.cursor])
		rm.input.SetValue(value)
		rm.input.CursorEnd()
		rm.editing = true

		cmds = append(cmds, rm.input.Focus(), textinput.Blink)

	case key.Matches(msg, rm.keys.Generate):
		if !rm.ctrl.IsGenerating() {
			cmds = append(cmds, func() tea.Msg { return generateIntentMsg{} })
		}

	case key.Matches(msg, rm.keys.Quit):
		return rm, tea.Quit

	default:
		var cmd tea.Cmd
		rm.transcript, cmd = rm.transcript.Update(msg)
		cmds = append(cmds, cmd)
	}

	return rm, tea.Batch(cmds...)
}

func (rm reviewModel) View() string {
	var sb strings.Builder

	sb.WriteString(style.Label.Render("Transcript"))
	sb.WriteString("\n")
	sb.WriteString(style.Viewport.Render(rm.transcript.View()))
	sb.WriteString("\n\n")

	names := rm.ctrl.FieldNames()
	if len(names) == 0 {
		sb.WriteString(style.Muted.Render("No fields were extracted. You can still generate the document."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(style.Label.Render("Fields"))
		sb.WriteString("\n")
		sb.WriteString(rm.renderFields(names))
	}

	if errMsg := rm.ctrl.ErrorMessage(); errMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(style.Error.Render(errMsg))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")

	if rm.ctrl.IsGenerating() {
		sb.WriteString(rm.spin.View())
		return sb.String()
	}

	if rm.editing {
		sb.WriteString(renderKeyHelp(rm.keys.Confirm, " "))
		sb.WriteString(renderKeyHelp(rm.keys.Cancel))
	} else {
		sb.WriteString(renderKeyHelp(rm.keys.Edit, " "))
		sb.WriteString(renderKeyHelp(rm.keys.Generate, " "))
		sb.WriteString(renderKeyHelp(rm.keys.Quit))
	}

	return sb.String()
}

func (rm reviewModel) renderFields(names []string) string {
	labelWidth := collections.MaxOf(names, func(s string) int { return len(s) })

	var sb strings.Builder

	for i, name := range names {
		marker := "  "
		label := name + strings.Repeat(" ", labelWidth-len(name))

		if i == rm.cursor {
			marker = style.Selected.Render("> ")
			label = style.Selected.Render(label)
		}

		sb.WriteString(marker)
		sb.WriteString(label)
		sb.WriteString("  ")

		if rm.editing && i == rm.cursor {
			sb.WriteString(rm.input.View())
		} else {
			value, _ := rm.ctrl.FieldValue(name)
			if value == "" {
				sb.WriteString(style.Muted.Render("(empty)"))
			} else {
				sb.WriteString(value)
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}
