package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sobandev/docflow/internal/docengine"
	"github.com/sobandev/docflow/internal/tui/components/labeledspinner"
	"github.com/sobandev/docflow/internal/tui/style"
	"github.com/sobandev/docflow/internal/workflow"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// pickTarget says which selection the file picker is currently serving.
type pickTarget int

const (
	pickNone pickTarget = iota
	pickAudio
	pickTemplate
)

var audioExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac", ".webm"}

// selectKeyMap defines the key bindings for the selection view.
type selectKeyMap struct {
	PickAudio    key.Binding
	PickTemplate key.Binding
	ToggleMode   key.Binding
	Category     key.Binding
	Submit       key.Binding
	CancelPick   key.Binding
	Quit         key.Binding
}

func defaultSelectKeyMap() selectKeyMap {
	return selectKeyMap{
		PickAudio: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "choose audio"),
		),
		PickTemplate: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "choose template"),
		),
		ToggleMode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle built-in/custom template"),
		),
		Category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "switch category"),
		),
		Submit: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s/enter", "submit for processing"),
		),
		CancelPick: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// fileLoadedMsg carries the bytes of a picked file.
type fileLoadedMsg struct {
	target pickTarget
	upload docengine.Upload
	err    error
}

// selectModel is the Idle/Submitting view: audio and template selection plus
// the in-flight spinner once submission fires.
type selectModel struct {
	ctrl     *workflow.Controller
	keys     selectKeyMap
	startDir string

	picker  filepicker.Model
	picking pickTarget

	spin labeledspinner.Model

	// localErr reports client-side problems (unreadable file); the
	// controller's error slot is reserved for gateway outcomes.
	localErr string
}

func newSelectModel(ctrl *workflow.Controller, startDir string) selectModel {
	if startDir == "" {
		startDir = "."
	}

	return selectModel{
		ctrl:     ctrl,
		keys:     defaultSelectKeyMap(),
		startDir: startDir,
		spin: labeledspinner.New(
			spinner.Dot,
			"Processing audio...",
			"Transcribing and extracting fields",
			"This may take a moment depending on audio length",
		),
	}
}

func (sm selectModel) Init() tea.Cmd {
	return nil
}

func (sm selectModel) Update(teaMsg tea.Msg) (selectModel, tea.Cmd) {
	if sm.ctrl.Phase() == workflow.PhaseSubmitting {
		var cmd tea.Cmd
		sm.spin, cmd = sm.spin.Update(teaMsg)

		return sm, cmd
	}

	switch msg := teaMsg.(type) {
	case fileLoadedMsg:
		return sm.onFileLoaded(msg)

	case tea.KeyMsg:
		if sm.picking != pickNone {
			if key.Matches(msg, sm.keys.CancelPick) {
				sm.picking = pickNone
				return sm, nil
			}

			break // fall through to the picker
		}

		switch {
		case key.Matches(msg, sm.keys.PickAudio):
			return sm.startPicking(pickAudio)

		case key.Matches(msg, sm.keys.PickTemplate):
			return sm.startPicking(pickTemplate)

		case key.Matches(msg, sm.keys.ToggleMode):
			sm.toggleMode()
			return sm, nil

		case key.Matches(msg, sm.keys.Category):
			sm.cycleCategory()
			return sm, nil

		case key.Matches(msg, sm.keys.Submit):
			if sm.ctrl.CanSubmit() {
				return sm, func() tea.Msg { return submitIntentMsg{} }
			}

			return sm, nil

		case key.Matches(msg, sm.keys.Quit):
			return sm, tea.Quit
		}
	}

	if sm.picking != pickNone {
		var cmd tea.Cmd
		sm.picker, cmd = sm.picker.Update(teaMsg)

		if didSelect, path := sm.picker.DidSelectFile(teaMsg); didSelect {
			target := sm.picking
			sm.picking = pickNone

			return sm, loadFileCmd(target, path)
		}

		return sm, cmd
	}

	return sm, nil
}

func (sm selectModel) View() string {
	if sm.ctrl.Phase() == workflow.PhaseSubmitting {
		return sm.spin.View()
	}

	if sm.picking != pickNone {
		prompt := "Pick an audio file"
		if sm.picking == pickTemplate {
			prompt = "Pick a .docx template"
		}

		return style.Label.Render(prompt) + "\n\n" + sm.picker.View() + "\n" +
			renderKeyHelp(sm.keys.CancelPick)
	}

	var sb strings.Builder

	sb.WriteString(style.Label.Render("Category: "))
	sb.WriteString(string(sm.ctrl.Category()))
	sb.WriteString("\n")

	sb.WriteString(style.Label.Render("Audio:    "))
	if sm.ctrl.Audio().Empty() {
		sb.WriteString(style.Muted.Render("none selected"))
	} else {
		sb.WriteString(sm.ctrl.Audio().Name)
	}
	sb.WriteString("\n")

	sb.WriteString(style.Label.Render("Template: "))
	if sm.ctrl.TemplateMode() == docengine.TemplateModeCustom {
		if sm.ctrl.Template().Empty() {
			sb.WriteString(style.Muted.Render("custom (no file selected)"))
		} else {
			sb.WriteString("custom: " + sm.ctrl.Template().Name)
		}
	} else {
		sb.WriteString(fmt.Sprintf("built-in (%s)", sm.ctrl.Category()))
	}
	sb.WriteString("\n")

	if errMsg := sm.errorLine(); errMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(style.Error.Render(errMsg))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(renderKeyHelp(sm.keys.PickAudio, " "))
	sb.WriteString(renderKeyHelp(sm.keys.PickTemplate, " "))
	sb.WriteString(renderKeyHelp(sm.keys.ToggleMode, "\n"))
	sb.WriteString(renderKeyHelp(sm.keys.Category, " "))
	if sm.ctrl.CanSubmit() {
		sb.WriteString(renderKeyHelp(sm.keys.Submit, " "))
	}
	sb.WriteString(renderKeyHelp(sm.keys.Quit))

	return sb.String()
}

func (sm selectModel) startPicking(target pickTarget) (selectModel, tea.Cmd) {
	picker := filepicker.New()
	picker.CurrentDirectory = sm.startDir
	picker.Height = 12

	if target == pickAudio {
		picker.AllowedTypes = audioExtensions
	} else {
		picker.AllowedTypes = []string{".docx"}
	}

	sm.picker = picker
	sm.picking = target
	sm.localErr = ""

	return sm, sm.picker.Init()
}

func (sm selectModel) onFileLoaded(msg fileLoadedMsg) (selectModel, tea.Cmd) {
	if msg.err != nil {
		sm.localErr = fmt.Sprintf("Could not read file: %v", msg.err)
		return sm, nil
	}

	var err error
	if msg.target == pickAudio {
		err = sm.ctrl.SelectAudio(msg.upload)
	} else {
		err = sm.ctrl.SelectTemplate(msg.upload)
	}

	if err != nil {
		sm.localErr = err.Error()
		return sm, nil
	}

	sm.localErr = ""

	return sm, nil
}

func (sm *selectModel) toggleMode() {
	mode := docengine.TemplateModeCustom
	if sm.ctrl.TemplateMode() == docengine.TemplateModeCustom {
		mode = docengine.TemplateModeDefault
	}

	if err := sm.ctrl.SetTemplateMode(mode); err != nil {
		sm.localErr = err.Error()
	}
}

func (sm *selectModel) cycleCategory() {
	next := docengine.CategoryCorporate
	if sm.ctrl.Category() == docengine.CategoryCorporate {
		next = docengine.CategoryClinical
	}

	if err := sm.ctrl.SetCategory(next); err != nil {
		sm.localErr = err.Error()
	}
}

func (sm selectModel) errorLine() string {
	if sm.localErr != "" {
		return sm.localErr
	}

	return sm.ctrl.ErrorMessage()
}

// loadFileCmd reads a picked file off the event loop.
func loadFileCmd(target pickTarget, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)

		return fileLoadedMsg{
			target: target,
			upload: docengine.Upload{Name: filepath.Base(path), Data: data},
			err:    err,
		}
	}
}
