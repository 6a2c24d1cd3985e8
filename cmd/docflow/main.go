package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/sobandev/docflow/internal/docengine"
	"github.com/sobandev/docflow/internal/record"
	"github.com/sobandev/docflow/internal/tui"
	"github.com/sobandev/docflow/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the docflow command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch terminal UI for the document workflow"`

	// Subcommands
	Record     RecordCmd     `cmd:"" help:"Record audio from the microphone to an MP3 file"`
	Devices    DevicesCmd    `cmd:"" help:"List available audio devices"`
	Categories CategoriesCmd `cmd:"" help:"List available template categories"`
}

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	Audio     string `arg:"" optional:"" help:"Audio file to preselect"`
	Server    string `flag:"" default:"http://localhost:8000" env:"DOCFLOW_SERVER" help:"Document engine base URL"`
	Category  string `flag:"" default:"clinical" env:"DOCFLOW_CATEGORY" help:"Template category: clinical or corporate"`
	StartDir  string `flag:"" default:"." help:"Directory where file picking starts"`
	OutputDir string `flag:"" default:"." env:"DOCFLOW_OUTPUT_DIR" help:"Directory receiving generated documents"`
}

// Run executes the TUI command.
func (c *TUICmd) Run() error {
	category := docengine.Category(c.Category)
	if !category.Valid() {
		return fmt.Errorf("invalid category %q: must be 'clinical' or 'corporate'", c.Category)
	}

	startDir, err := filepath.Abs(c.StartDir)
	if err != nil {
		return fmt.Errorf("failed to resolve start directory: %w", err)
	}

	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	ctrl := workflow.New(category)

	if c.Audio != "" {
		data, err := os.ReadFile(c.Audio)
		if err != nil {
			return fmt.Errorf("failed to read audio file: %w", err)
		}

		if err := ctrl.SelectAudio(docengine.Upload{Name: filepath.Base(c.Audio), Data: data}); err != nil {
			return fmt.Errorf("failed to preselect audio: %w", err)
		}
	}

	cfg := tui.Config{
		Controller: ctrl,
		Engine:     docengine.NewClient(c.Server),
		StartDir:   startDir,
		OutputDir:  c.OutputDir,
	}

	p := tea.NewProgram(tui.New(cfg))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	return nil
}

// RecordCmd records microphone audio until interrupted.
type RecordCmd struct {
	Output     string `arg:"" default:"recording.mp3" help:"Output MP3 file path"`
	SampleRate int    `flag:"" default:"16000" help:"Capture sample rate in Hz"`
}

// Run executes the record command.
func (c *RecordCmd) Run() error {
	recorder, err := record.NewRecorder(record.Config{SampleRate: c.SampleRate})
	if err != nil {
		return err
	}

	out, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Recording... press ctrl+c to stop", "output", c.Output)

	if err := recorder.Capture(ctx, out); err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}

	slog.Info("Recording saved", "output", c.Output)

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	devices, err := record.Devices()
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
		)
	}

	return nil
}

// CategoriesCmd lists the template categories the workflow accepts.
type CategoriesCmd struct{}

// Run executes the categories command.
func (c *CategoriesCmd) Run() error {
	for _, category := range docengine.Categories() {
		fmt.Println(category)
	}

	return nil
}

func main() {
	// Set up text-based logger for CLI output
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cli := &CLI{}
	ctx := kong.Parse(cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
