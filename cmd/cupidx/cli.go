package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cupidx/internal/app"
	"cupidx/internal/config"
	"cupidx/internal/render"
	"cupidx/internal/script"
	"cupidx/internal/tui"
)

var (
	red  = color.New(color.FgRed).SprintFunc()
	gray = color.New(color.FgHiBlack).SprintFunc()
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

type cli struct {
	offline    bool
	verbose    bool
	logFile    string
	configFile string
	trace      string
	traceURL   string

	answersFile  string
	vibeCheck    bool
	contextText  string
	contextImage string
	format       string
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "cupidx",
		Short: "CupidX maps your Emotional Blueprint from a short guided questionnaire",
		Long: `CupidX walks you through a few basics and ten reflective questions, then
builds your Emotional Blueprint: partner fit, action kit, vibe-check
questions and a context coach for real conversations.

  cupidx                              # interactive
  cupidx run --answers answers.yaml   # scripted
  cupidx run --offline --format json  # no API key, canned responses`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTTY() {
				return cmd.Help()
			}
			return c.runTUI(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&c.offline, "offline", false, "use scripted model responses instead of Gemini")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log model calls and print call metrics on exit")
	root.PersistentFlags().StringVar(&c.logFile, "log-file", "", "append logs to this file")
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "optional config file (yaml, toml or json)")
	root.PersistentFlags().StringVar(&c.trace, "trace", "", "export model-call spans: otlp or zipkin")
	root.PersistentFlags().StringVar(&c.traceURL, "trace-endpoint", "", "trace collector endpoint")

	root.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the interactive questionnaire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTTY() {
				return fmt.Errorf("start needs a terminal; use `cupidx run` instead")
			}
			return c.runTUI(cmd.Context())
		},
	})

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a session from an answers file and/or line prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScript(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	run.Flags().StringVar(&c.answersFile, "answers", "", "YAML file with profile, answers and context")
	run.Flags().BoolVar(&c.vibeCheck, "vibe-check", false, "also generate vibe-check questions")
	run.Flags().StringVar(&c.contextText, "context-text", "", "chat recap or date description for the context coach")
	run.Flags().StringVar(&c.contextImage, "context-image", "", "chat screenshot for the context coach")
	run.Flags().StringVar(&c.format, "format", script.FormatText, "output format: text or json")
	root.AddCommand(run)

	return root
}

// logger returns the process logger and a closer. The TUI owns the screen,
// so it only logs to a file.
func (c *cli) logger(tty bool) (*log.Logger, func(), error) {
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return log.New(f, "cupidx ", log.LstdFlags), func() { _ = f.Close() }, nil
	}
	if c.verbose && !tty {
		return log.New(os.Stderr, "cupidx ", log.LstdFlags), func() {}, nil
	}
	return log.New(io.Discard, "", 0), func() {}, nil
}

func (c *cli) setup(ctx context.Context, tty bool) (*app.App, *log.Logger, func(), error) {
	logger, closeLog, err := c.logger(tty)
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := app.New(ctx, config.Options{
		ConfigFile:    c.configFile,
		Offline:       c.offline,
		TraceExporter: c.trace,
		TraceEndpoint: c.traceURL,
	}, logger)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if c.verbose {
			c.printMetrics(a)
		}
		_ = a.Close()
		closeLog()
	}
	return a, logger, cleanup, nil
}

func (c *cli) runTUI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, logger, cleanup, err := c.setup(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	model := tui.New(ctx, a.NewSession(), logger)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (c *cli) runScript(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var input script.Input
	if c.answersFile != "" {
		loaded, err := script.LoadInput(c.answersFile)
		if err != nil {
			return err
		}
		input = loaded
	}
	if c.contextText != "" {
		input.Context.Text = c.contextText
	}
	if c.contextImage != "" {
		input.Context.Image = c.contextImage
	}

	a, logger, cleanup, err := c.setup(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	style := "notty"
	if isTTY() {
		style = ""
	}
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	_, err = script.NewRunner(a.NewSession(), script.Options{
		Input:     input,
		VibeCheck: c.vibeCheck,
		Format:    c.format,
		Prompt:    in,
		Out:       out,
		Markdown:  render.NewRenderer(style, width),
		Logger:    logger,
	}).Run(ctx)
	return err
}

func (c *cli) printMetrics(a *app.App) {
	lines, err := a.MetricsSummary()
	if err != nil {
		fmt.Fprintln(os.Stderr, red("metrics: "+err.Error()))
		return
	}
	for _, l := range lines {
		fmt.Fprintln(os.Stderr, gray(l))
	}
}
