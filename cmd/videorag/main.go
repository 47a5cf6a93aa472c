package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"videorag/internal/config"
	"videorag/internal/logging"
	"videorag/internal/server"
	"videorag/internal/service"
	"videorag/internal/tui"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config string `help:"Path to YAML config file (uses ./config.yaml or ~/.config/videorag/config.yaml if not provided)." type:"path"`
	Debug  bool   `help:"Enable debug logging."`
}

type CLI struct {
	Globals

	TUI    tuiCmd    `cmd:"" default:"withargs" help:"Interactive terminal UI (default)."`
	Serve  serveCmd  `cmd:"" help:"Serve the HTTP API."`
	Ingest ingestCmd `cmd:"" help:"Fetch and index a transcript, then print its summary."`
	Ask    askCmd    `cmd:"" help:"Index a transcript and answer one question."`
}

type tuiCmd struct {
	URL string `arg:"" optional:"" help:"Video URL or id to pre-fill."`
}

type serveCmd struct {
	Host string `help:"Override the listen host."`
	Port int    `help:"Override the listen port."`
}

type ingestCmd struct {
	URL string `arg:"" help:"Video URL or id."`
}

type askCmd struct {
	URL      string   `arg:"" help:"Video URL or id."`
	Question []string `arg:"" help:"Question to ask about the video."`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("videorag"),
		kong.Description("Ask questions about a YouTube video's transcript."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}

func (g *Globals) loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if g.Config == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(g.Config)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (c *tuiCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFileLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	sess, err := a.newSession("default")
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext()
	defer cancel()
	_, err = tea.NewProgram(tui.New(ctx, sess, c.URL), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (c *serveCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(a.newSession, &cfg.Server, logger)
	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Stop(shutdownCtx)
}

func (c *ingestCmd) Run(g *Globals) error {
	sess, cleanup, err := g.cliSession()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()
	res, err := sess.Ingest(ctx, c.URL)
	if err != nil {
		return errors.New(service.IngestErrorText(err))
	}
	color.Green(service.IngestSuccessText(res))
	if res.Summary != "" {
		fmt.Println()
		fmt.Println(res.Summary)
	}
	return nil
}

func (c *askCmd) Run(g *Globals) error {
	sess, cleanup, err := g.cliSession()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()
	status := sess.IngestStatus(ctx, c.URL)
	if sess.State().Chunks == 0 {
		return errors.New(status)
	}
	color.New(color.Faint).Println(status)

	question := strings.Join(c.Question, " ")
	answer := sess.Ask(ctx, question)
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", boldCyan("You:"), question)
	fmt.Printf("%s %s\n", boldGreen("Assistant:"), answer)
	return nil
}

// cliSession builds a single session for the one-shot commands, logging to
// stderr only in debug mode.
func (g *Globals) cliSession() (*service.Session, func(), error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := zap.NewNop()
	if cfg.Debug {
		if logger, err = logging.NewLogger(true); err != nil {
			return nil, nil, err
		}
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sess, err := a.newSession("default")
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return sess, func() {
		_ = sess.Close()
		_ = a.Close()
		_ = logger.Sync()
	}, nil
}
