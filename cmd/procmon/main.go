// cmd/procmon/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/procmon/internal/config"
	"github.com/rusenback/procmon/internal/control"
	"github.com/rusenback/procmon/internal/docker"
	"github.com/rusenback/procmon/internal/logging"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/monitor"
	"github.com/rusenback/procmon/internal/report"
	"github.com/rusenback/procmon/internal/source"
	"github.com/rusenback/procmon/internal/storage"
	"github.com/rusenback/procmon/internal/tui"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	cfg, err := config.Load("procmon", os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.New(cfg.SourceConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to open counter source: %w", err)
	}

	opts := monitor.Options{
		Interval:    cfg.Interval,
		MaxFailures: cfg.MaxFailures,
		Logger:      logger,
	}
	if cfg.Containers {
		client, err := docker.NewClient(cfg.DockerConfig())
		if err != nil {
			// attribution is optional; keep monitoring without it
			logger.Warn("docker unavailable, container column disabled", zap.Error(err))
			fmt.Fprintf(os.Stderr, "⚠️  Docker unavailable: %v\n", err)
			cfg.Containers = false
		} else {
			defer client.Close()
			opts.Attributor = docker.NewResolver(client, docker.DefaultTTL, logger)
		}
	}
	batch := cfg.Batch || !term.IsTerminal(int(os.Stdout.Fd()))
	printer := report.NewPrinter(os.Stdout, report.Options{
		Filter:     cfg.Filter,
		SortKey:    cfg.SortKey(),
		Limit:      cfg.Limit,
		Containers: cfg.Containers,
	})
	if batch {
		opts.OnSkip = func(err error) {
			_ = printer.PrintSkipped(err)
		}
	}
	mon := monitor.New(src, opts)

	logger.Info("procmon starting",
		zap.String("source", cfg.Source),
		zap.Duration("interval", mon.Interval()),
		zap.Bool("containers", cfg.Containers),
	)

	if batch {
		return runBatch(ctx, cfg, mon, printer)
	}
	return runInteractive(ctx, cfg, mon, logger)
}

func runBatch(ctx context.Context, cfg config.Config, mon *monitor.Monitor, printer *report.Printer) error {
	printed := 0
	return mon.Run(ctx, func(frame model.Frame) error {
		// the first frame has no deltas yet
		if frame.Warmup {
			return nil
		}
		if err := printer.Print(frame); err != nil {
			return err
		}
		printed++
		if cfg.Iterations > 0 && printed >= cfg.Iterations {
			return monitor.ErrStop
		}
		return nil
	})
}

func runInteractive(ctx context.Context, cfg config.Config, mon *monitor.Monitor, logger *zap.Logger) error {
	opts := tui.Options{
		Monitor:    mon,
		Terminator: control.NewTerminator(cfg.AckWait, logger),
		Logger:     logger,
		SortKey:    cfg.SortKey(),
		Filter:     cfg.Filter,
		Limit:      cfg.Limit,
		Containers: cfg.Containers,
	}

	if cfg.Journal != "" {
		journal, err := storage.NewJournal(cfg.Journal, cfg.JournalRetention, logger)
		if err != nil {
			logger.Warn("termination journal disabled", zap.Error(err))
		} else {
			defer journal.Close()
			opts.Journal = journal
		}
	}

	m := tui.NewModel(ctx, opts)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", err)
	}
	if fm, ok := final.(tui.Model); ok {
		return fm.Err()
	}
	return nil
}
