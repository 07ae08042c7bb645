package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/intuibets/config"
	"github.com/alejandrodnm/intuibets/internal/adapters/notify"
	"github.com/alejandrodnm/intuibets/internal/adapters/storage"
	"github.com/alejandrodnm/intuibets/internal/application/standings"
	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/alejandrodnm/intuibets/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	user := flag.String("user", "", "print the settled portfolio of this address")
	leaderboard := flag.Bool("leaderboard", false, "compute (and store) the leaderboard")
	last := flag.Bool("last", false, "print the latest stored leaderboard without reading the chain")
	events := flag.Bool("events", false, "print events with pools and implied odds")
	history := flag.String("history", "", "print the stored leaderboard positions of this address over the last 30 days")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", true, "print full tables (false: compact 1-line output)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	opts := runOptions{
		user:        *user,
		history:     *history,
		events:      *events,
		leaderboard: *leaderboard,
		last:        *last,
	}
	if opts.empty() {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -user <address>, -history <address>, -leaderboard, -last or -events")
		flag.Usage()
		os.Exit(2)
	}

	slog.Info("intuibets starting",
		"config", *configPath,
		"source", cfg.Chain.Source,
		"fee_from_chain", cfg.UseChainFee(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	chain, closeChain, err := openChain(ctx, cfg)
	if err != nil {
		slog.Error("failed to open chain reader", "err", err, "source", cfg.Chain.Source)
		os.Exit(1)
	}
	defer closeChain()

	var store ports.SnapshotStore
	if cfg.Storage.DSN != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	}

	svc := standings.New(standings.Config{
		FeeBpsDefault: cfg.Engine.FeeBpsDefault,
		FeeFromChain:  cfg.UseChainFee(),
		Decimals:      cfg.Engine.TokenDecimals,
		Workers:       cfg.Chain.FetchWorkers,
		FetchRetries:  cfg.Chain.FetchRetries,
	}, chain, store)
	reporter := notify.NewConsole(*table)

	if err := run(ctx, svc, reporter, opts); err != nil {
		slog.Error("intuibets failed", "err", err)
		os.Exit(1)
	}
}

// historyWindow es cuánto hacia atrás mira -history.
const historyWindow = 30 * 24 * time.Hour

// runOptions son las acciones pedidas por línea de comandos.
type runOptions struct {
	user        string
	history     string
	events      bool
	leaderboard bool
	last        bool
}

func (o runOptions) empty() bool {
	return o.user == "" && o.history == "" && !o.events && !o.leaderboard && !o.last
}

func run(ctx context.Context, svc *standings.Service, reporter ports.Reporter, opts runOptions) error {
	if opts.events {
		evs, err := svc.Events(ctx)
		if err != nil {
			return err
		}
		if err := reporter.ReportEvents(ctx, evs); err != nil {
			return err
		}
	}

	if opts.user != "" {
		p, err := svc.Portfolio(ctx, opts.user)
		if err != nil {
			return err
		}
		if err := reporter.ReportPortfolio(ctx, p.User, p.Bets, p.Stats); err != nil {
			return err
		}
	}

	if opts.last {
		lb, err := svc.LatestLeaderboard(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			slog.Warn("no stored leaderboard yet, run with -leaderboard first")
		case err != nil:
			return err
		default:
			if err := reporter.ReportLeaderboard(ctx, lb); err != nil {
				return err
			}
		}
	}

	if opts.leaderboard {
		lb, err := svc.Leaderboard(ctx)
		if err != nil {
			return err
		}
		if err := reporter.ReportLeaderboard(ctx, lb); err != nil {
			return err
		}
	}

	if opts.history != "" {
		entries, err := svc.History(ctx, opts.history, time.Now().UTC().Add(-historyWindow))
		switch {
		case errors.Is(err, domain.ErrNotFound):
			slog.Warn("history needs storage.dsn to be set")
		case err != nil:
			return err
		default:
			if err := reporter.ReportHistory(ctx, opts.history, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
