package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshsymonds/chronocadence/internal/anthropic"
	"github.com/joshsymonds/chronocadence/internal/config"
	"github.com/joshsymonds/chronocadence/internal/insight"
	"github.com/joshsymonds/chronocadence/internal/rate"
	"github.com/joshsymonds/chronocadence/internal/report"
	"github.com/joshsymonds/chronocadence/internal/runtime"
	"github.com/joshsymonds/chronocadence/internal/store"
	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

type cliFlags struct {
	sender     string
	configPath string
	maxRecords int
	jsonOut    string
	timezone   string
	insights   string
	history    int
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		runtime.DefaultLogger().Error("chronocadence failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() cliFlags {
	sender := flag.String("sender", "", "email address whose messages are analysed (required)")
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	maxRecords := flag.Int("max", 0, "maximum messages to fetch (default from config)")
	jsonOut := flag.String("json", "", "write JSON report to a relative path")
	tz := flag.String("tz", "", "reporting timezone (default from config)")
	insights := flag.String("insights", "", "insight generator: rules or llm")
	history := flag.Int("history", 0, "print this many archived runs for the sender (needs MONGODB_URI)")
	flag.Parse()

	return cliFlags{
		sender:     *sender,
		configPath: *configPath,
		maxRecords: *maxRecords,
		jsonOut:    *jsonOut,
		timezone:   *tz,
		insights:   *insights,
		history:    *history,
	}
}

func loadConfig(flags cliFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.maxRecords > 0 {
		cfg.MaxRecords = flags.maxRecords
	}
	if flags.timezone != "" {
		cfg.Timezone = flags.timezone
	}
	if flags.insights != "" {
		cfg.Insights = flags.insights
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(flags cliFlags) error {
	if flags.sender == "" {
		return errors.New("-sender is required")
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.NewLogger(cfg.LogLevel, os.Stderr)
	client, err := runtime.NewGmailClient(ctx, cfg.Gmail.ConfigDir, runtime.AuthMode(cfg.Gmail.Auth), os.Stdin, os.Stderr)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}
	loc, err := timestamp.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	svc := report.NewService(
		client,
		rate.NewTokenBucket(cfg.RPS),
		logger,
		timestamp.NewNormalizer(loc),
		newGenerator(cfg, logger),
	)
	rep, err := svc.Run(ctx, report.Options{
		Sender:     flags.sender,
		MaxRecords: cfg.MaxRecords,
		PageSize:   cfg.PageSize,
	})
	if err != nil {
		return fmt.Errorf("run analysis: %w", err)
	}

	if printErr := report.PrintHuman(rep, os.Stdout); printErr != nil {
		return fmt.Errorf("print report: %w", printErr)
	}
	if flags.jsonOut != "" {
		if writeErr := report.WriteJSON(rep, flags.jsonOut); writeErr != nil {
			return fmt.Errorf("write json: %w", writeErr)
		}
	}
	if cfg.Mongo.Enabled() {
		if archiveErr := archive(ctx, cfg.Mongo, rep, flags.history, os.Stdout); archiveErr != nil {
			logger.WarnContext(ctx, "snapshot archive unavailable", slog.Any("error", archiveErr))
		}
	} else if flags.history > 0 {
		logger.WarnContext(ctx, "history requested but MONGODB_URI is not set")
	}
	return nil
}

func newGenerator(cfg config.Config, logger *slog.Logger) insight.Generator {
	if cfg.Insights != config.InsightsLLM {
		return insight.NewRuleEngine()
	}
	return insight.NewLLMGenerator(anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model), logger)
}

func archive(ctx context.Context, cfg config.MongoConfig, rep report.Report, history int, w io.Writer) error {
	db, err := store.Connect(ctx, cfg.URI, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Disconnect(context.Background()) }()

	repo := store.NewReportRepository(db.Database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := repo.Save(ctx, rep); err != nil {
		return err
	}
	if history <= 0 {
		return nil
	}
	snaps, err := repo.Latest(ctx, rep.Sender, history)
	if err != nil {
		return err
	}
	return printHistory(snaps, w)
}

func printHistory(snaps []store.Snapshot, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "\nHistory (%d runs):\n", len(snaps)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	for _, s := range snaps {
		_, err := fmt.Fprintf(w, "  %s  %4d messages  peak %s %02d:00  %.1f/week\n",
			s.GeneratedAt.Format("2006-01-02 15:04"), s.Total,
			timestamp.WeekdayName(s.PeakWeekday), s.PeakHour, s.PerWeek)
		if err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}
