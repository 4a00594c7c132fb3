// Command kakeibo-jobs runs the background jobs: card-mail ingestion, fixed
// expense booking, budget alerts and AI spending reports. Each job runs once
// and exits, so it can be driven by cron; the schedule command keeps a
// long-running loop for environments without one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/advisor"
	"kakeibo/internal/amqp"
	"kakeibo/internal/config"
	"kakeibo/internal/ledger"
	"kakeibo/internal/ledger/google"
	"kakeibo/internal/ledger/memory"
	"kakeibo/internal/ledger/sqlite"
	"kakeibo/internal/log"
	"kakeibo/internal/mail"
	"kakeibo/internal/notify"
	"kakeibo/internal/parser"
	"kakeibo/internal/resolver"
	"kakeibo/internal/services"
)

const usage = `usage: kakeibo-jobs <job> [args]

jobs:
  ingest            fetch card notification mails and book new entries
  backfill [date]   ingest historical card mails since date (yyyy/mm/dd,
                    default one year back)
  fixed             book this month's fixed expenses
  alerts            check spending against the budget and push alerts
  weekly-report     push the weekly AI spending commentary
  monthly-report    push the monthly AI spending commentary
  schedule          run ingest and the daily jobs on a timer until stopped`

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	job := os.Args[1]

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	if job == "backfill" {
		since := time.Now().AddDate(-1, 0, 0)
		if len(os.Args) > 2 {
			parsed, err := time.ParseInLocation("2006/01/02", os.Args[2], time.Local)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid backfill date %q, want yyyy/mm/dd\n", os.Args[2])
				os.Exit(2)
			}
			since = parsed
		}
		// The backfill is an ingest run over a wider mail search.
		cfg.GmailQuery = mail.BackfillQuery(since)
		job = "ingest"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize jobs", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer app.close()

	switch job {
	case "ingest":
		err = app.runIngest(ctx)
	case "fixed":
		err = app.runFixed(ctx)
	case "alerts":
		err = app.runAlerts(ctx)
	case "weekly-report":
		err = app.runReport(ctx, advisor.ReportWeekly)
	case "monthly-report":
		err = app.runReport(ctx, advisor.ReportMonthly)
	case "schedule":
		err = app.runSchedule(ctx, cfg.IngestInterval)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && err != context.Canceled {
		logger.Error("Job failed", "job", job, log.FieldError, err.Error())
		os.Exit(1)
	}
}

// app holds the wired jobs. ingestor and reporter are nil when their
// backing services (Gmail, Gemini) are not configured.
type app struct {
	logger   *log.Logger
	ingestor *services.Ingestor
	fixed    *services.FixedRecorder
	alerts   *services.AlertService
	reporter *services.Reporter
	close    func()
}

func buildApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	store, settings, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	closers := []func(){closeStore}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	notifier := notify.NewLineClient(cfg.LineChannelToken,
		logger.WithComponent(log.ComponentNotify))

	a := &app{
		logger: logger,
		fixed: services.NewFixedRecorder(store, settings, notifier,
			logger.WithComponent(log.ComponentFixed)),
		alerts: services.NewAlertService(store, settings, notifier,
			logger.WithComponent(log.ComponentAlert)),
		close: closeAll,
	}

	if cfg.GoogleCredentialsJSON != "" || cfg.GoogleCredentialsFile != "" {
		mailCfg := mail.Config{
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Query:           cfg.GmailQuery,
			ProcessedLabel:  cfg.GmailProcessedLabel,
			MaxMessages:     cfg.GmailMaxMessages,
		}
		source, err := mail.NewGmailSource(ctx, mailCfg,
			logger.WithComponent(log.ComponentMail))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("gmail source: %w", err)
		}

		var events resolver.EventSource
		calendar, err := mail.NewCalendarSource(ctx, mailCfg, cfg.GoogleCalendarID,
			logger.WithComponent(log.ComponentMail))
		if err != nil {
			logger.Warn("Calendar lookups disabled", log.FieldError, err.Error())
		} else {
			events = calendar
		}

		var publisher services.EntryPublisher
		if cfg.AMQPURL != "" {
			amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
				logger.WithComponent(log.ComponentAMQP))
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("amqp client: %w", err)
			}
			closers = append(closers, func() { amqpClient.Close() })
			publisher = amqpClient
		}

		res := resolver.New(events, source, logger.WithComponent(log.ComponentResolver))
		p := parser.NewDefault(nil, res, logger.WithComponent(log.ComponentParser))
		a.ingestor = services.NewIngestor(source, store, p, publisher,
			logger.WithComponent(log.ComponentIngest))
	} else {
		logger.Info("Mail ingestion disabled - no Google credentials provided")
	}

	if cfg.GeminiAPIKey != "" {
		adv, err := advisor.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel,
			logger.WithComponent(log.ComponentAdvisor))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("advisor: %w", err)
		}
		a.reporter = services.NewReporter(store, settings, adv, notifier,
			logger.WithComponent(log.ComponentAdvisor))
	} else {
		logger.Info("AI reports disabled - no GEMINI_API_KEY provided")
	}

	return a, nil
}

func (a *app) runIngest(ctx context.Context) error {
	if a.ingestor == nil {
		return fmt.Errorf("mail ingestion requires Google credentials")
	}
	result, err := a.ingestor.Ingest(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Ingestion run complete",
		log.FieldWritten, result.Written, log.FieldSkipped, result.Skipped)
	return nil
}

func (a *app) runFixed(ctx context.Context) error {
	written, err := a.fixed.RecordMonth(ctx, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("Fixed expense run complete", log.FieldWritten, written)
	return nil
}

func (a *app) runAlerts(ctx context.Context) error {
	kind, err := a.alerts.Evaluate(ctx, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("Alert check complete", log.FieldAlertKind, string(kind))
	return nil
}

func (a *app) runReport(ctx context.Context, kind advisor.ReportKind) error {
	if a.reporter == nil {
		return fmt.Errorf("reports require GEMINI_API_KEY")
	}
	if kind == advisor.ReportMonthly {
		return a.reporter.MonthlyReport(ctx, time.Now())
	}
	return a.reporter.WeeklyReport(ctx, time.Now())
}

// runSchedule keeps the jobs running on timers: ingestion plus an alert
// check every interval, fixed expenses hourly (idempotent per month), and
// reports in the 9 o'clock hour on Mondays and on the 1st.
func (a *app) runSchedule(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if a.ingestor != nil {
				if err := a.runIngest(ctx); err != nil {
					a.logger.Error("Scheduled ingestion failed", log.FieldError, err.Error())
				}
			}
			if err := a.runAlerts(ctx); err != nil {
				a.logger.Error("Scheduled alert check failed", log.FieldError, err.Error())
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if err := a.runFixed(ctx); err != nil {
					a.logger.Error("Scheduled fixed expense run failed", log.FieldError, err.Error())
				}
				if a.reporter == nil || now.Hour() != 9 {
					continue
				}
				if now.Day() == 1 {
					if err := a.runReport(ctx, advisor.ReportMonthly); err != nil {
						a.logger.Error("Scheduled monthly report failed", log.FieldError, err.Error())
					}
				} else if now.Weekday() == time.Monday {
					if err := a.runReport(ctx, advisor.ReportWeekly); err != nil {
						a.logger.Error("Scheduled weekly report failed", log.FieldError, err.Error())
					}
				}
			}
		}
	})

	return g.Wait()
}

// openStore picks the ledger backend from configuration. The returned close
// function is a no-op for backends without resources to release.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (ledger.Store, ledger.SettingsStore, func(), error) {
	switch cfg.DataBackend {
	case "memory":
		s := memory.New()
		return s, s, func() {}, nil
	case "sheets":
		c, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			LedgerSheet:     cfg.GoogleLedgerSheet,
			SettingsSheet:   cfg.GoogleSettingsSheet,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		}, logger.WithComponent(log.ComponentSheets))
		if err != nil {
			return nil, nil, nil, err
		}
		return c, c, func() {}, nil
	case "sqlite":
		r, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r, func() { r.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
