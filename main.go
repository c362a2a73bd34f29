package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"ndv-scraper/config"
	"ndv-scraper/crawler"
	"ndv-scraper/db"
	"ndv-scraper/fetcher"
	"ndv-scraper/filter"
	"ndv-scraper/models"
	"ndv-scraper/notify"
	"ndv-scraper/sheets"
	"ndv-scraper/storage"
)

// CLI holds the command line flags. Zero values leave the config file alone.
type CLI struct {
	Config   string   `help:"Path to configuration file" default:"config.yaml" short:"c"`
	Output   string   `help:"Path to output JSON file (overrides output.path)" short:"o"`
	Stdout   bool     `help:"Write the JSON array to standard output instead of a file"`
	Only     []string `help:"Crawl only these listing kinds (flats, parking)" enum:"flats,parking" sep:","`
	Workers  int      `help:"Parallel parking detail fetches (overrides crawl.workers)" short:"w"`
	Engine   string   `help:"Fetcher engine: colly or rod (overrides fetcher.engine)"`
	LogLevel string   `help:"Log level: debug, info, warn, error (overrides log.level)" name:"log-level"`
	Quiet    bool     `help:"Disable the progress spinner" short:"q"`

	DB           bool   `help:"Also copy records into PostgreSQL (DATABASE_URL or DB_* env)" name:"db"`
	Spreadsheet  string `help:"Google Sheets URL or ID to add a sheet of records to" env:"NDV_SPREADSHEET"`
	Credentials  string `help:"Path to Google service account credentials JSON file (or use GOOGLE_SHEETS_CREDENTIALS env var)"`
	TelegramChat int64  `help:"Telegram chat to send a run summary to (needs TELEGRAM_BOT_TOKEN)" env:"TELEGRAM_CHAT_ID" name:"telegram-chat"`
}

func main() {
	// a missing .env is fine, the environment may be set directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	var cli CLI
	kong.Parse(&cli,
		kong.Name("ndv-scraper"),
		kong.Description("Collects flat and parking listings from ndv.ru into a JSON file."),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "ndv",
	})

	cfg := loadConfig(cli.Config, logger)
	if err := applyFlags(cfg, &cli); err != nil {
		logger.Fatal("invalid flags", "err", err)
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Fatal("invalid log level", "level", cfg.Log.Level, "err", err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, &cli, logger); err != nil {
		logger.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when it is
// missing or broken
func loadConfig(configPath string, logger *log.Logger) *config.Config {
	if _, err := os.Stat(configPath); err != nil {
		logger.Debug("config file not found, using defaults", "path", configPath)
		return config.GetDefaultConfig()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "path", configPath, "err", err)
		return config.GetDefaultConfig()
	}
	return cfg
}

// applyFlags lays command line overrides over the loaded config
func applyFlags(cfg *config.Config, cli *CLI) error {
	if cli.Output != "" {
		cfg.Output.Path = cli.Output
	}
	if cli.Workers != 0 {
		cfg.Crawl.Workers = cli.Workers
	}
	if cli.Engine != "" {
		cfg.Fetcher.Engine = cli.Engine
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	return cfg.Validate()
}

// kinds turns --only into crawl kinds; no flag means everything
func kinds(only []string) ([]crawler.Kind, error) {
	if len(only) == 0 {
		return crawler.AllKinds, nil
	}
	out := make([]crawler.Kind, 0, len(only))
	for _, name := range only {
		kind, err := crawler.ParseKind(name)
		if err != nil {
			return nil, err
		}
		out = append(out, kind)
	}
	return out, nil
}

// newFetcher builds the configured fetcher and a func releasing it
func newFetcher(cfg *config.Config, logger *log.Logger) (fetcher.Fetcher, func(), error) {
	switch cfg.Fetcher.Engine {
	case "rod":
		rf, err := fetcher.NewRodFetcher(cfg.Fetcher.UserAgent, cfg.Fetcher.Timeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return rf, func() {
			if err := rf.Close(); err != nil {
				logger.Warn("failed to close browser", "err", err)
			}
		}, nil
	default:
		cf, err := fetcher.NewCollyFetcher(fetcher.CollyOptions{
			UserAgent:   cfg.Fetcher.UserAgent,
			Parallelism: cfg.Crawl.Workers,
			Delay:       cfg.Fetcher.Delay,
			Timeout:     cfg.Fetcher.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return cf, func() {}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, cli *CLI, logger *log.Logger) error {
	started := time.Now()
	runID := uuid.New()
	logger = logger.With("run", runID.String()[:8])

	kindList, err := kinds(cli.Only)
	if err != nil {
		return err
	}

	f, closeFetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer closeFetcher()

	var database *db.DB
	if cli.DB {
		database, err = db.NewDB(ctx, db.ConnString(), cfg.Database.Schema, cfg.Database.Table, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if _, err := database.CreateRun(ctx, runID); err != nil {
			return err
		}
	}

	// messages go to stderr when stdout carries the JSON
	console := io.Writer(os.Stdout)
	if cli.Stdout {
		console = os.Stderr
	}

	fmt.Fprintln(console, "Starting data parsing...")

	stopSpinner := startSpinner(cli.Quiet, logger)
	c := crawler.New(f, crawler.Options{
		Site:             cfg.Site,
		Workers:          cfg.Crawl.Workers,
		RefetchFirstPage: cfg.Crawl.RefetchFirstPage,
	}, logger)
	records, crawlErr := c.Run(ctx, kindList)
	stopSpinner()

	if crawlErr != nil {
		logger.Error("crawl stopped early, keeping partial results", "records", len(records), "err", crawlErr)
	}
	// sinks still get the records after an interrupt
	sinkCtx := context.WithoutCancel(ctx)

	total := len(records)
	records = filter.NewFilter(&cfg.Filters).ApplyFilters(records)
	if len(records) != total {
		logger.Info("filters applied", "before", total, "after", len(records))
	}

	output := cfg.Output.Path
	if cli.Stdout {
		output = ""
		if err := storage.Encode(os.Stdout, records); err != nil {
			return err
		}
	} else {
		if err := storage.WriteFile(output, records); err != nil {
			return errors.Join(crawlErr, err)
		}
		logger.Info("records written", "path", output, "count", len(records))
	}

	if database != nil {
		if err := database.SaveRecords(sinkCtx, runID, records); err != nil {
			logger.Error("failed to save records to database", "err", err)
		}
		if err := database.FinishRun(sinkCtx, runID, len(records), crawlErr); err != nil {
			logger.Error("failed to finish run", "err", err)
		}
	}

	sheetURL := writeSheet(sinkCtx, cli, records, cfg.Site.BaseURL, logger)

	stats := c.Stats()
	if cli.TelegramChat != 0 {
		sendSummary(cli.TelegramChat, notify.Summary{
			RunID:            runID.String(),
			Records:          len(records),
			Flats:            stats.Flats,
			Parking:          stats.Parking,
			SkippedComplexes: stats.SkippedComplexes,
			MalformedTiles:   stats.MalformedTiles,
			Output:           output,
			SheetURL:         sheetURL,
			Duration:         time.Since(started),
			Err:              crawlErr,
		}, logger)
	}

	if crawlErr != nil {
		return crawlErr
	}

	logger.Debug("crawl stats", "pages", stats.Pages, "complexes", stats.Complexes, "took", time.Since(started).Round(time.Millisecond))
	fmt.Fprintln(console, "Success")
	return nil
}

// startSpinner shows progress on an interactive stderr and returns its stop func
func startSpinner(quiet bool, logger *log.Logger) func() {
	if quiet || !isatty.IsTerminal(os.Stderr.Fd()) || logger.GetLevel() <= log.DebugLevel {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " crawling ndv.ru"
	s.Start()
	return s.Stop
}

// writeSheet adds a sheet of records when a spreadsheet is configured and
// returns a link to it
func writeSheet(ctx context.Context, cli *CLI, records []models.Record, source string, logger *log.Logger) string {
	if cli.Spreadsheet == "" {
		return ""
	}

	writer, err := sheets.NewWriter(ctx, cli.Spreadsheet, cli.Credentials, logger)
	if err != nil {
		logger.Warn("failed to initialize Google Sheets writer", "err", err)
		return ""
	}

	sheetName := fmt.Sprintf("ndv_%s", time.Now().Format("20060102_150405"))
	_, sheetID, err := writer.CreateSheetAndWriteRecords(ctx, sheetName, records, source)
	if err != nil {
		logger.Warn("failed to write to Google Sheets", "err", err)
		return ""
	}
	return writer.SheetURL(sheetID)
}

func sendSummary(chatID int64, summary notify.Summary, logger *log.Logger) {
	tg, err := notify.NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), chatID, logger)
	if err != nil {
		logger.Warn("telegram disabled", "err", err)
		return
	}
	if err := tg.Send(summary); err != nil {
		logger.Warn("failed to send run summary", "err", err)
	}
}
