package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexnv/09-online-library-parser/config"
	"github.com/alexnv/09-online-library-parser/models"
	"github.com/alexnv/09-online-library-parser/pipeline"
	"github.com/alexnv/09-online-library-parser/scraper"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit status so deferred cleanups always execute.
func run(args []string) int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		return 1
	}

	cfg, err := parseConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, level := newLogger(cfg.Verbose)
	runID := uuid.NewString()
	slog.SetDefault(logger.With(slog.String("run_id", runID)))
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	if cfg.IDMode() {
		slog.Info("starting crawl",
			slog.String("base_url", cfg.BaseURL),
			slog.Int("start_id", cfg.StartID),
			slog.Int("end_id", cfg.EndID),
		)
	} else {
		slog.Info("starting crawl",
			slog.String("base_url", cfg.BaseURL),
			slog.Int("genre", cfg.Genre),
			slog.Int("start_page", cfg.StartPage),
			slog.Int("end_page", cfg.EndPage),
		)
	}

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return 1
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.JSONPath)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	p, err := pipeline.NewPipeline(writer, cfg)
	if err != nil {
		slog.Error("creating pipeline", slog.Any("error", err))
		return 1
	}
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, err := s.Run(ctx, p)
	interrupted := err != nil
	if interrupted {
		slog.Warn("crawl interrupted, saving collected records", slog.Any("error", err))
	}

	if err := p.Close(); err != nil {
		slog.Error("saving dataset failed", slog.Any("error", err))
		return 1
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		return 1
	}

	printSummary(result, time.Since(startTime), cfg, p.GetMetrics())
	if interrupted {
		return 130
	}
	return 0
}

func createWriter(format, jsonPath string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(jsonPath)
	case "dual":
		return pipeline.NewDualWriter(jsonPath, pipeline.CSVSibling(jsonPath))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, duration time.Duration, cfg *config.Config, metrics map[string]interface{}) {
	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)
	warn := color.New(color.FgYellow)

	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	title.Println("Crawl complete")

	row := func(name string, value any) {
		label.Printf("  %-16s", name+":")
		fmt.Printf("%v\n", value)
	}

	row("Books saved", result.TotalCount())
	if !cfg.IDMode() {
		row("Catalog pages", result.PageCount)
	}
	row("Requests", result.RequestCount)
	row("Retries", result.RetryCount)
	if len(result.SkippedIDs) > 0 {
		warn.Printf("  %-16s", "Skipped ids:")
		fmt.Printf("%v\n", result.SkippedIDs)
	}
	if result.FailedDownloads > 0 {
		warn.Printf("  %-16s", "Failed assets:")
		fmt.Printf("%d\n", result.FailedDownloads)
	}
	if len(result.ErrorsByType) > 0 {
		keys := make([]string, 0, len(result.ErrorsByType))
		for key := range result.ErrorsByType {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", key, result.ErrorsByType[key]))
		}
		row("Error types", strings.Join(parts, ", "))
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		row("Validation", valErrors)
	}
	row("Duration", duration.Round(time.Millisecond))
	row("Dataset", cfg.JSONPath)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// parseConfig builds the crawl configuration from flags, falling back to
// LIBRARY_* environment variables and then to the defaults.
func parseConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	env := &envReader{}
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)

	fs.IntVar(&cfg.Genre, "genre", env.Int("LIBRARY_GENRE", cfg.Genre), "Catalog genre id")
	fs.IntVar(&cfg.StartPage, "start-page", env.Int("LIBRARY_START_PAGE", cfg.StartPage), "First catalog page (inclusive)")
	fs.IntVar(&cfg.EndPage, "end-page", env.Int("LIBRARY_END_PAGE", cfg.EndPage), "Last catalog page (exclusive)")
	fs.IntVar(&cfg.StartID, "start-id", env.Int("LIBRARY_START_ID", 0), "First book id (inclusive); enables id-range mode")
	fs.IntVar(&cfg.EndID, "end-id", env.Int("LIBRARY_END_ID", 0), "Last book id (exclusive)")
	fs.StringVar(&cfg.BooksFolder, "dest-folder", env.String("LIBRARY_BOOKS_FOLDER", cfg.BooksFolder), "Folder for book texts")
	fs.StringVar(&cfg.ImagesFolder, "image-folder", env.String("LIBRARY_IMAGES_FOLDER", cfg.ImagesFolder), "Folder for cover images")
	fs.StringVar(&cfg.JSONPath, "json-path", env.String("LIBRARY_JSON_PATH", cfg.JSONPath), "Path of the JSON dataset")
	fs.BoolVar(&cfg.SkipImages, "skip-imgs", env.Bool("LIBRARY_SKIP_IMAGES", false), "Do not download cover images")
	fs.BoolVar(&cfg.SkipText, "skip-txt", env.Bool("LIBRARY_SKIP_TEXT", false), "Do not download book texts")
	fs.BoolVar(&cfg.ASCIIFileNames, "ascii-names", env.Bool("LIBRARY_ASCII_NAMES", false), "Transliterate titles to ASCII in file names")
	fs.DurationVar(&cfg.RetryInterval, "retry-interval", env.Duration("LIBRARY_RETRY_INTERVAL", cfg.RetryInterval), "Cooldown before retrying a transient failure")
	fs.IntVar(&cfg.PageMaxAttempts, "page-attempts", env.Int("LIBRARY_PAGE_ATTEMPTS", cfg.PageMaxAttempts), "Attempts per book page (0 retries until interrupted)")
	fs.IntVar(&cfg.AssetMaxAttempts, "asset-attempts", env.Int("LIBRARY_ASSET_ATTEMPTS", cfg.AssetMaxAttempts), "Attempts per asset download")
	fs.DurationVar(&cfg.Timeout, "timeout", env.Duration("LIBRARY_TIMEOUT", cfg.Timeout), "Per-request timeout")
	fs.DurationVar(&cfg.Delay, "delay", env.Duration("LIBRARY_DELAY", cfg.Delay), "Delay between requests")
	fs.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", env.Bool("LIBRARY_RESPECT_ROBOTS", false), "Respect robots.txt directives")
	fs.StringVar(&cfg.OutputFormat, "format", env.String("LIBRARY_FORMAT", cfg.OutputFormat), "Output format: json or dual (json plus csv)")
	fs.StringVar(&cfg.BaseURL, "base-url", env.String("LIBRARY_BASE_URL", cfg.BaseURL), "Library site root")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", env.String("LIBRARY_METRICS_ADDR", cfg.MetricsAddr), "Prometheus metrics listen address (e.g. :9090)")
	fs.BoolVar(&cfg.Verbose, "v", env.Bool("LIBRARY_VERBOSE", false), "Enable verbose logging")

	if env.err != nil {
		return nil, env.err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, nil
}

// envReader reads flag defaults from the environment and keeps the first
// malformed value it meets.
type envReader struct {
	err error
}

func (r *envReader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid environment value: %w", err)
	}
}

func (r *envReader) String(key, fallback string) string {
	if value, ok := config.EnvString(key); ok {
		return value
	}
	return fallback
}

func (r *envReader) Int(key string, fallback int) int {
	value, ok, err := config.EnvInt(key)
	if err != nil {
		r.fail(err)
	}
	if !ok {
		return fallback
	}
	return value
}

func (r *envReader) Bool(key string, fallback bool) bool {
	value, ok, err := config.EnvBool(key)
	if err != nil {
		r.fail(err)
	}
	if !ok {
		return fallback
	}
	return value
}

func (r *envReader) Duration(key string, fallback time.Duration) time.Duration {
	value, ok, err := config.EnvDuration(key)
	if err != nil {
		r.fail(err)
	}
	if !ok {
		return fallback
	}
	return value
}
