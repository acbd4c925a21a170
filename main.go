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

	"sjsage522/steamsales/config"
	"sjsage522/steamsales/helpers"
	"sjsage522/steamsales/internal/crawler"
	"sjsage522/steamsales/logger"
	"sjsage522/steamsales/services/cache"
	"sjsage522/steamsales/services/publisher"
	"sjsage522/steamsales/services/report"
	"sjsage522/steamsales/services/worker"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const noDataMessage = "Could not fetch sales data. Please check your internet connection."

func main() {
	// Load environment variables
	godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logger.LogError("main", err, "Run failed")
		os.Exit(1)
	}
}

// newRootCommand builds the CLI; flags override the environment configuration
func newRootCommand() *cobra.Command {
	var (
		maxPages  int
		batchSize int
		outputDir string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:           "steamsales",
		Short:         "Collect the best discounts from the Steam store search",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize logger first
			logger.Init()

			cfg := config.LoadConfig()
			flags := cmd.Flags()
			if flags.Changed("max-pages") {
				cfg.MaxPages = maxPages
			}
			if flags.Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if flags.Changed("output-dir") {
				cfg.OutputDir = outputDir
			}
			if flags.Changed("debug") {
				cfg.Debug = debug
			}
			if cfg.Debug || flags.Changed("debug") {
				logger.SetDebug(cfg.Debug)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 50, "number of search pages to scan (overrides MAX_PAGES)")
	cmd.Flags().IntVar(&batchSize, "batch-size", worker.DefaultBatchSize, "pages between progress reports (overrides BATCH_SIZE)")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "directory for the JSON and text reports (overrides OUTPUT_DIR)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging and page dumps (overrides DEBUG_MODE)")

	return cmd
}

// run performs one scrape and writes its reports
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log := logger.Default

	log.Info().
		Str("environment", cfg.Environment).
		Int("max_pages", cfg.MaxPages).
		Int("batch_size", cfg.BatchSize).
		Msg("Starting application")

	// Initialize services
	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	store := crawler.NewStoreClient(crawler.StoreConfig{
		SearchURL:  cfg.SearchURL,
		DetailsURL: cfg.DetailsURL,
		Country:    cfg.Country,
		Language:   cfg.Language,
		Timeout:    cfg.HTTPTimeout,
		BlockTime:  cfg.RateLimitBlock,
		DetailsTTL: cfg.DetailsCacheTTL,
	}, services.Cache)

	extractor := crawler.NewExtractor(crawler.ExtractorConfig{
		CurrencyGlyph:   cfg.CurrencyGlyph,
		HighValueTitles: cfg.HighValueTitles,
		Debug:           cfg.Debug,
	}, store, helpers.NewFileDumper(cfg.DebugDumpDir))

	reporter := report.NewReporter(out, cfg.AppURL)
	w := worker.NewWorker(store, extractor, reporter, services.Publisher, cfg.RequestDelay, cfg.BatchPause)

	fmt.Fprintln(out, "Fetching Steam sales with the best discounts...")
	fmt.Fprintf(out, "Results will be shown every %d pages and continue automatically.\n", cfg.BatchSize)

	items, err := w.Run(ctx, cfg.MaxPages, cfg.BatchSize)
	switch {
	case errors.Is(err, worker.ErrNoData):
		fmt.Fprintln(out, noDataMessage)
		return err
	case errors.Is(err, context.Canceled):
		log.Warn().Int("items", len(items)).Msg("Interrupted, saving partial results")
	case err != nil:
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, noDataMessage)
		return worker.ErrNoData
	}

	fmt.Fprintf(out, "\nSEARCH COMPLETED! Found %d unique discounted games.\n", len(items))

	data := report.BuildJSONReport(items, time.Now())
	jsonPath, err := report.WriteJSON(cfg.OutputDir, data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save JSON report")
	}
	textPath, err := reporter.WriteText(cfg.OutputDir, data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save text report")
	}

	fmt.Fprintln(out, report.RenderSummary(items))
	fmt.Fprintln(out, "\nShowing all discovered games sorted by discount...")
	reporter.Print(items, report.RenderOptions{ShowAll: true, Title: "ALL DISCOUNTED GAMES"})

	if jsonPath != "" || textPath != "" {
		fmt.Fprintln(out, "\nSearch complete! Results are saved in:")
		if jsonPath != "" {
			fmt.Fprintf(out, "  - JSON format: '%s'\n", jsonPath)
		}
		if textPath != "" {
			fmt.Fprintf(out, "  - Text format: '%s'\n", textPath)
		}
	}
	return nil
}

// Services holds the optional infrastructure services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects the configured services; unreachable ones are disabled
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		memcache := cache.NewMemcacheService(cfg.MemcacheAddr, cfg.HTTPTimeout)
		if err := memcache.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, caching disabled")
		} else {
			services.Cache = memcache
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.ForPublisher().Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, publishing disabled")
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return services
}
