// palavra generates and serves a daily devotional: verse of the day,
// devotional text and guided prayer, produced once a day per language.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"palavra/internal/capture"
	"palavra/internal/config"
	"palavra/internal/devotional"
	"palavra/internal/gemini"
	"palavra/internal/pipeline"
	"palavra/internal/scheduler"
	"palavra/internal/server"
	"palavra/internal/store"
	"palavra/internal/verse"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "palavra",
	Short: "palavra - daily word-of-the-day pipeline",
	Long: `palavra produces one devotional content bundle per day and language:
a verse of the day (scraped, read from a screenshot by a vision model, or
picked by a text model as a last resort), a devotional text and a guided
prayer, persisted idempotently per (date, language).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the daily scheduler",
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Produce today's word of day once and exit",
	RunE:  runGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "palavra.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildPipeline wires the store, model client and pipeline from config.
// The caller owns closing the returned store.
func buildPipeline(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, *store.Store, error) {
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	if _, err := st.SeedLanguage(ctx, cfg.Language, languageName(cfg.Language)); err != nil {
		st.Close()
		return nil, nil, err
	}

	model, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.VisionModel, cfg.Gemini.TextModel)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	capCfg := capture.DefaultConfig(cfg.Screenshots.Dir)
	capCfg.PageTimeout = cfg.Source.PageTimeout.Std()
	capturer := capture.New(capCfg, logger.Named("capture"))

	scraper := verse.NewScraper(cfg.Source.URL, capCfg.UserAgent, cfg.Source.ScrapeTimeout.Std(), logger.Named("scrape"))
	vision := verse.NewVisionExtractor(model, logger.Named("vision"))
	selector := verse.NewSelector(model, logger.Named("selector"))
	generator := devotional.NewGenerator(model, logger.Named("devotional"))

	pipe := pipeline.New(
		pipeline.Config{
			SourceURL:    cfg.Source.URL,
			LanguageCode: cfg.Language,
			Retain:       cfg.Screenshots.Retain,
			Location:     cfg.Location(),
		},
		st, scraper, capturer, vision, selector, generator,
		logger.Named("pipeline"),
	)
	return pipe, st, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe, st, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(pipe,
		cfg.Scheduler.Hour, cfg.Scheduler.Minute, cfg.Location(),
		cfg.Scheduler.StartupDelay.Std(), logger.Named("scheduler"))
	sched.Start(ctx)

	srv := server.New(pipe, st, cfg.Language, cfg.Location(), logger.Named("server"))
	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pipe, st, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := pipe.RunToday(ctx); err != nil {
		return err
	}

	if status, ok := pipe.Status(); ok {
		fmt.Printf("word of day generated (source: %s, reference: %s)\n",
			status.Source, status.Reference)
	}
	return nil
}

func languageName(code string) string {
	switch code {
	case "pt":
		return "Português"
	case "en":
		return "English"
	case "es":
		return "Español"
	default:
		return code
	}
}
