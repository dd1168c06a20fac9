// Package app assembles the configured components into a running service:
// ingestion sources, the processing pipeline and the HTTP API server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/database"
	"github.com/quantfeed/signal-scout/internal/dedup"
	"github.com/quantfeed/signal-scout/internal/extractor"
	"github.com/quantfeed/signal-scout/internal/filter"
	"github.com/quantfeed/signal-scout/internal/format"
	"github.com/quantfeed/signal-scout/internal/handlers"
	"github.com/quantfeed/signal-scout/internal/notify"
	"github.com/quantfeed/signal-scout/internal/pipeline"
	"github.com/quantfeed/signal-scout/internal/quote"
	"github.com/quantfeed/signal-scout/internal/routes"
	"github.com/quantfeed/signal-scout/internal/services"
	"github.com/quantfeed/signal-scout/internal/source"
	"golang.org/x/sync/errgroup"
)

// App holds the assembled service components.
type App struct {
	cfg     *config.Config
	logger  *log.Logger
	pipe    *pipeline.Pipeline
	sources []source.Source
	store   dedup.Store
	server  *http.Server
}

// New builds the application from configuration. The database must already
// be initialized.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	f := filter.New(cfg.Filters)

	var ex pipeline.Extractor
	if cfg.Gemini.APIKey != "" {
		ex = extractor.NewGeminiExtractor(cfg.Gemini)
	} else {
		logger.Printf("no inference API key configured, using pattern-based extraction")
		ex = extractor.NewFallbackExtractor(cfg.Gemini.AnalysisMax)
	}

	store, err := dedup.New(cfg.Dedup, database.GetDB())
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup store: %w", err)
	}

	notifier, err := notify.New(cfg.Notifications, cfg.Debug.TestMode, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Pipeline, logger)

	var quotes pipeline.Quoter
	if cfg.Quotes.Enabled {
		quotes = quote.NewService(cfg.Quotes, logger)
	}

	signalService := services.NewSignalService()

	var sources []source.Source
	var webhooks []*source.WebhookSource
	for _, sc := range cfg.Sources {
		src, err := source.New(sc, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %s: %w", sc.Name, err)
		}
		sources = append(sources, src)
		if wh, ok := src.(*source.WebhookSource); ok {
			webhooks = append(webhooks, wh)
		}
	}

	pipe := pipeline.New(
		cfg.Pipeline,
		cfg.Gemini.ChartAnalysis,
		f,
		ex,
		store,
		format.New(cfg.Notifications),
		dispatcher,
		quotes,
		signalService,
		logger,
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, handlers.NewSignalHandler(signalService, pipe.Snapshot), webhooks)

	return &App{
		cfg:     cfg,
		logger:  logger,
		pipe:    pipe,
		sources: sources,
		store:   store,
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
			Handler: r,
		},
	}, nil
}

// Run starts the pipeline and the HTTP server, blocking until ctx is
// cancelled or a component fails fatally.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.pipe.Run(gctx, a.sources)
	})

	g.Go(func() error {
		a.logger.Printf("http server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Pipeline.ShutdownGrace)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := a.store.Close(); closeErr != nil {
		a.logger.Printf("failed to close dedup store: %v", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
