// Command outreach serves the Kind-To-Homeless API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kindtohomeless/outreach"
	"github.com/kindtohomeless/outreach/api"
	"github.com/kindtohomeless/outreach/common_tools"
	"github.com/kindtohomeless/outreach/events"
	"github.com/kindtohomeless/outreach/facilities"
	"github.com/kindtohomeless/outreach/geocode"
	"github.com/kindtohomeless/outreach/models"
	"github.com/kindtohomeless/outreach/models/gemini"
	"github.com/kindtohomeless/outreach/models/ollama"
	"github.com/kindtohomeless/outreach/models/openai"
	"github.com/kindtohomeless/outreach/stores"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "outreach:", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := outreach.LoadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(logOutput, settings.Debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := common_tools.NewClient(
		common_tools.WithUserAgent(settings.UserAgent),
		common_tools.WithClientLogger(logger),
	)
	model, err := newChatModel(ctx, settings)
	if err != nil {
		return err
	}

	places := geocode.New(httpClient, settings.NominatimURL)
	resolver := facilities.NewResolver(httpClient, settings.OverpassURL, places,
		facilities.WithMatcher(facilities.NewMatcher(model, logger)),
		facilities.WithLogger(logger),
	)

	search := common_tools.NewDuckDuckGo(httpClient, settings.SearchURL)
	registry, err := common_tools.DefaultRegistry(httpClient, search)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	cfg := outreach.NewAgentConfig().WithLogger(logger)
	if settings.TraceStore != "none" {
		traces, err := stores.NewTraceStore(stores.NewStoreConfig(settings.TraceStore, settings.TraceDSN))
		if err != nil {
			return err
		}
		defer traces.Close()
		cfg.WithObserver(stores.NewTraceObserver(traces, logger))
	}
	agent := outreach.NewAgent(model, registry, cfg)

	extractor := events.NewExtractor(model, places, logger)
	finder := events.NewFinder(httpClient, search, extractor, logger)
	scheduler, err := events.NewScheduler(finder, events.SchedulerConfig{
		Schedule: settings.EventsCron,
		Query:    settings.EventsQuery,
		Budget:   settings.EventsBudget,
	}, logger)
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()
	go scheduler.Refresh(ctx)

	srv := &http.Server{
		Addr: settings.Addr,
		Handler: api.NewRouter(api.Deps{
			Resolver:     resolver,
			Events:       scheduler,
			Extractor:    extractor,
			Agent:        agent,
			Logger:       logger,
			Debug:        settings.Debug,
			AgentTimeout: 5 * time.Minute,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", settings.Addr, "app", settings.AppName, "chat_backend", settings.ChatBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newChatModel builds the configured chat backend.
func newChatModel(ctx context.Context, s *outreach.Settings) (models.ChatModel, error) {
	switch s.ChatBackend {
	case "openai":
		return openai.New(s.ChatModel, s.ChatURL, s.ChatAPIKey, nil), nil
	case "ollama":
		return ollama.New(s.ChatModel, s.ChatURL, nil)
	case "gemini":
		return gemini.New(ctx, s.ChatModel, s.ChatAPIKey)
	default:
		return nil, fmt.Errorf("unsupported chat backend %q", s.ChatBackend)
	}
}
