package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joho/godotenv"

	"github.com/screwyprof/efpwatch/pkg/efp"
	"github.com/screwyprof/efpwatch/pkg/logger"
	"github.com/screwyprof/efpwatch/pkg/pgxdb"
	"github.com/screwyprof/efpwatch/pkg/twitter"
	"github.com/screwyprof/efpwatch/watcher"
	"github.com/screwyprof/efpwatch/watcher/config"
	"github.com/screwyprof/efpwatch/watcher/store/filestore"
	"github.com/screwyprof/efpwatch/watcher/store/pgxstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watchlist
	watchlist, err := config.LoadWatchlist(cfg.WatchlistPath)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load watchlist", slog.Any("error", err))
		return 1
	}

	// State store
	store, storeCloser, err := newStore(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize state store", slog.Any("error", err))
		return 1
	}
	defer storeCloser()

	// EFP client with retrying HTTP transport
	efpClient := efp.NewClient(newHTTPClient(cfg), cfg.EFPAPIBaseURL,
		efp.WithRateLimit(cfg.RequestsPerSecond),
	)

	// Notifier: summary tweet when credentials are configured, log lines otherwise
	notifier := newNotifier(cfg, log)

	// Create watcher service
	service := watcher.NewService(
		efpClient,
		store,
		watchlist,
		cfg.Thresholds(),
		watcher.WithNotifier(notifier),
		watcher.WithMaxConcurrentFetches(cfg.MaxConcurrent),
	)

	// Start the run
	log.InfoContext(ctx, "Starting EFP watcher run",
		slog.Int("watchlist", len(watchlist)),
		slog.String("stateBackend", cfg.StateBackend),
	)
	events, result := service.Start(ctx)

	// Subscribe to events for logging
	subCloser := setupEventLogging(ctx, events, log)

	runErr := <-result
	subCloser()

	if runErr != nil {
		log.ErrorContext(ctx, "Watcher run failed", slog.Any("error", runErr))
		return 1
	}
	log.InfoContext(ctx, "Watcher run finished")
	return 0
}

// newHTTPClient builds the retrying HTTP client the EFP client sends through
func newHTTPClient(cfg config.Config) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	client := rc.StandardClient()
	client.Timeout = cfg.HTTPClientTimeout
	return client
}

// newStore selects the state backend from configuration
func newStore(ctx context.Context, cfg config.Config, log *slog.Logger) (watcher.Store, func(), error) {
	switch cfg.StateBackend {
	case "postgres":
		pool, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.InfoContext(ctx, "Applying database migrations")
		if err := pgxdb.ApplyMigrations(pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store, closer := pgxstore.New(pool)
		return store, closer, nil
	case "file":
		return filestore.New(cfg.StatePath), func() {}, nil
	default:
		return nil, nil, errors.New("unknown state backend: " + cfg.StateBackend)
	}
}

// newNotifier wires the posting boundary
func newNotifier(cfg config.Config, log *slog.Logger) watcher.Notifier {
	creds := twitter.Credentials{
		ConsumerKey:       cfg.TwitterConsumerKey,
		ConsumerSecret:    cfg.TwitterConsumerSecret,
		AccessToken:       cfg.TwitterAccessToken,
		AccessTokenSecret: cfg.TwitterAccessTokenSecret,
	}
	if cfg.DryRun || !creds.Configured() {
		return watcher.NewLogNotifier(log)
	}
	return watcher.NewSummaryNotifier(twitter.NewClient(creds), log)
}

// setupEventLogging configures event handlers using slog directly
func setupEventLogging(ctx context.Context, events <-chan watcher.Event, log *slog.Logger) func() {
	return watcher.NewSubscriber(events,
		watcher.OnRunStarted(func(event watcher.RunStarted) {
			log.InfoContext(ctx, "Run started",
				slog.String("startedAt", event.StartedAt.Format(logger.TimestampFormat)),
				slog.Int("accounts", event.Accounts),
			)
		}),
		watcher.OnSnapshotFetched(func(event watcher.SnapshotFetched) {
			if event.Partial {
				log.WarnContext(ctx, "Snapshot fetched with missing fields",
					slog.String("account", string(event.Account)),
				)
			} else {
				log.DebugContext(ctx, "Snapshot fetched",
					slog.String("account", string(event.Account)),
				)
			}
		}),
		watcher.OnFetchFailed(func(event watcher.FetchFailed) {
			log.WarnContext(ctx, "Account fetch failed, carrying previous snapshot forward",
				slog.String("account", string(event.Account)),
				slog.Any("error", event.Err),
			)
		}),
		watcher.OnChangesDetected(func(event watcher.ChangesDetected) {
			if len(event.Changes) > 0 {
				log.InfoContext(ctx, "Changes detected", slog.Int("count", len(event.Changes)))
			} else {
				log.InfoContext(ctx, "No significant changes this run")
			}
		}),
		watcher.OnNotifyFailed(func(event watcher.NotifyFailed) {
			log.ErrorContext(ctx, "Notification dispatch failed", slog.Any("error", event.Err))
		}),
		watcher.OnStateSaved(func(event watcher.StateSaved) {
			log.InfoContext(ctx, "State saved", slog.Int("accounts", event.Accounts))
		}),
		watcher.OnRunCompleted(func(event watcher.RunCompleted) {
			log.InfoContext(ctx, "Run completed",
				slog.Int("accounts", event.Accounts),
				slog.Int("skipped", event.Skipped),
				slog.Int("changes", event.Changes),
				slog.Duration("duration", event.Duration),
			)
		}),
		watcher.OnRunError(func(event watcher.RunError) {
			log.ErrorContext(ctx, "Run aborted", slog.Any("error", event.Err))
		}),
	)
}
