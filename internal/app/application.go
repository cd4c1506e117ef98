// Package app wires the client runtime together. Construction order is
// logger, storage, REST client, session store, transport, realtime
// manager; Stop releases them in reverse.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/api"
	"rentdirect/internal/config"
	"rentdirect/internal/logging"
	"rentdirect/internal/metrics"
	"rentdirect/internal/notify"
	"rentdirect/internal/realtime"
	"rentdirect/internal/session"
	"rentdirect/internal/storage"
	"rentdirect/internal/websocket"
	"rentdirect/pkg/interfaces"
)

// Options overrides collaborators, mostly for tests. Zero values build the
// production ones from the config.
type Options struct {
	Logger     hclog.Logger
	Notifier   interfaces.Notifier
	HTTPClient *http.Client
	Storage    interfaces.Storage
	Transport  interfaces.Transport
}

// Application owns every long-lived component of one client process.
type Application struct {
	config   *config.Config
	logger   hclog.Logger
	metrics  *metrics.Metrics
	storage  interfaces.Storage
	notifier interfaces.Notifier

	API      *api.Client
	Session  *session.Store
	Realtime *realtime.Manager
}

// NewApplication builds the components without touching the network.
func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil || cfg.API.URL == "" {
		return nil, &config.StartupConfigError{Key: "api.url", EnvVar: "RENTDIRECT_API_URL"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}

	store := opts.Storage
	if store == nil {
		var err error
		store, err = storage.Open(cfg.Storage, logger.Named("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	client := api.NewClient(api.Options{
		BaseURL:           cfg.APIURL(),
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		HTTPClient:        opts.HTTPClient,
		Logger:            logger.Named("api"),
	})

	sessions := session.NewStore(client.Auth, store, logger.Named("session"), m)
	client.SetTokenSource(sessions)

	transport := opts.Transport
	if transport == nil && cfg.Realtime.Enabled {
		socketURL, err := cfg.SocketURL()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("invalid realtime url: %w", err)
		}
		transport = websocket.NewTransport(socketURL, transportConfig(cfg.Realtime), logger.Named("transport"))
	}

	policy := realtime.SubscriptionsDropWhileDisconnected
	if cfg.Realtime.PersistSubscriptions {
		policy = realtime.SubscriptionsPersistent
	}
	manager := realtime.NewManager(transport, realtime.Options{
		Policy:     policy,
		BufferSize: cfg.Realtime.BufferSize,
		Logger:     logger.Named("realtime"),
		Metrics:    m,
	})

	return &Application{
		config:   cfg,
		logger:   logger,
		metrics:  m,
		storage:  store,
		notifier: notifier,
		API:      client,
		Session:  sessions,
		Realtime: manager,
	}, nil
}

func transportConfig(rc config.RealtimeConfig) websocket.ClientConfig {
	cfg := websocket.DefaultClientConfig()
	cfg.Connection = websocket.ConnectionConfig{
		PingInterval: rc.PingInterval,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		BufferSize:   rc.BufferSize,
	}
	cfg.Reconnect = rc.Reconnect
	cfg.ReconnectDelay = rc.ReconnectDelay
	cfg.ReconnectMaxDelay = rc.ReconnectMaxDelay
	cfg.MaxReconnectAttempts = rc.MaxReconnectAttempts
	return cfg
}

// Start restores the persisted session and, when realtime is enabled,
// binds the connection manager to it.
func (app *Application) Start(ctx context.Context) error {
	app.logger.Debug("starting rentdirect client", "api", app.API.BaseURL())

	app.Session.Initialize(ctx)

	if app.config.Realtime.Enabled {
		if err := app.Realtime.Bind(ctx, app.Session); err != nil {
			return fmt.Errorf("failed to start realtime: %w", err)
		}
	}
	return nil
}

// Stop disposes the realtime manager and closes storage.
func (app *Application) Stop(ctx context.Context) error {
	app.logger.Debug("shutting down rentdirect client")

	app.Realtime.Dispose()

	var errs []error
	if err := app.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage shutdown: %w", err))
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the resolved configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the root logger.
func (app *Application) Logger() hclog.Logger {
	return app.logger
}

// Metrics returns the collectors, or nil when metrics are disabled.
func (app *Application) Metrics() *metrics.Metrics {
	return app.metrics
}

// Notifier returns the notifier hooks should report through.
func (app *Application) Notifier() interfaces.Notifier {
	return app.notifier
}
