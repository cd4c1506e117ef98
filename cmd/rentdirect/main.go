package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"rentdirect/internal/app"
	"rentdirect/internal/config"
	"rentdirect/internal/logging"
	"rentdirect/internal/notify"
	"rentdirect/internal/output"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// errReported marks a failure the user has already been notified about.
var errReported = errors.New("already reported")

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// run executes the CLI until it finishes or SIGINT/SIGTERM arrives.
func run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newApp().RunContext(ctx, args)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "rentdirect",
		Usage:   "RentDirect command-line client",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			whoamiCommand(),
			propertiesCommand(),
			conversationsCommand(),
			chatCommand(),
		},
		Before: setup,
		After:  teardown,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			EnvVars: []string{"RENTDIRECT_CONFIG_FILE"},
		},
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "Backend base URL (overrides RENTDIRECT_API_URL)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: trace, debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve prometheus metrics on this address while the command runs",
		},
	}
}

// runtime is the per-invocation state shared by commands.
type runtime struct {
	app     *app.Application
	format  output.Format
	out     io.Writer
	metrics *http.Server
}

const runtimeKey = "runtime"

func setup(c *cli.Context) error {
	if c.Args().Len() == 0 || c.Args().First() == "help" || c.Args().First() == "h" {
		return nil
	}

	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	overrides := map[string]any{}
	if v := c.String("api-url"); v != "" {
		overrides["api"] = map[string]any{"url": v}
	}
	if v := c.String("log-level"); v != "" {
		overrides["log"] = map[string]any{"level": v}
	}
	cfg, err := config.Load(config.WithConfigFile(c.String("config")), config.WithOverrides(overrides))
	if err != nil {
		return err
	}

	errOut := c.App.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	application, err := app.NewApplication(cfg, app.Options{
		Logger:   logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: errOut}),
		Notifier: notify.NewTerminal(errOut),
	})
	if err != nil {
		return err
	}
	if err := application.Start(c.Context); err != nil {
		_ = application.Stop(context.Background())
		return err
	}

	rt := &runtime{app: application, format: format, out: c.App.Writer}
	if addr := c.String("metrics-addr"); addr != "" && application.Metrics() != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", application.Metrics().Handler())
		rt.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := rt.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				application.Logger().Error("metrics server failed", "error", err)
			}
		}()
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[runtimeKey] = rt
	return nil
}

func teardown(c *cli.Context) error {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, runtimeKey)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if rt.metrics != nil {
		_ = rt.metrics.Shutdown(ctx)
	}
	return rt.app.Stop(ctx)
}

func runtimeFrom(c *cli.Context) (*runtime, error) {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil, errors.New("client not initialized")
	}
	return rt, nil
}
