// cmd/headless/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"go-hex-defense/internal/api"
	"go-hex-defense/internal/app"
	"go-hex-defense/internal/config"
	"go-hex-defense/internal/defs"
	"go-hex-defense/internal/logging"
	"go-hex-defense/internal/observability"
)

func main() {
	_ = godotenv.Load()
	log := logging.NewFromEnv()

	settings, err := config.FromEnv()
	if err != nil {
		log.Error(context.Background(), "invalid settings", logging.Err(err))
		os.Exit(1)
	}
	flag.StringVar(&settings.LevelPath, "level", settings.LevelPath, "level file (yaml or json), empty for the embedded one")
	flag.StringVar(&settings.DebugAddr, "addr", settings.DebugAddr, "spectator server address, empty to disable")
	// Игрока нет: волны стартуют сами.
	flag.BoolVar(&settings.AutoStart, "autostart", true, "start waves as soon as they are ready")
	flag.Float64Var(&settings.Speed, "speed", settings.Speed, "simulation speed multiplier")
	flag.Parse()
	if err := settings.Validate(); err != nil {
		log.Error(context.Background(), "invalid flags", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "headless run failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, settings config.Settings, log logging.Logger) error {
	level, err := defs.LoadOrDefault(settings.LevelPath)
	if err != nil {
		return err
	}

	tracing := observability.TracingConfigFromEnv()
	tracing.Level = level.Name
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		return err
	}

	game, err := app.NewGame(level, app.Config{Settings: settings, Logger: log, Recorder: metrics})
	if err != nil {
		return err
	}

	var hub *api.Hub
	mapView := api.NewMapView(game.Map())
	if settings.DebugAddr != "" {
		hub = api.NewHub(api.HubConfig{Logger: log}, &mapView)
	}

	runner := app.NewRunner(game, app.RunnerConfig{
		Logger:        log,
		StopOnOutcome: true,
		OnSnapshot: func(s *app.Snapshot) {
			if hub != nil {
				hub.Publish(s)
			}
		},
	})

	g, ctx := errgroup.WithContext(ctx)
	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()

	g.Go(func() error {
		// Партия решена, гасим сервер.
		defer cancelServe()
		return runner.Run(ctx)
	})
	if hub != nil {
		router := api.NewRouter(api.RouterConfig{
			Source:      runner,
			Map:         game.Map(),
			Hub:         hub,
			Metrics:     metrics.Handler(),
			EnablePprof: true,
			Logger:      log,
		})
		g.Go(func() error {
			hub.Run(serveCtx)
			return nil
		})
		g.Go(func() error {
			return api.Serve(serveCtx, settings.DebugAddr, router, settings.ShutdownIn, log)
		})
	}

	err = g.Wait()
	final := runner.Snapshot()
	log.Info(context.Background(), "game finished",
		logging.String("outcome", final.Status),
		logging.Uint("tick", final.Tick),
		logging.Int("wave", final.Wave),
		logging.Int("life", int(final.Life)))
	return err
}
