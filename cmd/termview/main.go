// cmd/termview/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"go-hex-defense/internal/app"
	"go-hex-defense/internal/config"
	"go-hex-defense/internal/defs"
	"go-hex-defense/internal/event"
	"go-hex-defense/internal/logging"
	"go-hex-defense/internal/ui"
)

func main() {
	_ = godotenv.Load()

	// Терминал занят кадром, поэтому журнал пишем только в файл.
	log := logging.Noop()
	if path := os.Getenv("TD_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		log = logging.New(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT"), Output: f})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log logging.Logger) error {
	settings, err := config.FromEnv()
	if err != nil {
		return err
	}
	level, err := defs.LoadOrDefault(settings.LevelPath)
	if err != nil {
		return err
	}
	game, err := app.NewGame(level, app.Config{Settings: settings, Logger: log})
	if err != nil {
		return err
	}

	sound, err := ui.NewSound()
	if err != nil {
		log.Warn(ctx, "audio disabled", logging.Err(err))
	}
	defer sound.Close()
	for _, t := range []event.EventType{event.WaveReady, event.EnemyLeaked, event.LevelFinished, event.GameOver} {
		game.EventDispatcher.Subscribe(t, sound)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	runner := app.NewRunner(game, app.RunnerConfig{Logger: log})
	viewer := ui.NewViewer(screen, runner, game.Map(), log)

	g, ctx := errgroup.WithContext(ctx)
	viewCtx, quit := context.WithCancel(ctx)
	g.Go(func() error { return runner.Run(viewCtx) })
	g.Go(func() error {
		// Выход из просмотра останавливает и симуляцию.
		defer quit()
		return viewer.Run(viewCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
