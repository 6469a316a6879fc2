// cmd/game/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go-hex-defense/internal/app"
	"go-hex-defense/internal/config"
	"go-hex-defense/internal/defs"
	"go-hex-defense/internal/logging"
	"go-hex-defense/internal/state"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"
)

const (
	startFromGame = true // true - начинать с игры, false - с меню
	maxDeltaTime  = 0.25
)

type AppGame struct {
	stateMachine   *state.StateMachine
	lastUpdateTime time.Time
}

func (a *AppGame) Update() error {
	now := time.Now()
	deltaTime := now.Sub(a.lastUpdateTime).Seconds()
	if deltaTime > maxDeltaTime {
		deltaTime = maxDeltaTime
	}
	a.lastUpdateTime = now
	a.stateMachine.Update(deltaTime)
	return nil
}

func (a *AppGame) Draw(screen *ebiten.Image) {
	a.stateMachine.Draw(screen)
}

func (a *AppGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return config.ScreenWidth, config.ScreenHeight
}

func main() {
	_ = godotenv.Load()
	logger := logging.NewFromEnv()

	settings, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	level, err := defs.LoadOrDefault(settings.LevelPath)
	if err != nil {
		log.Fatal(err)
	}

	if settings.DebugAddr != "" {
		go func() {
			log.Println(http.ListenAndServe(settings.DebugAddr, middleware.Profiler()))
		}()
	}

	sm := state.NewStateMachine(state.Options{
		Factory: func() (*app.Game, error) {
			return app.NewGame(level, app.Config{Settings: settings, Logger: logger})
		},
		Speed:  settings.Speed,
		Logger: logger,
	})
	if startFromGame {
		if err := sm.StartGame(); err != nil {
			log.Fatal(err)
		}
	} else {
		sm.SetState(state.NewMenuState(sm, nil))
	}

	logger.Info(context.Background(), "window opened", logging.String("level", level.Name))
	appGame := &AppGame{
		stateMachine:   sm,
		lastUpdateTime: time.Now(),
	}
	ebiten.SetWindowSize(config.ScreenWidth, config.ScreenHeight)
	ebiten.SetWindowTitle("Hex Defense")
	if err := ebiten.RunGame(appGame); err != nil {
		log.Fatal(err)
	}
}
