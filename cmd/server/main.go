// Package main is the entry point of the application
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/pairing-server/internal/auth"
	"github.com/tecu23/pairing-server/pkg/archive"
	"github.com/tecu23/pairing-server/pkg/chess"
	"github.com/tecu23/pairing-server/pkg/config"
	"github.com/tecu23/pairing-server/pkg/coordinator"
	"github.com/tecu23/pairing-server/pkg/events"
	"github.com/tecu23/pairing-server/pkg/game"
	"github.com/tecu23/pairing-server/pkg/matchmaker"
	"github.com/tecu23/pairing-server/pkg/registry"
	"github.com/tecu23/pairing-server/pkg/server"
)

// App encapsulates global dependencies
type application struct {
	Auth        *auth.APIKeyAuth
	Logger      *zap.Logger
	Config      *config.Config
	Publisher   *events.Publisher
	Registry    *registry.Registry
	Matchmaker  *matchmaker.Matchmaker
	Coordinator *coordinator.Coordinator
	Hub         *server.Hub
	Archive     *archive.Store // nil when REDIS_URL is unset
	Server      *http.Server

	upgrader  websocket.Upgrader
	ctx       context.Context
	StartTime time.Time
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	app, err := newApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("initialize application error", zap.Error(err))
	}

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	publisher := events.NewPublisher()
	reg := registry.New(logger)

	engine := chess.NewStandard()
	factory := func(white, black game.Identity, tc chess.TimeControl) (*game.Match, error) {
		return game.NewMatch(game.CreateMatchParams{
			White:       white,
			Black:       black,
			TimeControl: tc,
			Engine:      engine,
			Logger:      logger,
		})
	}
	mm := matchmaker.New(factory, logger)
	coord := coordinator.New(reg, mm, publisher, logger)

	app := &application{
		Auth:        auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:      logger,
		Config:      cfg,
		Publisher:   publisher,
		Registry:    reg,
		Matchmaker:  mm,
		Coordinator: coord,
		Hub:         server.NewHub(coord, logger),
		StartTime:   time.Now(),
	}

	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkOrigin,
	}

	if cfg.RedisURL != "" {
		store, err := archive.Open(ctx, cfg.RedisURL, cfg.ArchiveTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		store.Subscribe(publisher)
		app.Archive = store
		logger.Info("match archive enabled", zap.Duration("ttl", cfg.ArchiveTTL))
	}

	return app, nil
}

func (app *application) checkOrigin(r *http.Request) bool {
	if app.Config.FrontendOrigin == "" {
		return true
	}

	return app.Config.FrontendOrigin == r.Header.Get("Origin")
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources once the hub has stopped
func (app *application) Shutdown() {
	// Let archive writes for the final game_over events land
	app.Publisher.Wait()

	if app.Archive != nil {
		if err := app.Archive.Close(); err != nil {
			app.Logger.Warn("closing archive", zap.Error(err))
		}
	}

	app.Logger.Info("All components shut down successfully")
}
