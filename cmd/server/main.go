package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamasit07/connect4-server/internal/config"
	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/iamasit07/connect4-server/internal/repository/memory"
	"github.com/iamasit07/connect4-server/internal/repository/postgres"
	"github.com/iamasit07/connect4-server/internal/repository/redis"
	"github.com/iamasit07/connect4-server/internal/service/bot"
	"github.com/iamasit07/connect4-server/internal/service/cleanup"
	"github.com/iamasit07/connect4-server/internal/service/game"
	"github.com/iamasit07/connect4-server/internal/service/matchmaking"
	transportHttp "github.com/iamasit07/connect4-server/internal/transport/http"
	"github.com/iamasit07/connect4-server/internal/transport/tcp"
	"github.com/iamasit07/connect4-server/internal/transport/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	envErr := godotenv.Load()
	if envErr != nil {
		envErr = godotenv.Load("../.env")
	}

	cfg, cfgErr := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		logger.Debug().Msg("no .env file found")
	}
	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("invalid configuration values")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// 1. Persistence (optional)
	var (
		db       *sql.DB
		gameRepo *postgres.GameRepo
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, postgres.Options{
			Driver:             cfg.DatabaseDriver,
			URL:                cfg.DatabaseURL,
			MaxOpenConns:       cfg.DBMaxOpenConns,
			MaxIdleConns:       cfg.DBMaxIdleConns,
			ConnMaxLifetimeMin: cfg.DBConnMaxLifetimeMin,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info().Str("driver", cfg.DatabaseDriver).Msg("running database migrations")
		if err := postgres.RunMigrations(ctx, db); err != nil {
			return err
		}
		gameRepo = postgres.NewGameRepo(db)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, game history disabled")
	}

	// 2. Live-session registry: Redis when reachable, memory otherwise
	var registry game.Registry
	if client := redis.Connect(ctx, redis.Options{Addr: cfg.RedisURL, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger); client != nil {
		defer client.Close()
		redisRegistry := redis.NewRegistry(client)
		if err := redisRegistry.Clear(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to clear stale live sessions")
		}
		registry = redisRegistry
	} else {
		registry = memory.NewRegistry(cfg.LiveSessionTTL)
	}

	// 3. Services
	var repo game.GameRepository
	if gameRepo != nil {
		repo = gameRepo
	}
	sessionManager := game.NewSessionManager(repo, registry, bot.NewRandom(cfg.BotSeed), logger)
	defer sessionManager.Wait()

	listener := matchmaking.NewListener(sessionManager, cfg.HandshakeTimeout, logger,
		protocol.WithReadTimeout(cfg.MoveTimeout),
		protocol.WithWriteTimeout(cfg.WriteTimeout),
	)

	// 4. Transports
	source := tcp.NewSource(cfg.TCPAddr, logger)
	if err := source.Listen(); err != nil {
		return err
	}

	var history *transportHttp.HistoryHandler
	if gameRepo != nil {
		history = transportHttp.NewHistoryHandler(gameRepo, 5*time.Second)
	}
	router := transportHttp.NewRouter(transportHttp.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Sessions:       transportHttp.NewSessionsHandler(registry),
		History:        history,
		WebSocket:      websocket.NewHandler(listener, cfg.AllowedOrigins, logger).HandleWebSocket,
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return source.Serve(gctx, listener) })
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("server is shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if gameRepo != nil {
		g.Go(func() error {
			return cleanup.NewWorker(gameRepo, cfg.HistoryRetention, logger).Run(gctx)
		})
	}

	return g.Wait()
}
