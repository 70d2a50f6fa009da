package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/morpion-backend/internal/config"
	"github.com/rocketscienceinc/morpion-backend/internal/metrics"
	"github.com/rocketscienceinc/morpion-backend/internal/morpion"
	"github.com/rocketscienceinc/morpion-backend/internal/repository"
	"github.com/rocketscienceinc/morpion-backend/internal/repository/storage"
	"github.com/rocketscienceinc/morpion-backend/internal/usecase"
	"github.com/rocketscienceinc/morpion-backend/transport/rest"
	"github.com/rocketscienceinc/morpion-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	chatRepo, closeChat, err := newChatRepository(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeChat()

	appMetrics := metrics.New()

	//nolint:gosec // forced move cells need no cryptographic randomness
	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := morpion.NewEngine(conf.Game.TurnDuration, random)
	registry := repository.NewRoomRegistry(engine)
	hub := websocket.NewHub(logger, appMetrics)

	manager := usecase.NewRoomManager(
		logger, registry, engine, chatRepo, hub, appMetrics, time.Now, conf.Chat.HistoryLimit,
	)

	go manager.Run(ctx, conf.Game.SweepInterval)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		router := rest.NewRouter(logger, rest.NewRoomHandler(logger, manager), appMetrics.Handler())
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, router); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, hub, manager, conf.WebSocket.RatePerSecond, conf.WebSocket.Burst)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newChatRepository keeps chat history in redis when it is enabled and in memory otherwise.
func newChatRepository(
	ctx context.Context, log *slog.Logger, conf *config.Config,
) (repository.ChatRepository, func(), error) {
	if !conf.Redis.Enabled {
		log.Info("Redis disabled, chat history is kept in memory")
		return repository.NewMemoryChatRepository(), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeStorage := func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	return repository.NewChatRepository(redisStorage), closeStorage, nil
}
