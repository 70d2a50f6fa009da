package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// NewRouter wires the REST routes on a gin engine.
func NewRouter(logger *slog.Logger, rooms RoomHandler, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/ping", pingHandler)
	router.GET("/rooms", rooms.List)
	router.GET("/rooms/:id", rooms.Get)
	router.GET("/metrics", gin.WrapH(metrics))

	return router
}

// Start - starts HTTP server and stops it when ctx is done.
func Start(ctx context.Context, logger *slog.Logger, port string, router http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	log := logger.With("component", "rest")

	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		log.Debug("request handled",
			"method", ctx.Request.Method,
			"path", ctx.FullPath(),
			"status", ctx.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func pingHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, "pong")
}
