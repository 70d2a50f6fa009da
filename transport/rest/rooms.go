package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
)

type roomReader interface {
	Snapshot(ctx context.Context, roomID string) (entity.RoomSnapshot, error)
	List(ctx context.Context) []entity.RoomSummary
}

// RoomHandler serves read-only room state for polling clients.
type RoomHandler interface {
	List(ctx *gin.Context)
	Get(ctx *gin.Context)
}

type roomHandler struct {
	logger *slog.Logger
	rooms  roomReader
}

func NewRoomHandler(logger *slog.Logger, rooms roomReader) RoomHandler {
	return &roomHandler{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
	}
}

func (that *roomHandler) List(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"rooms": that.rooms.List(ctx.Request.Context())})
}

func (that *roomHandler) Get(ctx *gin.Context) {
	log := that.logger.With("method", "Get")

	snapshot, err := that.rooms.Snapshot(ctx.Request.Context(), ctx.Param("id"))
	if err == nil {
		ctx.JSON(http.StatusOK, gin.H{"room": snapshot})
		return
	}

	public := apperror.Public(err)

	switch {
	case errors.Is(public, apperror.ErrRoomNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": public.Error()})
	case errors.Is(public, apperror.ErrInternal):
		log.Error("failed to get room", "roomID", ctx.Param("id"), "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": public.Error()})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": public.Error()})
	}
}
