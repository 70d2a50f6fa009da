package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
	"github.com/rocketscienceinc/morpion-backend/internal/metrics"
	"github.com/rocketscienceinc/morpion-backend/internal/morpion"
	"github.com/rocketscienceinc/morpion-backend/internal/repository"
)

const (
	MaxMessageLength    = 500
	DefaultHistoryLimit = 100
)

// Notifier delivers events to connections. Implementations must not block.
// Subscribe and Unsubscribe keep its view of room membership in step with the registry.
type Notifier interface {
	Broadcast(roomID string, event entity.Event)
	Unicast(connID string, event entity.Event)
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
}

type chatRepo interface {
	Append(ctx context.Context, entry entity.ChatEntry, limit int) error
	History(ctx context.Context, roomID string) ([]entity.ChatEntry, error)
	DeleteByRoomID(ctx context.Context, roomID string) error
}

// RoomManager applies client commands to rooms one at a time and fans the results out.
// The mutex covers the registry and every game it holds.
type RoomManager struct {
	mu sync.Mutex

	logger   *slog.Logger
	registry *repository.RoomRegistry
	engine   *morpion.Engine
	chatRepo chatRepo
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time

	historyLimit int
	handlers     map[string]commandHandler
}

func NewRoomManager(
	logger *slog.Logger,
	registry *repository.RoomRegistry,
	engine *morpion.Engine,
	chatRepo chatRepo,
	notifier Notifier,
	metrics *metrics.Metrics,
	now func() time.Time,
	historyLimit int,
) *RoomManager {
	if now == nil {
		now = time.Now
	}

	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	that := &RoomManager{
		logger:   logger.With("component", "room_manager"),
		registry: registry,
		engine:   engine,
		chatRepo: chatRepo,
		notifier: notifier,
		metrics:  metrics,
		now:      now,

		historyLimit: historyLimit,
	}
	that.handlers = that.commandHandlers()

	return that
}

// Create allocates a fresh room code and joins it as host.
func (that *RoomManager) Create(ctx context.Context, connID, name, gameID string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	name, err := repository.NormalizeDisplayName(name)
	if err != nil {
		return "", err
	}

	gameID, err = repository.NormalizeGameID(gameID)
	if err != nil {
		return "", err
	}

	roomID, err := that.registry.NewRoomID()
	if err != nil {
		return "", fmt.Errorf("failed to allocate room: %w", err)
	}

	if err = that.join(ctx, connID, roomID, name, gameID); err != nil {
		return "", err
	}

	return roomID, nil
}

// Join puts the connection into roomID, leaving its previous room first.
func (that *RoomManager) Join(ctx context.Context, connID, roomID, name, gameID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	roomID, err := repository.NormalizeRoomID(roomID)
	if err != nil {
		return err
	}

	name, err = repository.NormalizeDisplayName(name)
	if err != nil {
		return err
	}

	gameID, err = repository.NormalizeGameID(gameID)
	if err != nil {
		return err
	}

	return that.join(ctx, connID, roomID, name, gameID)
}

func (that *RoomManager) join(ctx context.Context, connID, roomID, name, gameID string) error {
	if err := that.registry.CheckJoin(roomID, connID, gameID); err != nil {
		return err
	}

	previousName := ""
	if current, err := that.registry.RoomOf(connID); err == nil {
		if current.ID != roomID {
			if err = that.leave(ctx, current, connID, "left to join another room"); err != nil {
				return fmt.Errorf("failed to leave room %s: %w", current.ID, err)
			}
		} else {
			previousName = current.Player(connID).Name
		}
	}

	room, player, created, err := that.registry.CreateOrJoin(roomID, connID, name, gameID, that.now())
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	that.notifier.Subscribe(connID, room.ID)
	that.metrics.SetActiveRooms(that.registry.Count())

	switch {
	case created:
		that.postSystem(ctx, room.ID, player.Name+" created the room")
	case previousName == "":
		that.postSystem(ctx, room.ID, player.Name+" joined the room")
	case previousName != player.Name:
		that.postSystem(ctx, room.ID, previousName+" is now known as "+player.Name)
	}

	that.broadcastState(room)

	history, err := that.chatRepo.History(ctx, room.ID)
	if err != nil {
		that.logger.Error("failed to load chat history", "roomID", room.ID, "error", err)
		history = []entity.ChatEntry{}
	}

	that.notifier.Unicast(connID, entity.Event{
		Action: entity.EventInit,
		Payload: entity.InitPayload{
			SelfID: connID,
			Room:   room.Snapshot(),
			Chat:   history,
		},
	})

	return nil
}

// ToggleReady flips readiness; it is ignored once the game started.
func (that *RoomManager) ToggleReady(_ context.Context, connID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	toggled, err := that.registry.ToggleReady(room.ID, connID)
	if err != nil {
		return fmt.Errorf("failed to toggle ready: %w", err)
	}

	if toggled {
		that.broadcastState(room)
	}

	return nil
}

func (that *RoomManager) Start(ctx context.Context, connID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	game, err := that.registry.StartGame(room.ID, connID, that.now())
	if err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	first := room.Player(game.ActivePlayerID)
	that.postSystem(ctx, room.ID, "Game starting! "+first.Name+" plays X")
	that.broadcastState(room)

	return nil
}

func (that *RoomManager) Move(ctx context.Context, connID string, cell int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	if !room.IsStarted() {
		return apperror.ErrGameIsNotStarted
	}

	if err = that.expire(ctx, room); err != nil {
		return err
	}

	if !room.IsStarted() {
		return apperror.ErrGameFinished
	}

	game, err := that.engine.ApplyMove(room.Game, connID, cell, that.now())
	if err != nil {
		return fmt.Errorf("failed to apply move: %w", err)
	}

	if err = that.registry.SetGame(room.ID, game); err != nil {
		return fmt.Errorf("failed to store game: %w", err)
	}

	if game.IsFinished() {
		return that.conclude(ctx, room)
	}

	that.broadcastState(room)

	return nil
}

// UpdateSettings lets the host pick who plays X.
func (that *RoomManager) UpdateSettings(ctx context.Context, connID, firstPlayerID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	if err = that.expire(ctx, room); err != nil {
		return err
	}

	if err = that.registry.UpdateSettings(room.ID, connID, strings.TrimSpace(firstPlayerID)); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	that.broadcastState(room)

	return nil
}

func (that *RoomManager) Chat(ctx context.Context, connID, body string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	body = strings.TrimSpace(body)
	if body == "" {
		return apperror.ErrEmptyMessage
	}

	if utf8.RuneCountInString(body) > MaxMessageLength {
		return apperror.ErrMessageTooLong
	}

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	player := room.Player(connID)
	that.publish(ctx, entity.ChatEntry{
		RoomID:     room.ID,
		AuthorID:   player.ID,
		AuthorName: player.Name,
		Body:       body,
		SentAt:     that.now(),
	})

	return nil
}

func (that *RoomManager) Leave(ctx context.Context, connID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	return that.leave(ctx, room, connID, "")
}

// Disconnect removes a connection that went away. Connections outside any room are ignored.
func (that *RoomManager) Disconnect(ctx context.Context, connID, reason string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return
	}

	if err = that.leave(ctx, room, connID, reason); err != nil {
		that.logger.Error("failed to remove disconnected player", "roomID", room.ID, "playerID", connID, "error", err)
	}
}

// leave applies a due timeout first, so the departure only cancels a game still being played.
func (that *RoomManager) leave(ctx context.Context, room *entity.Room, connID, reason string) error {
	if err := that.expire(ctx, room); err != nil {
		return err
	}

	name := room.Player(connID).Name
	cancelled := room.IsStarted()

	next, err := that.registry.Leave(room.ID, connID)
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	that.notifier.Unsubscribe(connID, room.ID)
	that.metrics.SetActiveRooms(that.registry.Count())

	if next == nil {
		if err = that.chatRepo.DeleteByRoomID(ctx, room.ID); err != nil {
			that.logger.Error("failed to delete chat history", "roomID", room.ID, "error", err)
		}
		return nil
	}

	message := name + " left the room"
	if reason != "" {
		message = name + " left the room (" + reason + ")"
	}
	if cancelled {
		message += ", the game was cancelled"
	}

	that.postSystem(ctx, next.ID, message)
	that.broadcastState(next)

	return nil
}

// Resync sends the current snapshot to the caller only.
func (that *RoomManager) Resync(ctx context.Context, connID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	if err = that.expire(ctx, room); err != nil {
		return err
	}

	that.notifier.Unicast(connID, entity.NewStateEvent(room.Snapshot()))

	return nil
}

// Reset sends the room back to the lobby once its game is over.
func (that *RoomManager) Reset(ctx context.Context, connID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.registry.RoomOf(connID)
	if err != nil {
		return err
	}

	if !room.IsHost(connID) {
		return apperror.ErrNotHost
	}

	if err = that.expire(ctx, room); err != nil {
		return err
	}

	if err = that.registry.ReturnToLobby(room.ID); err != nil {
		return fmt.Errorf("failed to reset room: %w", err)
	}

	that.broadcastState(room)

	return nil
}

// Snapshot returns the current state of a room for polling clients.
func (that *RoomManager) Snapshot(ctx context.Context, roomID string) (entity.RoomSnapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	roomID, err := repository.NormalizeRoomID(roomID)
	if err != nil {
		return entity.RoomSnapshot{}, err
	}

	room, err := that.registry.Get(roomID)
	if err != nil {
		return entity.RoomSnapshot{}, err
	}

	if err = that.expire(ctx, room); err != nil {
		return entity.RoomSnapshot{}, err
	}

	return room.Snapshot(), nil
}

// List summarizes every room after applying due timeouts.
func (that *RoomManager) List(ctx context.Context) []entity.RoomSummary {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.expireAll(ctx)

	return that.registry.List()
}

// Tick applies every due turn timeout.
func (that *RoomManager) Tick(ctx context.Context) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.expireAll(ctx)
}

func (that *RoomManager) expireAll(ctx context.Context) {
	for _, room := range that.registry.Rooms() {
		if !room.IsStarted() {
			continue
		}

		if err := that.expire(ctx, room); err != nil {
			that.logger.Error("failed to expire turn", "roomID", room.ID, "error", err)
		}
	}
}

// Run calls Tick every interval until ctx is done.
func (that *RoomManager) Run(ctx context.Context, interval time.Duration) {
	log := that.logger.With("method", "Run")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("turn sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("turn sweeper stopped")
			return
		case <-ticker.C:
			that.Tick(ctx)
		}
	}
}

// expire plays the forced moves that are due and publishes the outcome.
func (that *RoomManager) expire(ctx context.Context, room *entity.Room) error {
	if !room.IsStarted() || room.Game == nil {
		return nil
	}

	game, forced, err := that.engine.ExpireIfNeeded(room.Game, that.now())
	if err != nil {
		return fmt.Errorf("failed to expire turn: %w", err)
	}

	if game == room.Game {
		return nil
	}

	if err = that.registry.SetGame(room.ID, game); err != nil {
		return fmt.Errorf("failed to store game: %w", err)
	}

	that.metrics.MovesForced(forced)

	if forced > 0 && game.LastMove != nil {
		name := game.LastMove.PlayerID
		if player := room.Player(name); player != nil {
			name = player.Name
		}
		that.postSystem(ctx, room.ID, fmt.Sprintf("%s ran out of time, cell %d was played for them", name, game.LastMove.Cell))
	}

	if game.IsFinished() {
		return that.conclude(ctx, room)
	}

	that.broadcastState(room)

	return nil
}

// conclude announces the result and sends the room back to the lobby.
func (that *RoomManager) conclude(ctx context.Context, room *entity.Room) error {
	game := room.Game

	result := entity.ResultPayload{
		Outcome: entity.OutcomeDraw,
		Board:   game.Board,
	}
	message := "It's a draw!"

	if game.IsWon() {
		result.Outcome = entity.OutcomeWin
		result.WinnerID = game.WinnerID
		result.WinningLine = game.WinningLine

		winner := game.WinnerID
		if player := room.Player(winner); player != nil {
			winner = player.Name
		}
		message = winner + " wins!"
	}

	that.notifier.Broadcast(room.ID, entity.Event{Action: entity.EventResult, Payload: result})
	that.postSystem(ctx, room.ID, message)
	that.metrics.GameFinished(string(result.Outcome))

	if err := that.registry.ReturnToLobby(room.ID); err != nil {
		return fmt.Errorf("failed to return to lobby: %w", err)
	}

	that.broadcastState(room)

	return nil
}

func (that *RoomManager) postSystem(ctx context.Context, roomID, body string) {
	that.publish(ctx, entity.ChatEntry{
		RoomID:     roomID,
		AuthorName: entity.SystemAuthor,
		Body:       body,
		System:     true,
		SentAt:     that.now(),
	})
}

// publish stores a chat entry and broadcasts it. A storage failure does not stop the broadcast.
func (that *RoomManager) publish(ctx context.Context, entry entity.ChatEntry) {
	if err := that.chatRepo.Append(ctx, entry, that.historyLimit); err != nil {
		that.logger.Error("failed to store chat entry", "roomID", entry.RoomID, "error", err)
	}

	that.notifier.Broadcast(entry.RoomID, entity.NewChatEvent(entry))
}

func (that *RoomManager) broadcastState(room *entity.Room) {
	that.notifier.Broadcast(room.ID, entity.NewStateEvent(room.Snapshot()))
}
