package repository

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
	"github.com/rocketscienceinc/morpion-backend/internal/morpion"
	"github.com/rocketscienceinc/morpion-backend/internal/pkg"
)

const (
	MaxDisplayNameLength = 32
	MaxRoomIDLength      = 32

	roomIDAttempts = 10
)

// RoomRegistry is the in-memory directory of rooms and the only owner of Room and Player
// records. It is not safe for concurrent use; callers serialize access.
type RoomRegistry struct {
	engine *morpion.Engine

	rooms      map[string]*entity.Room
	membership map[string]string // playerID -> roomID

	generateID func() (string, error)
}

func NewRoomRegistry(engine *morpion.Engine) *RoomRegistry {
	return &RoomRegistry{
		engine:     engine,
		rooms:      make(map[string]*entity.Room),
		membership: make(map[string]string),
		generateID: pkg.GenerateRoomCode,
	}
}

// NormalizeRoomID trims and upper-cases a client supplied room id.
func NormalizeRoomID(roomID string) (string, error) {
	roomID = strings.ToUpper(strings.TrimSpace(roomID))

	if roomID == "" {
		return "", apperror.ErrEmptyRoomID
	}

	if utf8.RuneCountInString(roomID) > MaxRoomIDLength {
		return "", apperror.ErrRoomIDTooLong
	}

	return roomID, nil
}

// NormalizeDisplayName trims a display name and enforces its length cap.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", apperror.ErrEmptyDisplayName
	}

	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", apperror.ErrDisplayNameTooLong
	}

	return name, nil
}

// NormalizeGameID resolves the requested game, defaulting to morpion.
func NormalizeGameID(gameID string) (string, error) {
	gameID = strings.ToLower(strings.TrimSpace(gameID))

	switch gameID {
	case "", entity.GameMorpion:
		return entity.GameMorpion, nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnsupportedGame, gameID)
	}
}

// NewRoomID returns a room code that no live room uses.
func (that *RoomRegistry) NewRoomID() (string, error) {
	for range roomIDAttempts {
		roomID, err := that.generateID()
		if err != nil {
			return "", fmt.Errorf("failed to generate room id: %w", err)
		}

		if _, ok := that.rooms[roomID]; !ok {
			return roomID, nil
		}
	}

	return "", apperror.ErrRoomIDUnavailable
}

// CheckJoin reports whether playerID could join roomID right now, without changing anything.
func (that *RoomRegistry) CheckJoin(roomID, playerID, gameID string) error {
	room, ok := that.rooms[roomID]
	if !ok || room.HasPlayer(playerID) {
		return nil
	}

	if room.IsFull() {
		return apperror.ErrRoomFull
	}

	if gameID != "" && room.GameID != gameID {
		return fmt.Errorf("%w: room hosts %s", apperror.ErrUnsupportedGame, room.GameID)
	}

	return nil
}

// CreateOrJoin adds the player to the room, creating the room with the player as host when
// it does not exist. Re-joining with the same id renames the player in place. Inputs must
// already be normalized.
func (that *RoomRegistry) CreateOrJoin(
	roomID, playerID, name, gameID string, now time.Time,
) (*entity.Room, *entity.Player, bool, error) {
	if roomID == "" || playerID == "" || name == "" {
		return nil, nil, false, apperror.ErrInvalidInput
	}

	if err := that.CheckJoin(roomID, playerID, gameID); err != nil {
		return nil, nil, false, err
	}

	if current, ok := that.membership[playerID]; ok && current != roomID {
		return nil, nil, false, fmt.Errorf("%w: player is still in room %s", apperror.ErrInvalidInput, current)
	}

	room, ok := that.rooms[roomID]
	created := !ok
	if created {
		room = entity.NewRoom(roomID, gameID, now)
		that.rooms[roomID] = room
	}

	if player := room.Player(playerID); player != nil {
		player.Name = name
		return room, player, false, nil
	}

	player := &entity.Player{
		ID:       playerID,
		Name:     name,
		Color:    room.NextColor(),
		JoinedAt: now,
	}

	room.Players = append(room.Players, player)
	if created {
		room.HostID = playerID
	}

	that.membership[playerID] = roomID
	that.syncSymbols(room)

	return room, player, created, nil
}

// Leave removes the player. A room left empty is destroyed and nil is returned. A game in
// progress is discarded and the room goes back to the lobby.
func (that *RoomRegistry) Leave(roomID, playerID string) (*entity.Room, error) {
	room, err := that.member(roomID, playerID)
	if err != nil {
		return nil, err
	}

	room.RemovePlayer(playerID)
	delete(that.membership, playerID)

	if room.IsEmpty() {
		delete(that.rooms, roomID)
		return nil, nil
	}

	if room.IsHost(playerID) {
		room.HostID = room.EarliestPlayer().ID
	}

	if room.IsStarted() {
		toLobby(room)
	}

	that.syncSymbols(room)

	return room, nil
}

// ToggleReady flips the readiness of the player. It does nothing outside the lobby and
// reports whether the flag changed.
func (that *RoomRegistry) ToggleReady(roomID, playerID string) (bool, error) {
	room, err := that.member(roomID, playerID)
	if err != nil {
		return false, err
	}

	if !room.IsLobby() {
		return false, nil
	}

	player := room.Player(playerID)
	player.Ready = !player.Ready

	return true, nil
}

// StartGame validates the start request and puts a fresh game into the room.
func (that *RoomRegistry) StartGame(roomID, requesterID string, now time.Time) (*entity.Game, error) {
	room, err := that.member(roomID, requesterID)
	if err != nil {
		return nil, err
	}

	if !room.IsHost(requesterID) {
		return nil, apperror.ErrNotHost
	}

	if room.IsStarted() {
		return nil, apperror.ErrAlreadyStarted
	}

	if len(room.Players) != entity.MaxPlayers {
		return nil, apperror.ErrNotEnoughPlayers
	}

	if !room.AllReady() {
		return nil, apperror.ErrNotEveryoneReady
	}

	symbols := morpion.AssignSymbols(room.Players, room.Settings.Symbols)

	game, err := that.engine.Initialize(room.Players, symbols, now)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize game: %w", err)
	}

	room.Settings.Symbols = symbols
	room.Game = game
	room.Status = entity.RoomStatusStarted

	return game, nil
}

// ReturnToLobby discards the game and resets readiness. It is refused while a game is
// still being played.
func (that *RoomRegistry) ReturnToLobby(roomID string) error {
	room, err := that.Get(roomID)
	if err != nil {
		return err
	}

	if room.Game != nil && room.Game.IsPlaying() {
		return apperror.ErrGameInProgress
	}

	toLobby(room)

	return nil
}

// UpdateSettings lets the host choose who plays X. An empty or unknown firstPlayerID picks
// the earliest joiner.
func (that *RoomRegistry) UpdateSettings(roomID, requesterID, firstPlayerID string) error {
	room, err := that.member(roomID, requesterID)
	if err != nil {
		return err
	}

	if !room.IsHost(requesterID) {
		return apperror.ErrNotHost
	}

	if room.IsStarted() {
		return apperror.ErrAlreadyStarted
	}

	room.Settings.Symbols = morpion.AssignFirstPlayer(room.Players, firstPlayerID)

	return nil
}

// SetGame stores the game state returned by the engine.
func (that *RoomRegistry) SetGame(roomID string, game *entity.Game) error {
	room, err := that.Get(roomID)
	if err != nil {
		return err
	}

	if !room.IsStarted() {
		return apperror.ErrGameIsNotStarted
	}

	room.Game = game

	return nil
}

func (that *RoomRegistry) Get(roomID string) (*entity.Room, error) {
	room, ok := that.rooms[roomID]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return room, nil
}

// RoomOf returns the room the player is currently in.
func (that *RoomRegistry) RoomOf(playerID string) (*entity.Room, error) {
	roomID, ok := that.membership[playerID]
	if !ok {
		return nil, apperror.ErrNotInRoom
	}

	return that.Get(roomID)
}

// Rooms returns every live room, oldest first.
func (that *RoomRegistry) Rooms() []*entity.Room {
	rooms := make([]*entity.Room, 0, len(that.rooms))
	for _, room := range that.rooms {
		rooms = append(rooms, room)
	}

	slices.SortFunc(rooms, func(a, b *entity.Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return rooms
}

func (that *RoomRegistry) List() []entity.RoomSummary {
	rooms := that.Rooms()

	summaries := make([]entity.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}

	return summaries
}

func (that *RoomRegistry) Count() int {
	return len(that.rooms)
}

func (that *RoomRegistry) member(roomID, playerID string) (*entity.Room, error) {
	room, err := that.Get(roomID)
	if err != nil {
		return nil, err
	}

	if !room.HasPlayer(playerID) {
		return nil, apperror.ErrNotInRoom
	}

	return room, nil
}

// syncSymbols keeps symbol preferences a subset of membership.
func (that *RoomRegistry) syncSymbols(room *entity.Room) {
	room.Settings.Symbols = morpion.AssignSymbols(room.Players, room.Settings.Symbols)
}

func toLobby(room *entity.Room) {
	room.Status = entity.RoomStatusLobby
	room.Game = nil
	room.ResetReadiness()
}
