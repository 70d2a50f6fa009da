package entity

import (
	"slices"
	"time"
)

// MaxPlayers is both the room capacity and the number of players a game needs.
const MaxPlayers = 2

type RoomStatus string

const (
	RoomStatusLobby   RoomStatus = "lobby"
	RoomStatusStarted RoomStatus = "started"
)

// Settings are the pre-game choices of the host.
type Settings struct {
	Symbols map[string]Symbol `json:"symbols"`
}

// Room is owned by the room registry. Players are kept in join order.
type Room struct {
	ID        string
	GameID    string
	HostID    string
	Status    RoomStatus
	Players   []*Player
	Settings  Settings
	Game      *Game
	CreatedAt time.Time
}

func NewRoom(id, gameID string, now time.Time) *Room {
	return &Room{
		ID:        id,
		GameID:    gameID,
		Status:    RoomStatusLobby,
		Settings:  Settings{Symbols: map[string]Symbol{}},
		CreatedAt: now,
	}
}

func (that *Room) IsStarted() bool {
	return that.Status == RoomStatusStarted
}

func (that *Room) IsLobby() bool {
	return that.Status == RoomStatusLobby
}

func (that *Room) IsHost(playerID string) bool {
	return playerID != "" && that.HostID == playerID
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= MaxPlayers
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// Player returns the member with the given id, or nil.
func (that *Room) Player(playerID string) *Player {
	for _, player := range that.Players {
		if player.ID == playerID {
			return player
		}
	}
	return nil
}

func (that *Room) HasPlayer(playerID string) bool {
	return that.Player(playerID) != nil
}

// AllReady reports whether every member is ready. An empty room is never ready.
func (that *Room) AllReady() bool {
	if that.IsEmpty() {
		return false
	}

	for _, player := range that.Players {
		if !player.Ready {
			return false
		}
	}
	return true
}

// EarliestPlayer returns the member with the smallest join time, ties broken by join order.
func (that *Room) EarliestPlayer() *Player {
	var earliest *Player
	for _, player := range that.Players {
		if earliest == nil || player.JoinedAt.Before(earliest.JoinedAt) {
			earliest = player
		}
	}
	return earliest
}

// ResetReadiness puts every member back to waiting.
func (that *Room) ResetReadiness() {
	for _, player := range that.Players {
		player.Ready = false
	}
}

// NextColor picks the first palette entry no member uses yet.
func (that *Room) NextColor() string {
	for _, color := range PlayerColors {
		taken := slices.ContainsFunc(that.Players, func(player *Player) bool {
			return player.Color == color
		})
		if !taken {
			return color
		}
	}
	return PlayerColors[len(that.Players)%len(PlayerColors)]
}

func (that *Room) RemovePlayer(playerID string) bool {
	idx := slices.IndexFunc(that.Players, func(player *Player) bool {
		return player.ID == playerID
	})
	if idx < 0 {
		return false
	}

	that.Players = slices.Delete(that.Players, idx, idx+1)
	return true
}

// RoomSnapshot is the wire projection of a room. It shares nothing with the room.
type RoomSnapshot struct {
	ID       string           `json:"id"`
	GameID   string           `json:"game_id"`
	HostID   string           `json:"host_id,omitempty"`
	Status   RoomStatus       `json:"status"`
	Players  []PlayerSnapshot `json:"players"`
	Game     *Game            `json:"game,omitempty"`
	Settings Settings         `json:"settings"`
}

func (that *Room) Snapshot() RoomSnapshot {
	players := make([]PlayerSnapshot, 0, len(that.Players))
	for _, player := range that.Players {
		players = append(players, player.Snapshot())
	}

	symbols := make(map[string]Symbol, len(that.Settings.Symbols))
	for playerID, symbol := range that.Settings.Symbols {
		symbols[playerID] = symbol
	}

	return RoomSnapshot{
		ID:       that.ID,
		GameID:   that.GameID,
		HostID:   that.HostID,
		Status:   that.Status,
		Players:  players,
		Game:     that.Game.Clone(),
		Settings: Settings{Symbols: symbols},
	}
}

// RoomSummary is the short form used by room listings.
type RoomSummary struct {
	ID      string     `json:"id"`
	GameID  string     `json:"game_id"`
	HostID  string     `json:"host_id,omitempty"`
	Status  RoomStatus `json:"status"`
	Players int        `json:"players"`
}

func (that *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:      that.ID,
		GameID:  that.GameID,
		HostID:  that.HostID,
		Status:  that.Status,
		Players: len(that.Players),
	}
}
