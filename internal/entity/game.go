package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
)

// GameMorpion is the only game a room can host.
const GameMorpion = "morpion"

// BoardSize is the number of cells of the 3x3 board.
const BoardSize = 9

type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"

	EmptyCell Symbol = ""
)

// Symbols is the fixed assignment order: X is handed out before O.
var Symbols = [...]Symbol{SymbolX, SymbolO}

type GameStatus string

const (
	GameStatusPlaying GameStatus = "playing"
	GameStatusWon     GameStatus = "won"
	GameStatusDraw    GameStatus = "draw"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Move describes the last cell that was filled.
type Move struct {
	Cell     int    `json:"cell"`
	PlayerID string `json:"player_id"`
	Symbol   Symbol `json:"symbol"`
	Forced   bool   `json:"forced,omitempty"`
}

// Game is the authoritative state of one running match. It is replaced, never shared:
// engine operations return a fresh copy.
type Game struct {
	Board          [BoardSize]Symbol `json:"board"`
	ActivePlayerID string            `json:"active_player_id,omitempty"`
	Symbols        map[string]Symbol `json:"symbols"`
	Status         GameStatus        `json:"status"`
	WinnerID       string            `json:"winner_id,omitempty"`
	WinningLine    []int             `json:"winning_line,omitempty"`
	TurnDeadline   *time.Time        `json:"turn_deadline,omitempty"`
	MoveCount      int               `json:"move_count"`
	LastMove       *Move             `json:"last_move,omitempty"`
}

func (that *Game) IsPlaying() bool {
	return that.Status == GameStatusPlaying
}

func (that *Game) IsWon() bool {
	return that.Status == GameStatusWon
}

func (that *Game) IsDraw() bool {
	return that.Status == GameStatusDraw
}

// IsFinished reports whether the game reached a terminal state.
func (that *Game) IsFinished() bool {
	return that.IsWon() || that.IsDraw()
}

func (that *Game) ConfirmPlayingState() error {
	switch that.Status {
	case GameStatusPlaying:
		return nil
	case GameStatusWon, GameStatusDraw:
		return apperror.ErrGameFinished
	default:
		return fmt.Errorf("%w: unknown game status %q", apperror.ErrInternal, that.Status)
	}
}

// SymbolOf returns the symbol held by the player, if any.
func (that *Game) SymbolOf(playerID string) (Symbol, bool) {
	symbol, ok := that.Symbols[playerID]
	return symbol, ok
}

// HolderOf returns the id of the player holding the symbol, or "".
func (that *Game) HolderOf(symbol Symbol) string {
	for playerID, held := range that.Symbols {
		if held == symbol {
			return playerID
		}
	}
	return ""
}

// EmptyCells lists the free board indices in ascending order.
func (that *Game) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range that.Board {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}
	return cells
}

// IsExpired reports whether the active turn's deadline has passed.
func (that *Game) IsExpired(now time.Time) bool {
	return that.IsPlaying() && that.TurnDeadline != nil && !now.Before(*that.TurnDeadline)
}

// Clone returns a deep copy.
func (that *Game) Clone() *Game {
	if that == nil {
		return nil
	}

	clone := *that

	clone.Symbols = make(map[string]Symbol, len(that.Symbols))
	for playerID, symbol := range that.Symbols {
		clone.Symbols[playerID] = symbol
	}

	if that.WinningLine != nil {
		clone.WinningLine = append([]int(nil), that.WinningLine...)
	}

	if that.TurnDeadline != nil {
		deadline := *that.TurnDeadline
		clone.TurnDeadline = &deadline
	}

	if that.LastMove != nil {
		move := *that.LastMove
		clone.LastMove = &move
	}

	return &clone
}
