package morpion

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
)

// DefaultTurnDuration is how long a player has to move before a move is forced.
const DefaultTurnDuration = 30 * time.Second

// Random picks forced-move cells. *math/rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// Engine holds the rules shared by every game instance. Its operations never mutate the
// game passed in; they return a new one.
type Engine struct {
	turnDuration time.Duration
	random       Random
}

func NewEngine(turnDuration time.Duration, random Random) *Engine {
	if turnDuration <= 0 {
		turnDuration = DefaultTurnDuration
	}

	return &Engine{
		turnDuration: turnDuration,
		random:       random,
	}
}

func (that *Engine) TurnDuration() time.Duration {
	return that.turnDuration
}

// Initialize builds a fresh game for players. Only symbols of the given players are kept;
// the holder of X moves first.
func (that *Engine) Initialize(players []*entity.Player, symbols map[string]entity.Symbol, now time.Time) (*entity.Game, error) {
	game := &entity.Game{
		Symbols: make(map[string]entity.Symbol, len(symbols)),
		Status:  entity.GameStatusPlaying,
	}

	for _, player := range players {
		if symbol, ok := symbols[player.ID]; ok {
			game.Symbols[player.ID] = symbol
		}
	}

	if len(game.Symbols) < entity.MaxPlayers {
		return nil, fmt.Errorf("%w: %d of %d players hold a symbol", apperror.ErrNotEnoughPlayers, len(game.Symbols), entity.MaxPlayers)
	}

	game.ActivePlayerID = game.HolderOf(entity.SymbolX)
	if game.ActivePlayerID != "" {
		that.setDeadline(game, now)
	}

	return game, nil
}

// ApplyMove places the acting player's symbol at cell and advances the game.
func (that *Engine) ApplyMove(game *entity.Game, playerID string, cell int, now time.Time) (*entity.Game, error) {
	return that.applyMove(game, playerID, cell, now, false)
}

// ExpireIfNeeded forces random moves for the active player while the turn deadline has
// passed. It returns the new game and how many moves were forced.
func (that *Engine) ExpireIfNeeded(game *entity.Game, now time.Time) (*entity.Game, int, error) {
	forced := 0

	for game.IsExpired(now) {
		cells := game.EmptyCells()
		if len(cells) == 0 {
			game = game.Clone()
			finish(game, entity.GameStatusDraw)
			return game, forced, nil
		}

		cell := cells[that.random.Intn(len(cells))]

		next, err := that.applyMove(game, game.ActivePlayerID, cell, now, true)
		if err != nil {
			return game, forced, fmt.Errorf("failed to force move on cell %d: %w", cell, err)
		}

		game = next
		forced++
	}

	return game, forced, nil
}

func (that *Engine) applyMove(game *entity.Game, playerID string, cell int, now time.Time, forced bool) (*entity.Game, error) {
	if err := game.ConfirmPlayingState(); err != nil {
		return nil, err
	}

	symbol, err := validateMove(game, playerID, cell)
	if err != nil {
		return nil, err
	}

	next := game.Clone()
	next.Board[cell] = symbol
	next.MoveCount++
	next.LastMove = &entity.Move{Cell: cell, PlayerID: playerID, Symbol: symbol, Forced: forced}

	that.updateGameStatus(next, playerID, now)

	return next, nil
}

// validateMove - checks if the move is valid and returns the symbol to place.
func validateMove(game *entity.Game, playerID string, cell int) (entity.Symbol, error) {
	if game.ActivePlayerID != playerID {
		return entity.EmptyCell, apperror.ErrNotYourTurn
	}

	if cell < 0 || cell >= len(game.Board) {
		return entity.EmptyCell, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if game.Board[cell] != entity.EmptyCell {
		return entity.EmptyCell, apperror.ErrCellOccupied
	}

	symbol, ok := game.SymbolOf(playerID)
	if !ok {
		return entity.EmptyCell, apperror.ErrNoSymbol
	}

	return symbol, nil
}

// updateGameStatus - checks the board after a move and hands the turn over.
func (that *Engine) updateGameStatus(game *entity.Game, playerID string, now time.Time) {
	winner, line, full := CheckBoard(game.Board)

	switch {
	case winner != entity.EmptyCell:
		game.WinnerID = game.HolderOf(winner)
		game.WinningLine = line
		finish(game, entity.GameStatusWon)
	case full:
		finish(game, entity.GameStatusDraw)
	default:
		game.ActivePlayerID = opponentOf(game, playerID)
		that.setDeadline(game, now)
	}
}

func (that *Engine) setDeadline(game *entity.Game, now time.Time) {
	deadline := now.Add(that.turnDuration)
	game.TurnDeadline = &deadline
}

func finish(game *entity.Game, status entity.GameStatus) {
	game.Status = status
	game.ActivePlayerID = ""
	game.TurnDeadline = nil
}

func opponentOf(game *entity.Game, playerID string) string {
	for id := range game.Symbols {
		if id != playerID {
			return id
		}
	}
	return ""
}

// CheckBoard returns the winning symbol and its line, or whether the board is full.
func CheckBoard(board [entity.BoardSize]entity.Symbol) (entity.Symbol, []int, bool) {
	for _, combo := range entity.WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a, []int{combo[0], combo[1], combo[2]}, false
		}
	}

	for _, cell := range board {
		if cell == entity.EmptyCell {
			return entity.EmptyCell, nil, false
		}
	}

	return entity.EmptyCell, nil, true
}
