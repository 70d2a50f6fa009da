package morpion

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	playerA = "player-a"
	playerB = "player-b"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fixedRandom returns the queued values in order, modulo n.
type fixedRandom struct {
	values []int
	calls  int
}

func (that *fixedRandom) Intn(n int) int {
	value := that.values[that.calls%len(that.values)]
	that.calls++
	return value % n
}

func newTestPlayers() []*entity.Player {
	return []*entity.Player{
		{ID: playerA, JoinedAt: testNow},
		{ID: playerB, JoinedAt: testNow.Add(time.Second)},
	}
}

func newTestGame(t *testing.T, engine *Engine) *entity.Game {
	t.Helper()

	players := newTestPlayers()
	game, err := engine.Initialize(players, AssignSymbols(players, nil), testNow)
	require.NoError(t, err)

	return game
}

func play(t *testing.T, engine *Engine, game *entity.Game, moves ...int) *entity.Game {
	t.Helper()

	for _, cell := range moves {
		next, err := engine.ApplyMove(game, game.ActivePlayerID, cell, testNow)
		require.NoError(t, err, "move on cell %d", cell)
		game = next
	}

	return game
}

func TestEngine_Initialize(t *testing.T) {
	engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})

	t.Run("X holder moves first with a fresh deadline", func(t *testing.T) {
		// Given: two players where B was seeded with X
		players := newTestPlayers()
		symbols := map[string]entity.Symbol{playerA: entity.SymbolO, playerB: entity.SymbolX}

		// When: the game is initialized
		game, err := engine.Initialize(players, symbols, testNow)
		require.NoError(t, err)

		// Then: the board is empty and B is on turn until now + 30s
		expectedDeadline := testNow.Add(30 * time.Second)
		assert.Equal(t, [entity.BoardSize]entity.Symbol{}, game.Board)
		assert.Equal(t, entity.GameStatusPlaying, game.Status)
		assert.Equal(t, playerB, game.ActivePlayerID)
		require.NotNil(t, game.TurnDeadline)
		assert.Equal(t, expectedDeadline, *game.TurnDeadline)
		assert.Empty(t, game.WinnerID)
		assert.Nil(t, game.WinningLine)
	})

	t.Run("Fails with fewer than two assigned players", func(t *testing.T) {
		// Given: only one player holds a symbol
		players := newTestPlayers()
		symbols := map[string]entity.Symbol{playerA: entity.SymbolX}

		// When: the game is initialized
		game, err := engine.Initialize(players, symbols, testNow)

		// Then: it is rejected
		require.ErrorIs(t, err, apperror.ErrNotEnoughPlayers)
		assert.Nil(t, game)
	})

	t.Run("Symbols of absent players are ignored", func(t *testing.T) {
		players := newTestPlayers()[:1]
		symbols := map[string]entity.Symbol{playerA: entity.SymbolX, "ghost": entity.SymbolO}

		_, err := engine.Initialize(players, symbols, testNow)

		require.ErrorIs(t, err, apperror.ErrNotEnoughPlayers)
	})
}

func TestEngine_ApplyMove(t *testing.T) {
	engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})

	t.Run("Accepted move alternates the turn and renews the deadline", func(t *testing.T) {
		// Given: a fresh game where A plays X
		game := newTestGame(t, engine)
		later := testNow.Add(10 * time.Second)

		// When: A plays the center
		next, err := engine.ApplyMove(game, playerA, 4, later)
		require.NoError(t, err)

		// Then: X is on the center, B is active and the deadline is later + 30s
		assert.Equal(t, entity.SymbolX, next.Board[4])
		assert.Equal(t, playerB, next.ActivePlayerID)
		require.NotNil(t, next.TurnDeadline)
		assert.True(t, next.TurnDeadline.After(later))
		assert.Equal(t, later.Add(30*time.Second), *next.TurnDeadline)
		assert.Equal(t, 1, next.MoveCount)
		assert.Equal(t, &entity.Move{Cell: 4, PlayerID: playerA, Symbol: entity.SymbolX}, next.LastMove)

		// And: the input game is untouched
		assert.Equal(t, entity.EmptyCell, game.Board[4])
		assert.Equal(t, playerA, game.ActivePlayerID)
	})

	t.Run("Rejections leave the board unchanged", func(t *testing.T) {
		game := play(t, engine, newTestGame(t, engine), 0)
		before := game.Clone()

		tests := []struct {
			name     string
			playerID string
			cell     int
			err      error
		}{
			{name: "not the active player", playerID: playerA, cell: 1, err: apperror.ErrNotYourTurn},
			{name: "unknown player", playerID: "stranger", cell: 1, err: apperror.ErrNotYourTurn},
			{name: "negative cell", playerID: playerB, cell: -1, err: apperror.ErrInvalidCell},
			{name: "cell past the board", playerID: playerB, cell: 9, err: apperror.ErrInvalidCell},
			{name: "occupied cell", playerID: playerB, cell: 0, err: apperror.ErrCellOccupied},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// When: an invalid move is applied
				next, err := engine.ApplyMove(game, tt.playerID, tt.cell, testNow)

				// Then: it is rejected without mutation
				require.ErrorIs(t, err, tt.err)
				assert.Nil(t, next)
				assert.Equal(t, before, game)
			})
		}
	})

	t.Run("Active player without a symbol is rejected", func(t *testing.T) {
		game := newTestGame(t, engine)
		delete(game.Symbols, playerA)

		_, err := engine.ApplyMove(game, playerA, 0, testNow)

		require.ErrorIs(t, err, apperror.ErrNoSymbol)
	})

	t.Run("Move after the game finished is rejected", func(t *testing.T) {
		// Given: A completed the top row
		game := play(t, engine, newTestGame(t, engine), 0, 3, 1, 4, 2)
		require.True(t, game.IsWon())

		// When: B tries to move
		_, err := engine.ApplyMove(game, playerB, 5, testNow)

		// Then: an ErrGameFinished error is returned
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestEngine_WinScenario(t *testing.T) {
	engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})

	// Given: A (X) and B (O) alternate, X on 0,1,2 and O on 3,4
	game := play(t, engine, newTestGame(t, engine), 0, 3, 1, 4, 2)

	// Then: A won with the top row and nobody is on turn
	assert.Equal(t, entity.GameStatusWon, game.Status)
	assert.Equal(t, []int{0, 1, 2}, game.WinningLine)
	assert.Equal(t, playerA, game.WinnerID)
	assert.Empty(t, game.ActivePlayerID)
	assert.Nil(t, game.TurnDeadline)
}

func TestEngine_DrawScenario(t *testing.T) {
	engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})

	// Given: nine alternating moves that never complete a line
	game := play(t, engine, newTestGame(t, engine), 0, 1, 2, 4, 3, 5, 7, 6, 8)

	// Then: the game is a draw without winner
	assert.Equal(t, entity.GameStatusDraw, game.Status)
	assert.Empty(t, game.WinnerID)
	assert.Nil(t, game.WinningLine)
	assert.Empty(t, game.ActivePlayerID)
	assert.Nil(t, game.TurnDeadline)
	assert.Empty(t, game.EmptyCells())
}

func TestEngine_WinDetectionForEveryLine(t *testing.T) {
	engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})

	for _, combo := range entity.WinCombos {
		t.Run(lineName(combo), func(t *testing.T) {
			// Given: X holds two cells of the line and the remaining six cells are filled
			// so that no line is complete
			board, ok := boardCompletedOnlyBy(combo)
			require.True(t, ok, "no filler pattern for line %v", combo)

			game := newTestGame(t, engine)
			game.Board = board
			game.Board[combo[2]] = entity.EmptyCell

			// When: A (X) fills the last cell of the line
			next, err := engine.ApplyMove(game, playerA, combo[2], testNow)
			require.NoError(t, err)

			// Then: the game is won with exactly that line
			assert.Equal(t, entity.GameStatusWon, next.Status)
			assert.Equal(t, []int{combo[0], combo[1], combo[2]}, next.WinningLine)
			assert.Equal(t, playerA, next.WinnerID)
		})
	}
}

func TestEngine_ExpireIfNeeded(t *testing.T) {
	t.Run("Forces exactly one move on an expired turn", func(t *testing.T) {
		// Given: a game with 3 empty cells whose deadline has passed
		random := &fixedRandom{values: []int{1}}
		engine := NewEngine(DefaultTurnDuration, random)
		game := play(t, engine, newTestGame(t, engine), 0, 1, 2, 4, 3, 5)
		require.Equal(t, []int{6, 7, 8}, game.EmptyCells())
		require.Equal(t, playerA, game.ActivePlayerID)

		expiredAt := game.TurnDeadline.Add(time.Second)

		// When: expiry is evaluated
		next, forced, err := engine.ExpireIfNeeded(game, expiredAt)
		require.NoError(t, err)

		// Then: cell 7 (second empty cell) got A's X, B is active with a future deadline
		assert.Equal(t, 1, forced)
		assert.Equal(t, entity.SymbolX, next.Board[7])
		assert.Len(t, next.EmptyCells(), 2)
		assert.Equal(t, playerB, next.ActivePlayerID)
		require.NotNil(t, next.TurnDeadline)
		assert.True(t, next.TurnDeadline.After(expiredAt))
		assert.True(t, next.LastMove.Forced)
	})

	t.Run("Leaves a running turn alone", func(t *testing.T) {
		engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})
		game := newTestGame(t, engine)

		next, forced, err := engine.ExpireIfNeeded(game, testNow.Add(29*time.Second))
		require.NoError(t, err)

		assert.Zero(t, forced)
		assert.Equal(t, game, next)
	})

	t.Run("Forced move can end the game", func(t *testing.T) {
		// Given: X needs cell 2 and it is the only empty cell
		engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})
		game := play(t, engine, newTestGame(t, engine), 0, 3, 1, 4, 5, 6, 7, 8)
		require.Equal(t, []int{2}, game.EmptyCells())

		// When: A's turn expires
		next, forced, err := engine.ExpireIfNeeded(game, game.TurnDeadline.Add(time.Millisecond))
		require.NoError(t, err)

		// Then: the forced move finished the game
		assert.Equal(t, 1, forced)
		assert.True(t, next.IsFinished())
		assert.Nil(t, next.TurnDeadline)
		assert.Empty(t, next.ActivePlayerID)
	})

	t.Run("Full board with a due turn becomes a draw", func(t *testing.T) {
		engine := NewEngine(DefaultTurnDuration, &fixedRandom{values: []int{0}})
		game := newTestGame(t, engine)
		game.Board = [entity.BoardSize]entity.Symbol{
			entity.SymbolX, entity.SymbolO, entity.SymbolX,
			entity.SymbolX, entity.SymbolO, entity.SymbolO,
			entity.SymbolO, entity.SymbolX, entity.SymbolX,
		}

		next, forced, err := engine.ExpireIfNeeded(game, game.TurnDeadline.Add(time.Second))
		require.NoError(t, err)

		assert.Zero(t, forced)
		assert.Equal(t, entity.GameStatusDraw, next.Status)
		assert.Nil(t, next.TurnDeadline)
	})

	t.Run("Never leaves a past deadline behind", func(t *testing.T) {
		engine := NewEngine(DefaultTurnDuration, rand.New(rand.NewSource(7))) //nolint: gosec // test
		game := newTestGame(t, engine)

		for step := 0; step < entity.BoardSize && game.IsPlaying(); step++ {
			now := game.TurnDeadline.Add(time.Duration(step+1) * time.Second)
			filled := entity.BoardSize - len(game.EmptyCells())

			next, forced, err := engine.ExpireIfNeeded(game, now)
			require.NoError(t, err)

			assert.Equal(t, 1, forced)
			assert.Equal(t, filled+1, entity.BoardSize-len(next.EmptyCells()))
			if next.IsPlaying() {
				assert.True(t, next.TurnDeadline.After(now))
			} else {
				assert.Nil(t, next.TurnDeadline)
			}

			game = next
		}

		assert.True(t, game.IsFinished())
	})
}

func TestCheckBoard(t *testing.T) {
	t.Run("Winner X", func(t *testing.T) {
		// Given: X holds the left column
		board := [entity.BoardSize]entity.Symbol{
			entity.SymbolX, entity.SymbolO, "",
			entity.SymbolX, entity.SymbolO, "",
			entity.SymbolX, "", "",
		}

		// When: the board is checked
		winner, line, full := CheckBoard(board)

		// Then: X wins on 0,3,6
		assert.Equal(t, entity.SymbolX, winner)
		assert.Equal(t, []int{0, 3, 6}, line)
		assert.False(t, full)
	})

	t.Run("Ongoing Game", func(t *testing.T) {
		board := [entity.BoardSize]entity.Symbol{
			entity.SymbolX, entity.SymbolO, entity.SymbolX,
			"", entity.SymbolO, "",
			entity.SymbolX, "", "",
		}

		winner, line, full := CheckBoard(board)

		assert.Equal(t, entity.EmptyCell, winner)
		assert.Nil(t, line)
		assert.False(t, full)
	})

	t.Run("Tie", func(t *testing.T) {
		board := [entity.BoardSize]entity.Symbol{
			entity.SymbolO, entity.SymbolX, entity.SymbolO,
			entity.SymbolO, entity.SymbolX, entity.SymbolX,
			entity.SymbolX, entity.SymbolO, entity.SymbolX,
		}

		winner, _, full := CheckBoard(board)

		assert.Equal(t, entity.EmptyCell, winner)
		assert.True(t, full)
	})
}

// boardCompletedOnlyBy returns a full board with X on the given line and a filler on the
// other six cells such that the line is the only complete one.
func boardCompletedOnlyBy(combo [3]int) ([entity.BoardSize]entity.Symbol, bool) {
	others := make([]int, 0, entity.BoardSize-3)
	for i := 0; i < entity.BoardSize; i++ {
		if i != combo[0] && i != combo[1] && i != combo[2] {
			others = append(others, i)
		}
	}

	for mask := 0; mask < 1<<len(others); mask++ {
		var board [entity.BoardSize]entity.Symbol
		for _, i := range combo {
			board[i] = entity.SymbolX
		}
		for bit, i := range others {
			if mask&(1<<bit) != 0 {
				board[i] = entity.SymbolX
			} else {
				board[i] = entity.SymbolO
			}
		}

		if completeLines(board) == 1 {
			return board, true
		}
	}

	return [entity.BoardSize]entity.Symbol{}, false
}

func completeLines(board [entity.BoardSize]entity.Symbol) int {
	count := 0
	for _, combo := range entity.WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			count++
		}
	}
	return count
}

func lineName(combo [3]int) string {
	return string(rune('0'+combo[0])) + "-" + string(rune('0'+combo[1])) + "-" + string(rune('0'+combo[2]))
}
