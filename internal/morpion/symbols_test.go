package morpion

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/morpion-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignSymbols(t *testing.T) {
	t.Run("Earliest joiner gets X without a seed", func(t *testing.T) {
		// Given: B is listed first but A joined earlier
		players := []*entity.Player{
			{ID: playerB, JoinedAt: testNow.Add(time.Second)},
			{ID: playerA, JoinedAt: testNow},
		}

		// When: symbols are assigned with no prior mapping
		symbols := AssignSymbols(players, nil)

		// Then: A plays X and B plays O
		assert.Equal(t, map[string]entity.Symbol{playerA: entity.SymbolX, playerB: entity.SymbolO}, symbols)
	})

	t.Run("Existing symbols are preserved", func(t *testing.T) {
		players := newTestPlayers()
		existing := map[string]entity.Symbol{playerB: entity.SymbolX}

		symbols := AssignSymbols(players, existing)

		assert.Equal(t, map[string]entity.Symbol{playerA: entity.SymbolO, playerB: entity.SymbolX}, symbols)
	})

	t.Run("Conflicting seed is resolved by join order", func(t *testing.T) {
		// Given: both players claim X
		players := newTestPlayers()
		existing := map[string]entity.Symbol{playerA: entity.SymbolX, playerB: entity.SymbolX}

		// When: symbols are assigned
		symbols := AssignSymbols(players, existing)

		// Then: the earliest claimant keeps X
		assert.Equal(t, map[string]entity.Symbol{playerA: entity.SymbolX, playerB: entity.SymbolO}, symbols)
	})

	t.Run("Departed players are dropped", func(t *testing.T) {
		players := newTestPlayers()[1:]
		existing := map[string]entity.Symbol{playerA: entity.SymbolX, playerB: entity.SymbolO}

		symbols := AssignSymbols(players, existing)

		assert.Equal(t, map[string]entity.Symbol{playerB: entity.SymbolO}, symbols)
	})

	t.Run("Invalid seed symbols are ignored", func(t *testing.T) {
		players := newTestPlayers()
		existing := map[string]entity.Symbol{playerB: "Z"}

		symbols := AssignSymbols(players, existing)

		assert.Equal(t, map[string]entity.Symbol{playerA: entity.SymbolX, playerB: entity.SymbolO}, symbols)
	})

	t.Run("Third player gets no symbol", func(t *testing.T) {
		players := append(newTestPlayers(), &entity.Player{ID: "player-c", JoinedAt: testNow.Add(2 * time.Second)})

		symbols := AssignSymbols(players, nil)

		require.Len(t, symbols, 2)
		assert.NotContains(t, symbols, "player-c")
	})

	t.Run("Idempotent when seeded with its own output", func(t *testing.T) {
		seeds := []map[string]entity.Symbol{
			nil,
			{playerA: entity.SymbolO},
			{playerB: entity.SymbolX},
			{playerA: entity.SymbolX, playerB: entity.SymbolX},
			{"ghost": entity.SymbolX},
		}

		for _, seed := range seeds {
			players := newTestPlayers()

			first := AssignSymbols(players, seed)
			second := AssignSymbols(players, first)

			assert.Equal(t, first, second)
		}
	})

	t.Run("Two players always get one X and one O", func(t *testing.T) {
		seeds := []map[string]entity.Symbol{
			nil,
			{playerA: entity.SymbolO, playerB: entity.SymbolO},
			{playerA: entity.SymbolX, playerB: entity.SymbolX},
			{playerB: entity.SymbolO},
		}

		for _, seed := range seeds {
			symbols := AssignSymbols(newTestPlayers(), seed)

			require.Len(t, symbols, 2)
			assert.ElementsMatch(t, []entity.Symbol{entity.SymbolX, entity.SymbolO}, []entity.Symbol{symbols[playerA], symbols[playerB]})
		}
	})
}

func TestAssignFirstPlayer(t *testing.T) {
	t.Run("Requested player plays X", func(t *testing.T) {
		symbols := AssignFirstPlayer(newTestPlayers(), playerB)

		assert.Equal(t, map[string]entity.Symbol{playerA: entity.SymbolO, playerB: entity.SymbolX}, symbols)
	})

	t.Run("Unknown player falls back to the earliest joiner", func(t *testing.T) {
		symbols := AssignFirstPlayer(newTestPlayers(), "stranger")

		assert.Equal(t, map[string]entity.Symbol{playerA: entity.SymbolX, playerB: entity.SymbolO}, symbols)
	})

	t.Run("Empty preference falls back to the earliest joiner", func(t *testing.T) {
		symbols := AssignFirstPlayer(newTestPlayers(), "")

		assert.Equal(t, entity.SymbolX, symbols[playerA])
	})

	t.Run("No players yields an empty mapping", func(t *testing.T) {
		assert.Empty(t, AssignFirstPlayer(nil, playerA))
	})
}
