package morpion

import (
	"slices"

	"github.com/rocketscienceinc/morpion-backend/internal/entity"
)

// AssignSymbols derives a one-to-one player -> symbol mapping. Players are taken in join
// order; a symbol from existing is kept when still unclaimed, the rest get the first free
// symbol (X before O). Players beyond the symbol count get nothing. Entries of existing
// for players not passed in are dropped.
func AssignSymbols(players []*entity.Player, existing map[string]entity.Symbol) map[string]entity.Symbol {
	ordered := byJoinTime(players)

	assigned := make(map[string]entity.Symbol, len(entity.Symbols))
	claimed := make(map[entity.Symbol]bool, len(entity.Symbols))

	for _, player := range ordered {
		symbol, ok := existing[player.ID]
		if !ok || !isSymbol(symbol) || claimed[symbol] {
			continue
		}

		assigned[player.ID] = symbol
		claimed[symbol] = true
	}

	for _, player := range ordered {
		if _, ok := assigned[player.ID]; ok {
			continue
		}

		for _, symbol := range entity.Symbols {
			if !claimed[symbol] {
				assigned[player.ID] = symbol
				claimed[symbol] = true
				break
			}
		}
	}

	return assigned
}

// AssignFirstPlayer recomputes the mapping so that firstPlayerID plays X. When the id is
// not one of the players the earliest joiner gets X.
func AssignFirstPlayer(players []*entity.Player, firstPlayerID string) map[string]entity.Symbol {
	ordered := byJoinTime(players)
	if len(ordered) == 0 {
		return map[string]entity.Symbol{}
	}

	if !slices.ContainsFunc(ordered, func(player *entity.Player) bool { return player.ID == firstPlayerID }) {
		firstPlayerID = ordered[0].ID
	}

	return AssignSymbols(ordered, map[string]entity.Symbol{firstPlayerID: entity.SymbolX})
}

func byJoinTime(players []*entity.Player) []*entity.Player {
	ordered := slices.Clone(players)
	slices.SortStableFunc(ordered, func(a, b *entity.Player) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return ordered
}

func isSymbol(symbol entity.Symbol) bool {
	return slices.Contains(entity.Symbols[:], symbol)
}
