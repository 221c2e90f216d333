package win

import (
	"reelsim/internal/game"
	"reelsim/internal/simerr"
)

// Ways pays every left-to-right path of a symbol across consecutive reels starting at reel 0.
type Ways struct {
	Game *game.Game
}

func (w *Ways) Evaluate(g *game.Grid, in Input) (*Result, error) {
	strategy := in.Strategy
	if strategy == "" {
		strategy = w.Game.WaysStrategy
	}
	factor := int64(1)
	switch strategy {
	case game.StrategyBoard:
		factor = boardFactor(g)
	case game.StrategyGlobal, "":
		if in.GlobalFactor > 1 {
			factor = in.GlobalFactor
		}
	case game.StrategySymbol:
	default:
		return nil, simerr.Configuration("unknown ways strategy %q", strategy)
	}

	res := &Result{}
	for _, code := range presentSymbols(w.Game, g) {
		reels, ways, cells := countWays(g, code, strategy == game.StrategySymbol)
		minCount, ok := w.Game.Paytable.MinCount(code)
		if !ok {
			return nil, simerr.Configuration("paytable has no entry for symbol %s", code)
		}
		if reels < minCount {
			continue
		}
		pay, err := w.Game.Paytable.Pay(code, reels)
		if err != nil {
			return nil, err
		}
		win := &Win{
			Symbol:     code,
			Kind:       game.WinWays,
			Count:      reels,
			Ways:       ways,
			Positions:  cells,
			BasePay:    pay,
			Multiplier: in.multiplier() * factor,
		}
		win.Amount = win.BasePay * win.Ways * win.Multiplier
		res.add(win)
	}
	return res, nil
}

// countWays walks reels from the left until one has no match. With weighted set, a wild
// carrying a multiplier counts that many times on its reel.
func countWays(g *game.Grid, code string, weighted bool) (reels int, ways int64, cells []game.Position) {
	ways = 1
	for r := 0; r < g.Reels(); r++ {
		var count int64
		for row := 0; row < g.Rows(r); row++ {
			p := game.Position{Reel: r, Row: row}
			s := g.At(p)
			switch {
			case s.IsWild():
				if weighted {
					count += s.Weight()
				} else {
					count++
				}
			case s.Code == code && s.Kind == game.Regular:
				count++
			default:
				continue
			}
			cells = append(cells, p)
		}
		if count == 0 {
			break
		}
		ways *= count
		reels++
	}
	if reels == 0 {
		return 0, 0, nil
	}
	return reels, ways, cells
}

// boardFactor sums the wild multipliers on the grid, counting plain wilds as 1.
func boardFactor(g *game.Grid) int64 {
	var sum int64
	g.Each(func(_ game.Position, s game.Symbol) {
		if s.IsWild() {
			sum += max(s.Multiplier, 1)
		}
	})
	return max(sum, 1)
}
