package win

import (
	"reelsim/internal/game"
	"reelsim/internal/simerr"
)

// Scatter pays symbol counts anywhere on the grid. Wilds count toward every paying symbol present.
type Scatter struct {
	Game *game.Game
}

func (s *Scatter) Evaluate(g *game.Grid, in Input) (*Result, error) {
	res := &Result{}
	for _, code := range presentSymbols(s.Game, g) {
		var cells []game.Position
		g.Each(func(p game.Position, sym game.Symbol) {
			if matches(sym, code) {
				cells = append(cells, p)
			}
		})
		minCount, ok := s.Game.Paytable.MinCount(code)
		if !ok {
			return nil, simerr.Configuration("paytable has no entry for symbol %s", code)
		}
		if len(cells) < minCount {
			continue
		}
		pay, err := s.Game.Paytable.Pay(code, len(cells))
		if err != nil {
			return nil, err
		}
		w := &Win{
			Symbol:     code,
			Kind:       game.WinScatter,
			Count:      len(cells),
			Positions:  cells,
			BasePay:    pay,
			Multiplier: in.multiplier(),
		}
		w.Amount = w.BasePay * w.Multiplier
		res.add(w)
	}
	return res, nil
}
