package win

import (
	"reelsim/internal/game"
)

// Input carries the optional state an evaluation reads. The zero value means no overlay,
// running multiplier 1 and the game's default ways strategy.
type Input struct {
	Overlay      game.Overlay
	Multiplier   int64
	Strategy     game.Strategy
	GlobalFactor int64
}

func (in Input) multiplier() int64 {
	if in.Multiplier < 1 {
		return 1
	}
	return in.Multiplier
}

// Win is one paying combination.
type Win struct {
	Symbol     string          `json:"symbol"`
	Kind       game.WinType    `json:"kind"`
	Count      int             `json:"count"`          // cluster size, scatter count or reels matched
	Ways       int64           `json:"ways,omitempty"` // ways only
	Positions  []game.Position `json:"positions"`
	BasePay    int64           `json:"basePay"`    // paytable value in minor units
	Multiplier int64           `json:"multiplier"` // position and running multiplier applied
	Amount     int64           `json:"amount"`
}

// Result is the outcome of a single evaluation. Total is always the sum of the win amounts.
type Result struct {
	Total int64  `json:"total"`
	Wins  []*Win `json:"wins"`
}

func (r *Result) add(w *Win) {
	r.Wins = append(r.Wins, w)
	r.Total += w.Amount
}

// Empty reports whether nothing paid.
func (r *Result) Empty() bool { return len(r.Wins) == 0 }

// Positions returns every winning cell once, in first-seen order.
func (r *Result) Positions() []game.Position {
	seen := make(map[game.Position]struct{})
	var out []game.Position
	for _, w := range r.Wins {
		for _, p := range w.Positions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Evaluator turns a grid into a Result without mutating either argument.
type Evaluator interface {
	Evaluate(g *game.Grid, in Input) (*Result, error)
}

// New returns the evaluator for the game's win type.
func New(def *game.Game) Evaluator {
	switch def.WinType {
	case game.WinWays:
		return &Ways{Game: def}
	case game.WinScatter:
		return &Scatter{Game: def}
	default:
		return &Cluster{Game: def}
	}
}

// matches reports whether s stands in for code.
func matches(s game.Symbol, code string) bool {
	return s.Code == code || s.IsWild()
}

// presentSymbols lists the paying codes on the grid in first-seen order.
func presentSymbols(def *game.Game, g *game.Grid) []string {
	seen := make(map[string]struct{})
	var out []string
	g.Each(func(_ game.Position, s game.Symbol) {
		if s.Kind != game.Regular || !def.Pays(s.Code) {
			return
		}
		if _, ok := seen[s.Code]; ok {
			return
		}
		seen[s.Code] = struct{}{}
		out = append(out, s.Code)
	})
	return out
}
