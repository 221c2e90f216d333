package win

import (
	"reelsim/internal/game"
)

var neighbours = [4]game.Position{{Reel: -1}, {Reel: 1}, {Row: -1}, {Row: 1}}

// Cluster pays 4-connected groups of one symbol. Wilds join any group they touch; every
// symbol is flooded with its own visited set, so one wild can belong to groups of two
// different symbols.
type Cluster struct {
	Game *game.Game
}

func (c *Cluster) Evaluate(g *game.Grid, in Input) (*Result, error) {
	res := &Result{}
	mult := in.multiplier()

	visited := make([][]bool, g.Reels())
	for _, code := range presentSymbols(c.Game, g) {
		for r := range visited {
			visited[r] = resetRow(visited[r], g.Rows(r))
		}
		for r := 0; r < g.Reels(); r++ {
			for row := 0; row < g.Rows(r); row++ {
				p := game.Position{Reel: r, Row: row}
				if visited[r][row] || g.At(p).Code != code || g.At(p).Kind != game.Regular {
					continue
				}
				group := flood(g, p, code, visited)
				if len(group) < c.Game.MinClusterSize {
					continue
				}
				pay, err := c.Game.Paytable.Pay(code, len(group))
				if err != nil {
					return nil, err
				}
				w := &Win{
					Symbol:     code,
					Kind:       game.WinCluster,
					Count:      len(group),
					Positions:  group,
					BasePay:    pay,
					Multiplier: in.Overlay.Max(group) * mult,
				}
				w.Amount = w.BasePay * w.Multiplier
				res.add(w)
			}
		}
	}
	return res, nil
}

// flood collects the group around start with an explicit stack.
func flood(g *game.Grid, start game.Position, code string, visited [][]bool) []game.Position {
	stack := []game.Position{start}
	visited[start.Reel][start.Row] = true
	var group []game.Position
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, p)
		for _, d := range neighbours {
			n := game.Position{Reel: p.Reel + d.Reel, Row: p.Row + d.Row}
			if !g.Inside(n) || visited[n.Reel][n.Row] || !matches(g.At(n), code) {
				continue
			}
			visited[n.Reel][n.Row] = true
			stack = append(stack, n)
		}
	}
	return group
}

func resetRow(row []bool, n int) []bool {
	if cap(row) < n {
		return make([]bool, n)
	}
	row = row[:n]
	clear(row)
	return row
}
