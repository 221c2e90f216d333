package game

import (
	"math/bits"
)

// Grid is a reel-major symbol board. Reels may have different heights.
type Grid struct {
	cells [][]Symbol
}

// NewGrid returns a board with the given heights, every cell empty.
func NewGrid(rows []int) *Grid {
	cells := make([][]Symbol, len(rows))
	for i, n := range rows {
		cells[i] = make([]Symbol, n)
	}
	return &Grid{cells: cells}
}

// GridOf wraps reels without copying them.
func GridOf(reels [][]Symbol) *Grid {
	return &Grid{cells: reels}
}

func (g *Grid) Reels() int        { return len(g.cells) }
func (g *Grid) Rows(reel int) int { return len(g.cells[reel]) }

func (g *Grid) At(p Position) Symbol { return g.cells[p.Reel][p.Row] }

// Set writes one cell. Only the driver writes, and only while a board is being drawn.
func (g *Grid) Set(p Position, s Symbol) { g.cells[p.Reel][p.Row] = s }

// Reel returns the symbols of one reel top to bottom.
func (g *Grid) Reel(reel int) []Symbol { return g.cells[reel] }

// Inside reports whether p addresses a cell of the board.
func (g *Grid) Inside(p Position) bool {
	return p.Reel >= 0 && p.Reel < len(g.cells) && p.Row >= 0 && p.Row < len(g.cells[p.Reel])
}

func (g *Grid) Clone() *Grid {
	cells := make([][]Symbol, len(g.cells))
	for i, reel := range g.cells {
		cells[i] = append([]Symbol(nil), reel...)
	}
	return &Grid{cells: cells}
}

// Count returns how many cells satisfy fn.
func (g *Grid) Count(fn func(Symbol) bool) int {
	n := 0
	for _, reel := range g.cells {
		for _, s := range reel {
			if fn(s) {
				n++
			}
		}
	}
	return n
}

// Each visits every cell reel by reel.
func (g *Grid) Each(fn func(p Position, s Symbol)) {
	for r, reel := range g.cells {
		for row, s := range reel {
			fn(Position{Reel: r, Row: row}, s)
		}
	}
}

// Codes returns a printable snapshot for event logs.
func (g *Grid) Codes() [][]Symbol {
	return g.Clone().cells
}

// Tumble removes the given cells, lets the survivors fall to the bottom of their reel and
// refills the gap from the top with fill. The receiver is left untouched.
func (g *Grid) Tumble(removed []Position, fill func(reel int) Symbol) *Grid {
	gone := make(map[Position]struct{}, len(removed))
	for _, p := range removed {
		gone[p] = struct{}{}
	}
	next := make([][]Symbol, len(g.cells))
	for r, reel := range g.cells {
		kept := make([]Symbol, 0, len(reel))
		for row, s := range reel {
			if _, ok := gone[Position{Reel: r, Row: row}]; !ok {
				kept = append(kept, s)
			}
		}
		missing := len(reel) - len(kept)
		col := make([]Symbol, 0, len(reel))
		for i := 0; i < missing; i++ {
			col = append(col, fill(r))
		}
		next[r] = append(col, kept...)
	}
	return &Grid{cells: next}
}

// Overlay holds one position multiplier per cell. Zero means no multiplier.
type Overlay [][]int64

func NewOverlay(rows []int) Overlay {
	o := make(Overlay, len(rows))
	for i, n := range rows {
		o[i] = make([]int64, n)
	}
	return o
}

// At is safe on a nil overlay.
func (o Overlay) At(p Position) int64 {
	if p.Reel >= len(o) || p.Row >= len(o[p.Reel]) {
		return 0
	}
	return o[p.Reel][p.Row]
}

// Touch advances a cell: 0 becomes 2, anything else doubles, never above capLimit.
func (o Overlay) Touch(p Position, capLimit int64) {
	limit := FloorPow2(capLimit)
	v := o[p.Reel][p.Row]
	next := int64(2)
	if v > 0 {
		next = v * 2
	}
	if next > limit {
		next = limit
	}
	if next < 2 {
		// cap below 2 disables progression
		return
	}
	o[p.Reel][p.Row] = next
}

// Max returns the largest value over positions, at least 1.
func (o Overlay) Max(positions []Position) int64 {
	m := int64(1)
	for _, p := range positions {
		if v := o.At(p); v > m {
			m = v
		}
	}
	return m
}

func (o Overlay) Reset() {
	for _, reel := range o {
		clear(reel)
	}
}

func (o Overlay) Clone() Overlay {
	c := make(Overlay, len(o))
	for i, reel := range o {
		c[i] = append([]int64(nil), reel...)
	}
	return c
}

// FloorPow2 returns the largest power of two not above v, or 0 for v < 1.
func FloorPow2(v int64) int64 {
	if v < 1 {
		return 0
	}
	return int64(1) << (63 - bits.LeadingZeros64(uint64(v)))
}
