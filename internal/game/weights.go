package game

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
)

// Weights is a cumulative weight table. Picks are binary searches over the running sums.
type Weights[T any] struct {
	items []T
	cum   []int
	total int
}

// NewWeights builds a table from parallel slices. Zero weights are dropped.
func NewWeights[T any](items []T, weights []int) (*Weights[T], error) {
	if len(items) != len(weights) {
		return nil, fmt.Errorf("weights: %d items but %d weights", len(items), len(weights))
	}
	w := &Weights[T]{}
	for i, it := range items {
		if weights[i] < 0 {
			return nil, fmt.Errorf("weights: negative weight %d", weights[i])
		}
		if weights[i] == 0 {
			continue
		}
		w.total += weights[i]
		w.items = append(w.items, it)
		w.cum = append(w.cum, w.total)
	}
	if w.total == 0 {
		return nil, fmt.Errorf("weights: total weight is zero")
	}
	return w, nil
}

// WeightsOf builds a table from a map, ordering keys so the same map always yields the same table.
func WeightsOf[T cmp.Ordered](m map[T]int) (*Weights[T], error) {
	keys := make([]T, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	ws := make([]int, len(keys))
	for i, k := range keys {
		ws[i] = m[k]
	}
	return NewWeights(keys, ws)
}

func (w *Weights[T]) Pick(rng *rand.Rand) T {
	x := rng.IntN(w.total)
	i := sort.Search(len(w.cum), func(i int) bool { return w.cum[i] > x })
	return w.items[i]
}

func (w *Weights[T]) Len() int   { return len(w.items) }
func (w *Weights[T]) Total() int { return w.total }

// Items returns the entries with a positive weight.
func (w *Weights[T]) Items() []T { return w.items }

// Reel is the symbol distribution of a single reel.
type Reel = Weights[string]

// ReelSet is one weight table per reel.
type ReelSet struct {
	Name  string
	Reels []*Reel
}

// Draw fills a fresh grid with one independent pick per cell.
func (rs *ReelSet) Draw(g *Game, rng *rand.Rand) *Grid {
	grid := NewGrid(g.Rows)
	for r := range g.Rows {
		for row := 0; row < g.Rows[r]; row++ {
			grid.Set(Position{Reel: r, Row: row}, g.Symbol(rs.Reels[r].Pick(rng)))
		}
	}
	return grid
}
