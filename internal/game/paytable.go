package game

import (
	"sort"

	"reelsim/internal/simerr"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of minor units in one base stake.
const MinorUnits = 100

// PayRange pays Pay (in base stakes) for every count in [Min, Max] of Symbol.
type PayRange struct {
	Min    int
	Max    int
	Symbol string
	Pay    decimal.Decimal
}

// Paytable maps (count, symbol) onto a payout in minor units. Counts between two configured
// thresholds fall into the lower one.
type Paytable struct {
	scales map[string]*payScale
}

type payScale struct {
	counts []int
	pays   []int64
}

// NewPaytable expands the ranges into one entry per count and validates that no count is
// configured twice and that pays never decrease as the count grows.
func NewPaytable(ranges []PayRange) (*Paytable, error) {
	entries := make(map[string]map[int]int64)
	for _, r := range ranges {
		if r.Symbol == "" {
			return nil, simerr.Configuration("paytable range %d-%d has no symbol", r.Min, r.Max)
		}
		if r.Min < 1 || r.Max < r.Min {
			return nil, simerr.Configuration("paytable range %d-%d for %s is invalid", r.Min, r.Max, r.Symbol)
		}
		if !r.Pay.IsPositive() {
			return nil, simerr.Configuration("paytable pay for %s must be positive, got %s", r.Symbol, r.Pay)
		}
		minor := r.Pay.Mul(decimal.NewFromInt(MinorUnits))
		if !minor.Equal(minor.Truncate(0)) {
			return nil, simerr.Configuration("paytable pay %s for %s is finer than a minor unit", r.Pay, r.Symbol)
		}
		m, ok := entries[r.Symbol]
		if !ok {
			m = make(map[int]int64)
			entries[r.Symbol] = m
		}
		for n := r.Min; n <= r.Max; n++ {
			if _, dup := m[n]; dup {
				return nil, simerr.Configuration("paytable count %d for %s is configured twice", n, r.Symbol)
			}
			m[n] = minor.IntPart()
		}
	}

	pt := &Paytable{scales: make(map[string]*payScale, len(entries))}
	for code, m := range entries {
		sc := &payScale{}
		for n := range m {
			sc.counts = append(sc.counts, n)
		}
		sort.Ints(sc.counts)
		for i, n := range sc.counts {
			sc.pays = append(sc.pays, m[n])
			if i > 0 && sc.pays[i] < sc.pays[i-1] {
				return nil, simerr.Configuration("paytable for %s decreases from count %d to %d", code, sc.counts[i-1], n)
			}
		}
		pt.scales[code] = sc
	}
	return pt, nil
}

// Has reports whether code has any entry.
func (p *Paytable) Has(code string) bool {
	_, ok := p.scales[code]
	return ok
}

// MinCount is the smallest count that pays for code.
func (p *Paytable) MinCount(code string) (int, bool) {
	sc, ok := p.scales[code]
	if !ok {
		return 0, false
	}
	return sc.counts[0], true
}

// Pay returns the payout for n of code, bucketed down to the nearest configured count.
func (p *Paytable) Pay(code string, n int) (int64, error) {
	sc, ok := p.scales[code]
	if !ok {
		return 0, simerr.Configuration("paytable has no entry for symbol %s", code)
	}
	i := sort.SearchInts(sc.counts, n+1) - 1
	if i < 0 {
		return 0, simerr.Configuration("paytable has no entry for %d x %s", n, code)
	}
	return sc.pays[i], nil
}

// Symbols lists the paying codes in sorted order.
func (p *Paytable) Symbols() []string {
	out := make([]string, 0, len(p.scales))
	for code := range p.scales {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
