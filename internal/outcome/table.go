// Package outcome holds accepted rounds as a weighted table and derives statistics from it.
package outcome

import (
	"math"
	"sort"
	"sync"
)

// WeightScale converts a criterion's probability mass into integer record weights.
const WeightScale = 1 << 40

// Record is one accepted round.
type Record struct {
	ID        uint64 `json:"id"`
	Weight    uint64 `json:"weight"`
	Payout    int64  `json:"payout"`
	Criterion string `json:"criterion,omitempty"`
	Feature   bool   `json:"feature,omitempty"`
}

// Table is an append-only sequence of records. It is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	records []Record
	byPay   []int // indices ordered by payout, nil when stale
	total   uint64
}

// NewTable returns an empty table sized for n records.
func NewTable(n int) *Table {
	return &Table{records: make([]Record, 0, n)}
}

// TableOf builds a table from records in the given order.
func TableOf(records []Record) *Table {
	t := NewTable(len(records))
	t.Append(records...)
	return t
}

// Append adds a batch of records under one lock.
func (t *Table) Append(recs ...Record) {
	if len(recs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range recs {
		t.records = append(t.records, r)
		t.total += r.Weight
	}
	t.byPay = nil
}

// Len is the number of records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// TotalWeight is the sum of all record weights.
func (t *Table) TotalWeight() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Records returns a copy of the records in insertion order.
func (t *Table) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Record(nil), t.records...)
}

// Sorted returns a copy of the records ordered by payout ascending. Equal payouts keep
// insertion order.
func (t *Table) Sorted() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	order := t.order()
	out := make([]Record, len(order))
	for i, idx := range order {
		out[i] = t.records[idx]
	}
	return out
}

func (t *Table) order() []int {
	if t.byPay != nil && len(t.byPay) == len(t.records) {
		return t.byPay
	}
	t.byPay = make([]int, len(t.records))
	for i := range t.byPay {
		t.byPay[i] = i
	}
	sort.SliceStable(t.byPay, func(a, b int) bool {
		return t.records[t.byPay[a]].Payout < t.records[t.byPay[b]].Payout
	})
	return t.byPay
}

// Counts returns how many records each criterion holds.
func (t *Table) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int)
	for _, r := range t.records {
		out[r.Criterion]++
	}
	return out
}

// Reweight returns a table whose record weights spread each criterion's mass evenly over its
// records. Criteria missing from masses keep weight 0.
func (t *Table) Reweight(masses map[string]float64) *Table {
	counts := t.Counts()
	var sum float64
	for c, m := range masses {
		if counts[c] > 0 && m > 0 {
			sum += m
		}
	}
	per := make(map[string]uint64, len(masses))
	for c, m := range masses {
		n := counts[c]
		if n == 0 || m <= 0 || sum == 0 {
			continue
		}
		w := math.Round(m / sum / float64(n) * WeightScale)
		per[c] = max(uint64(w), 1)
	}

	recs := t.Records()
	for i := range recs {
		recs[i].Weight = per[recs[i].Criterion]
	}
	return TableOf(recs)
}
