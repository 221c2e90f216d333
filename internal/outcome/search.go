package outcome

import (
	"strings"

	"reelsim/internal/simerr"
)

// SearchMethod selects how a payout query bounds the results.
type SearchMethod string

const (
	SearchRange SearchMethod = "RANGE" // min <= payout < max
	SearchMin   SearchMethod = "MIN"   // payout >= min
	SearchMax   SearchMethod = "MAX"   // payout <= max
)

// Query is a payout lookup. Limit 0 means no limit.
type Query struct {
	Method SearchMethod `json:"method"`
	Min    int64        `json:"min"`
	Max    int64        `json:"max"`
	Limit  int          `json:"limit"`
}

// Validate rejects malformed queries.
func (q Query) Validate() error {
	switch SearchMethod(strings.ToUpper(string(q.Method))) {
	case SearchRange:
		if q.Min >= q.Max {
			return simerr.InvalidQuery("RANGE needs min < max, got [%d, %d)", q.Min, q.Max)
		}
	case SearchMin, SearchMax:
	default:
		return simerr.InvalidQuery("unknown search method %q", q.Method)
	}
	if q.Limit < 0 {
		return simerr.InvalidQuery("limit must be positive, got %d", q.Limit)
	}
	return nil
}

func (q Query) match(payout int64) bool {
	switch SearchMethod(strings.ToUpper(string(q.Method))) {
	case SearchRange:
		return payout >= q.Min && payout < q.Max
	case SearchMin:
		return payout >= q.Min
	default:
		return payout <= q.Max
	}
}

// Search returns the ids of records matching q in insertion order. No match is an empty
// result, not an error.
func (t *Table) Search(q Query) ([]uint64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uint64, 0)
	for _, r := range t.records {
		if !q.match(r.Payout) {
			continue
		}
		ids = append(ids, r.ID)
		if q.Limit > 0 && len(ids) == q.Limit {
			break
		}
	}
	return ids, nil
}
