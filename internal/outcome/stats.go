package outcome

import (
	"math"

	"reelsim/internal/game"
	"reelsim/internal/simerr"

	"github.com/shopspring/decimal"
)

// Stats is the statistics record of a table for one stake. Amounts are minor units.
type Stats struct {
	Rounds        int             `json:"rounds"`
	TotalWeight   uint64          `json:"totalWeight"`
	Stake         int64           `json:"stake"`
	Mean          float64         `json:"mean"`
	Variance      float64         `json:"variance"`
	StdDev        float64         `json:"stdDev"`
	Skewness      float64         `json:"skewness"`
	Kurtosis      float64         `json:"kurtosis"` // excess
	Median        int64           `json:"median"`
	MaxWin        int64           `json:"maxWin"`
	HitRate       float64         `json:"hitRate"` // 0 when nothing pays
	MaxWinHitRate float64         `json:"maxWinHitRate"`
	PNoWin        float64         `json:"pNoWin"`
	PBelowStake   float64         `json:"pBelowStake"`
	Granularity   int64           `json:"granularity"`
	RTP           decimal.Decimal `json:"rtp"`
}

// bucket is one distinct payout with its summed weight.
type bucket struct {
	payout int64
	weight float64
}

// distribution collapses the table into ascending distinct payouts.
func (t *Table) distribution() ([]bucket, float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 || t.total == 0 {
		return nil, 0, simerr.ErrEmptyTable
	}
	var out []bucket
	for _, idx := range t.order() {
		r := t.records[idx]
		if n := len(out); n > 0 && out[n-1].payout == r.Payout {
			out[n-1].weight += float64(r.Weight)
			continue
		}
		out = append(out, bucket{payout: r.Payout, weight: float64(r.Weight)})
	}
	return out, float64(t.total), nil
}

// Mean is the weighted average payout.
func (t *Table) Mean() (float64, error) {
	dist, total, err := t.distribution()
	if err != nil {
		return 0, err
	}
	return mean(dist, total), nil
}

func mean(dist []bucket, total float64) float64 {
	var sum float64
	for _, b := range dist {
		sum += float64(b.payout) * b.weight
	}
	return sum / total
}

// Median is the smallest payout whose cumulative weight reaches half the total.
func (t *Table) Median() (int64, error) {
	dist, total, err := t.distribution()
	if err != nil {
		return 0, err
	}
	return median(dist, total), nil
}

func median(dist []bucket, total float64) int64 {
	var cum float64
	for _, b := range dist {
		cum += b.weight
		if cum >= total/2 {
			return b.payout
		}
	}
	return dist[len(dist)-1].payout
}

// HitRate is 1 / P(payout > 0): on average one win every HitRate rounds.
func (t *Table) HitRate() (float64, error) {
	dist, total, err := t.distribution()
	if err != nil {
		return 0, err
	}
	p := 1 - pNoWin(dist, total)
	if p <= 0 {
		return 0, simerr.ErrNoWins
	}
	return 1 / p, nil
}

func pNoWin(dist []bucket, total float64) float64 {
	var w float64
	for _, b := range dist {
		if b.payout == 0 {
			w += b.weight
		}
	}
	return w / total
}

// RTP is the weighted average payout divided by stake, computed in decimal.
func (t *Table) RTP(stake int64) (decimal.Decimal, error) {
	if stake <= 0 {
		return decimal.Zero, simerr.InvalidQuery("stake must be positive, got %d", stake)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 || t.total == 0 {
		return decimal.Zero, simerr.ErrEmptyTable
	}
	return rtp(t.records, t.total, stake), nil
}

func rtp(records []Record, total uint64, stake int64) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(decimal.NewFromInt(r.Payout).Mul(decimal.NewFromInt(int64(r.Weight))))
	}
	den := decimal.NewFromInt(int64(total)).Mul(decimal.NewFromInt(stake))
	return sum.DivRound(den, 8)
}

// Summarize computes the full statistics record. Stake is in minor units; 0 means one base
// bet.
func (t *Table) Summarize(stake int64) (*Stats, error) {
	if stake < 0 {
		return nil, simerr.InvalidQuery("stake must not be negative, got %d", stake)
	}
	if stake == 0 {
		stake = game.MinorUnits
	}
	dist, total, err := t.distribution()
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	s := &Stats{
		Rounds:      len(t.records),
		TotalWeight: t.total,
		Stake:       stake,
		RTP:         rtp(t.records, t.total, stake),
	}
	t.mu.Unlock()

	s.Mean = mean(dist, total)
	var m2, m3, m4 float64
	for _, b := range dist {
		d := float64(b.payout) - s.Mean
		p := b.weight / total
		m2 += d * d * p
		m3 += d * d * d * p
		m4 += d * d * d * d * p
	}
	s.Variance = m2
	s.StdDev = math.Sqrt(m2)
	if s.StdDev > 0 {
		s.Skewness = m3 / math.Pow(s.StdDev, 3)
		s.Kurtosis = m4/(m2*m2) - 3
	}

	s.Median = median(dist, total)
	top := dist[len(dist)-1]
	s.MaxWin = top.payout
	if top.weight > 0 {
		s.MaxWinHitRate = total / top.weight
	}
	s.PNoWin = pNoWin(dist, total)
	if p := 1 - s.PNoWin; p > 0 {
		s.HitRate = 1 / p
	}

	var below float64
	for _, b := range dist {
		if b.payout < stake {
			below += b.weight
		}
	}
	s.PBelowStake = below / total

	for i := 1; i < len(dist); i++ {
		if d := dist[i].payout - dist[i-1].payout; s.Granularity == 0 || d < s.Granularity {
			s.Granularity = d
		}
	}
	return s, nil
}
