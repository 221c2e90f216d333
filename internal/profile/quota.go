package profile

import (
	"math"
	"sort"

	"reelsim/internal/simerr"
)

// Allocate splits n rounds over the rules by quota using largest remainders. The counts
// always sum to n, and every rule gets at least one round when n allows it.
func (p *Profile) Allocate(n int) ([]int, error) {
	if n <= 0 {
		return nil, simerr.Configuration("bet mode %s: round count must be positive", p.Name)
	}
	var sum float64
	for _, r := range p.Rules {
		sum += r.Quota
	}
	counts := make([]int, len(p.Rules))
	fracs := make([]float64, len(p.Rules))
	assigned := 0
	for i, r := range p.Rules {
		raw := float64(n) * r.Quota / sum
		counts[i] = int(math.Floor(raw))
		fracs[i] = raw - float64(counts[i])
		assigned += counts[i]
	}

	order := make([]int, len(p.Rules))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return fracs[order[a]] > fracs[order[b]] })
	for k := 0; assigned < n; k++ {
		counts[order[k%len(order)]]++
		assigned++
	}

	if n >= len(counts) {
		for i := range counts {
			if counts[i] > 0 {
				continue
			}
			donor := 0
			for j := range counts {
				if counts[j] > counts[donor] {
					donor = j
				}
			}
			counts[donor]--
			counts[i]++
		}
	}
	return counts, nil
}
