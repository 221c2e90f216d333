package optimize

import (
	"math"

	"reelsim/internal/profile"
)

const minMass = 1e-9

// LocalSearch tilts the masses of paying criteria exponentially towards higher or lower
// average wins until the predicted RTP moves Damping of the way to the target. With a
// hit-rate goal the zero-win criterion's mass is pinned first.
type LocalSearch struct {
	Damping float64 // 0 means 1
}

func (l *LocalSearch) Adjust(p *profile.Profile, m *Measurement, t Target) []float64 {
	masses := normalized(p.Masses())
	if len(m.Means) != len(masses) {
		return masses
	}
	free := make([]bool, len(masses))
	for i := range free {
		free[i] = true
	}

	if t.HitRate > 0 && m.HitRate > 0 {
		for i, r := range p.Rules {
			if !r.ZeroWin() {
				continue
			}
			// zero payouts outside the zero-win criterion stay where they are
			other := math.Max(0, 1-1/m.HitRate-masses[i])
			z := clamp(1-1/t.HitRate-other, minMass, 1-minMass)
			rest := 1 - masses[i]
			for j := range masses {
				if j != i && rest > 0 {
					masses[j] *= (1 - z) / rest
				}
			}
			masses[i] = z
			free[i] = false
			break
		}
	}

	damping := l.Damping
	if damping <= 0 || damping > 1 {
		damping = 1
	}
	current := predict(masses, m.Means)
	goal := current + damping*(t.RTP-current)
	return solveTilt(masses, m.Means, free, goal)
}

// predict is the RTP of masses given per-criterion average wins.
func predict(masses, means []float64) float64 {
	var rtp, sum float64
	for i, w := range masses {
		rtp += w * means[i]
		sum += w
	}
	if sum == 0 {
		return 0
	}
	return rtp / sum
}

// solveTilt bisects the tilt parameter so the predicted RTP meets goal, or gets as close as
// the free criteria allow.
func solveTilt(masses, means []float64, free []bool, goal float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, ok := range free {
		if ok {
			lo = math.Min(lo, means[i])
			hi = math.Max(hi, means[i])
		}
	}
	if !(hi > lo) {
		return masses
	}
	bound := 60 / (hi - lo)
	a, b := -bound, bound
	var out []float64
	for range 200 {
		mid := (a + b) / 2
		out = tilt(masses, means, free, mid)
		if predict(out, means) < goal {
			a = mid
		} else {
			b = mid
		}
	}
	return tilt(masses, means, free, (a+b)/2)
}

func tilt(masses, means []float64, free []bool, t float64) []float64 {
	out := make([]float64, len(masses))
	var freeMass float64
	lmax := math.Inf(-1)
	logs := make([]float64, len(masses))
	for i, w := range masses {
		if !free[i] {
			out[i] = w
			continue
		}
		freeMass += w
		logs[i] = math.Log(math.Max(w, minMass)) + t*means[i]
		lmax = math.Max(lmax, logs[i])
	}
	var sum float64
	for i := range masses {
		if free[i] {
			out[i] = math.Exp(logs[i] - lmax)
			sum += out[i]
		}
	}
	for i := range masses {
		if free[i] {
			out[i] = math.Max(out[i]/sum*freeMass, minMass)
		}
	}
	return out
}

func normalized(masses []float64) []float64 {
	var sum float64
	for _, w := range masses {
		sum += w
	}
	out := make([]float64, len(masses))
	for i, w := range masses {
		if sum > 0 {
			out[i] = w / sum
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
