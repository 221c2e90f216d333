// Package optimize tunes criterion masses of a bet mode until its RTP reaches a target.
package optimize

import (
	"context"
	"math"

	"reelsim/internal/profile"
	"reelsim/internal/quota"
	"reelsim/internal/simerr"

	"go.uber.org/zap"
)

// Target is what a tuned mode must reach. Rates are per stake; zero disables an optional goal.
type Target struct {
	RTP           float64 `json:"rtp"`
	HitRate       float64 `json:"hitRate"`
	MaxStdDev     float64 `json:"maxStdDev"`
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"maxIterations"`
}

// HitRateTolerance is the relative hit-rate error accepted when a hit-rate goal is set.
const HitRateTolerance = 0.05

func (t Target) validate() error {
	if !(t.RTP > 0) {
		return simerr.Configuration("target rtp must be positive, got %g", t.RTP)
	}
	if !(t.Tolerance > 0) {
		return simerr.Configuration("tolerance must be positive, got %g", t.Tolerance)
	}
	if t.MaxIterations <= 0 {
		return simerr.Configuration("iteration budget must be positive, got %d", t.MaxIterations)
	}
	if t.HitRate != 0 && t.HitRate < 1 {
		return simerr.Configuration("hit rate is rounds per win and cannot be below 1, got %g", t.HitRate)
	}
	return nil
}

// Measurement is what one iteration observed.
type Measurement struct {
	RTP     float64
	HitRate float64   // 0 when nothing paid
	StdDev  float64   // stake multiples
	Means   []float64 // average payout per criterion in stake multiples, declaration order
	Run     *quota.Result
}

// Runner simulates a candidate profile.
type Runner interface {
	Measure(ctx context.Context, iteration uint64, p *profile.Profile) (*Measurement, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, iteration uint64, p *profile.Profile) (*Measurement, error)

func (f RunnerFunc) Measure(ctx context.Context, iteration uint64, p *profile.Profile) (*Measurement, error) {
	return f(ctx, iteration, p)
}

// Adjuster proposes the masses of the next iteration.
type Adjuster interface {
	Adjust(p *profile.Profile, m *Measurement, t Target) []float64
}

// Step is one iteration of the loop.
type Step struct {
	Iteration int       `json:"iteration"`
	Masses    []float64 `json:"masses"`
	RTP       float64   `json:"rtp"`
	HitRate   float64   `json:"hitRate"`
	StdDev    float64   `json:"stdDev"`
	Residual  float64   `json:"residual"`
}

// Result is the best profile found.
type Result struct {
	Profile     *profile.Profile
	Measurement *Measurement
	Residual    float64 // |rtp - target| of the best profile
	Best        int     // iteration that measured Profile
	Converged   bool
	Iterations  int
	History     []Step
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithAdjuster replaces the default local search.
func WithAdjuster(a Adjuster) Option { return func(o *Optimizer) { o.adjuster = a } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *Optimizer) { o.log = l } }

// Optimizer runs the measure/adjust loop.
type Optimizer struct {
	target   Target
	runner   Runner
	adjuster Adjuster
	log      *zap.Logger
}

// New validates the target and returns an optimizer.
func New(t Target, r Runner, opts ...Option) (*Optimizer, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{target: t, runner: r, adjuster: &LocalSearch{}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Optimize iterates from p. When the budget runs out the best candidate is returned with
// Converged false; only runner failures are errors.
func (o *Optimizer) Optimize(ctx context.Context, p *profile.Profile) (*Result, error) {
	var best *Result
	bestScore := math.Inf(1)
	cur := p
	res := &Result{}
	for i := 0; i < o.target.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := o.runner.Measure(ctx, uint64(i), cur)
		if err != nil {
			return nil, err
		}
		residual := math.Abs(m.RTP - o.target.RTP)
		score := o.score(m)
		res.History = append(res.History, Step{
			Iteration: i,
			Masses:    cur.Masses(),
			RTP:       m.RTP,
			HitRate:   m.HitRate,
			StdDev:    m.StdDev,
			Residual:  residual,
		})
		o.log.Info("optimizer iteration",
			zap.String("profile", p.Name), zap.Int("iteration", i),
			zap.Float64("rtp", m.RTP), zap.Float64("hitRate", m.HitRate), zap.Float64("residual", residual))

		if score < bestScore {
			bestScore = score
			best = &Result{Profile: cur, Measurement: m, Residual: residual, Best: i}
		}
		if o.accept(m) {
			best = &Result{Profile: cur, Measurement: m, Residual: residual, Best: i, Converged: true}
			break
		}
		cur = cur.WithMasses(o.adjuster.Adjust(cur, m, o.target))
	}
	best.Iterations = len(res.History)
	best.History = res.History
	if !best.Converged {
		o.log.Warn("optimizer did not converge",
			zap.String("profile", p.Name), zap.Int("iterations", best.Iterations), zap.Float64("residual", best.Residual))
	}
	return best, nil
}

func (o *Optimizer) accept(m *Measurement) bool {
	if math.Abs(m.RTP-o.target.RTP) > o.target.Tolerance {
		return false
	}
	if o.target.HitRate > 0 && math.Abs(m.HitRate-o.target.HitRate)/o.target.HitRate > HitRateTolerance {
		return false
	}
	if o.target.MaxStdDev > 0 && m.StdDev > o.target.MaxStdDev {
		return false
	}
	return true
}

// score ranks candidates: the RTP residual plus secondary goal misses scaled to the tolerance.
func (o *Optimizer) score(m *Measurement) float64 {
	s := math.Abs(m.RTP - o.target.RTP)
	if o.target.HitRate > 0 {
		s += o.target.Tolerance * math.Abs(m.HitRate-o.target.HitRate) / o.target.HitRate
	}
	if o.target.MaxStdDev > 0 && m.StdDev > o.target.MaxStdDev {
		s += o.target.Tolerance * (m.StdDev - o.target.MaxStdDev) / o.target.MaxStdDev
	}
	return s
}
