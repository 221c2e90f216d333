package profile

import (
	"math"

	"reelsim/internal/game"
	"reelsim/internal/simerr"

	"github.com/shopspring/decimal"
)

// Config is one weighting configuration file: every bet mode of a game.
type Config struct {
	Game  string  `yaml:"game"`
	Modes []*Mode `yaml:"modes"`
}

// Mode is a bet mode as written in the YAML file.
type Mode struct {
	Name     string       `yaml:"name"`
	Cost     float64      `yaml:"cost"`
	RTP      float64      `yaml:"rtp"`
	WinCap   float64      `yaml:"wincap"`
	Feature  bool         `yaml:"is_feature,omitempty"`
	BuyBonus bool         `yaml:"is_buybonus,omitempty"`
	Criteria []*Criterion `yaml:"criteria"`
}

// Criterion is an acceptance criterion as written in the YAML file. Amounts are bet multiples.
type Criterion struct {
	Name       string     `yaml:"name"`
	Quota      float64    `yaml:"quota"`
	Weight     float64    `yaml:"weight,omitempty"`
	Win        *float64   `yaml:"win,omitempty"`
	MinWin     *float64   `yaml:"min_win,omitempty"`
	MaxWin     *float64   `yaml:"max_win,omitempty"`
	Feature    bool       `yaml:"feature,omitempty"`
	Conditions Conditions `yaml:"conditions"`
}

// Conditions choose how rounds for a criterion are drawn.
type Conditions struct {
	ReelWeights     map[game.Phase]map[string]int `yaml:"reel_weights"`
	ScatterTriggers map[int]int                   `yaml:"scatter_triggers,omitempty"`
	MultValues      map[game.Phase]map[int64]int  `yaml:"mult_values,omitempty"`
	ForceWinCap     bool                          `yaml:"force_wincap,omitempty"`
	ForceFeature    bool                          `yaml:"force_feature,omitempty"`
}

// Profile is a compiled, immutable bet mode bound to a game.
type Profile struct {
	Name     string
	Game     *game.Game
	Cost     decimal.Decimal
	Stake    int64 // minor units charged per round
	WinCap   int64 // minor units, 0 means uncapped
	RTP      float64
	Feature  bool
	BuyBonus bool
	Rules    []*Rule
}

// Rule is a compiled acceptance criterion.
type Rule struct {
	Name  string
	Quota float64
	Mass  float64

	exact    *int64
	min, max *int64
	feature  bool

	ReelSets     map[game.Phase]*game.Weights[string]
	Scatters     *game.Weights[int]
	Mults        map[game.Phase]*game.Weights[int64]
	ForceWinCap  bool
	ForceFeature bool
}

// Match tests the rule's predicate. A rule without any predicate matches everything.
func (r *Rule) Match(payout int64, feature bool) bool {
	if r.exact != nil && payout != *r.exact {
		return false
	}
	if r.min != nil && payout < *r.min {
		return false
	}
	if r.max != nil && payout >= *r.max {
		return false
	}
	if r.feature && !feature {
		return false
	}
	return true
}

// CatchAll reports whether the rule has no predicate.
func (r *Rule) CatchAll() bool {
	return r.exact == nil && r.min == nil && r.max == nil && !r.feature
}

// Forced reports whether the rule declares a direct construction path.
func (r *Rule) Forced() bool { return r.ForceWinCap || r.ForceFeature }

// ZeroWin reports whether the rule only accepts rounds that paid nothing.
func (r *Rule) ZeroWin() bool { return r.exact != nil && *r.exact == 0 }

// Target is the exact amount a rule asks for, if any.
func (r *Rule) Target() (int64, bool) {
	if r.exact == nil {
		return 0, false
	}
	return *r.exact, true
}

// Rule looks a rule up by name.
func (p *Profile) Rule(name string) (*Rule, bool) {
	for _, r := range p.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Classify returns the first rule, in declaration order, whose predicate matches.
func (p *Profile) Classify(payout int64, feature bool) (*Rule, bool) {
	for _, r := range p.Rules {
		if r.Match(payout, feature) {
			return r, true
		}
	}
	return nil, false
}

// Admits reports whether rule may hold a round accepted on its own predicate: the rule
// matches and no rule declared before it, catch-alls aside, matches as well.
func (p *Profile) Admits(rule *Rule, payout int64, feature bool) bool {
	if !rule.Match(payout, feature) {
		return false
	}
	for _, r := range p.Rules {
		if r == rule {
			return true
		}
		if !r.CatchAll() && r.Match(payout, feature) {
			return false
		}
	}
	return false
}

// WithMasses returns a copy of p whose rules carry the given masses.
func (p *Profile) WithMasses(masses []float64) *Profile {
	cp := *p
	cp.Rules = make([]*Rule, len(p.Rules))
	for i, r := range p.Rules {
		rc := *r
		rc.Mass = masses[i]
		cp.Rules[i] = &rc
	}
	return &cp
}

// Masses returns the rule masses in declaration order.
func (p *Profile) Masses() []float64 {
	out := make([]float64, len(p.Rules))
	for i, r := range p.Rules {
		out[i] = r.Mass
	}
	return out
}

// Mode renders p back into its file form.
func (p *Profile) Mode(src *Mode) *Mode {
	m := *src
	m.Criteria = make([]*Criterion, len(src.Criteria))
	for i, c := range src.Criteria {
		cc := *c
		cc.Weight = roundMass(p.Rules[i].Mass)
		m.Criteria[i] = &cc
	}
	return &m
}

func roundMass(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// Compile validates m against g and resolves every weight table.
func Compile(g *game.Game, m *Mode) (*Profile, error) {
	if m.Name == "" {
		return nil, simerr.Configuration("bet mode without a name")
	}
	if m.Cost <= 0 {
		return nil, simerr.Configuration("bet mode %s: cost must be positive", m.Name)
	}
	if len(m.Criteria) == 0 {
		return nil, simerr.Configuration("bet mode %s: no criteria", m.Name)
	}
	cost := decimal.NewFromFloat(m.Cost)
	p := &Profile{
		Name:     m.Name,
		Game:     g,
		Cost:     cost,
		Stake:    minor(m.Cost),
		WinCap:   minor(m.WinCap),
		RTP:      m.RTP,
		Feature:  m.Feature,
		BuyBonus: m.BuyBonus,
	}

	var sum float64
	seen := make(map[string]struct{}, len(m.Criteria))
	for _, c := range m.Criteria {
		if _, dup := seen[c.Name]; dup {
			return nil, simerr.Configuration("bet mode %s: criterion %q declared twice", m.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if !(c.Quota > 0) {
			return nil, simerr.Configuration("bet mode %s: criterion %q quota must be > 0", m.Name, c.Name)
		}
		sum += c.Quota
		r, err := compileRule(g, p, c)
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, r)
	}
	if math.Abs(sum-1) > QuotaTolerance {
		return nil, simerr.Configuration("bet mode %s: quotas sum to %g, want 1", m.Name, sum)
	}
	return p, nil
}

// QuotaTolerance is how far quota fractions may drift from 1 before a mode is rejected.
const QuotaTolerance = 0.01

func compileRule(g *game.Game, p *Profile, c *Criterion) (*Rule, error) {
	r := &Rule{
		Name:         c.Name,
		Quota:        c.Quota,
		Mass:         c.Weight,
		feature:      c.Feature,
		ReelSets:     make(map[game.Phase]*game.Weights[string]),
		Mults:        make(map[game.Phase]*game.Weights[int64]),
		ForceWinCap:  c.Conditions.ForceWinCap,
		ForceFeature: c.Conditions.ForceFeature || c.Conditions.ForceWinCap,
	}
	if r.Mass <= 0 {
		r.Mass = c.Quota
	}
	if c.Win != nil {
		v := minor(*c.Win)
		if p.WinCap > 0 && v > p.WinCap {
			v = p.WinCap
		}
		r.exact = &v
	}
	if c.MinWin != nil {
		v := minor(*c.MinWin)
		r.min = &v
	}
	if c.MaxWin != nil {
		v := minor(*c.MaxWin)
		r.max = &v
	}
	if r.min != nil && r.max != nil && *r.min >= *r.max {
		return nil, simerr.Configuration("criterion %q: min_win must be below max_win", c.Name)
	}
	if r.ForceWinCap {
		if p.WinCap <= 0 {
			return nil, simerr.Configuration("criterion %q forces the win cap but mode %s has none", c.Name, p.Name)
		}
		if r.exact == nil || *r.exact != p.WinCap {
			return nil, simerr.Configuration("criterion %q forces the win cap but does not require it", c.Name)
		}
	}

	for phase, weights := range c.Conditions.ReelWeights {
		for name := range weights {
			if _, err := g.ReelSet(name); err != nil {
				return nil, simerr.Configuration("criterion %q: %s", c.Name, simerr.Describe(err))
			}
		}
		w, err := game.WeightsOf(weights)
		if err != nil {
			return nil, simerr.Configuration("criterion %q reel weights for %s: %v", c.Name, phase, err)
		}
		r.ReelSets[phase] = w
	}
	if r.ReelSets[game.BaseGame] == nil {
		return nil, simerr.Configuration("criterion %q has no %s reel weights", c.Name, game.BaseGame)
	}
	if r.ReelSets[game.FreeGame] == nil {
		r.ReelSets[game.FreeGame] = r.ReelSets[game.BaseGame]
	}

	if len(c.Conditions.ScatterTriggers) > 0 {
		w, err := game.WeightsOf(c.Conditions.ScatterTriggers)
		if err != nil {
			return nil, simerr.Configuration("criterion %q scatter triggers: %v", c.Name, err)
		}
		for _, n := range w.Items() {
			if n > len(g.Rows) {
				return nil, simerr.Configuration("criterion %q forces %d scatters on %d reels", c.Name, n, len(g.Rows))
			}
			if r.ForceFeature && g.FreeGame.Spins(n) == 0 {
				return nil, simerr.Configuration("criterion %q forces %d scatters, below the trigger", c.Name, n)
			}
		}
		r.Scatters = w
	} else if r.ForceFeature {
		if g.FreeGame.Min <= 0 {
			return nil, simerr.Configuration("criterion %q forces a feature the game does not have", c.Name)
		}
		r.Scatters, _ = game.NewWeights([]int{g.FreeGame.Min}, []int{1})
	}

	for phase, values := range c.Conditions.MultValues {
		w, err := game.WeightsOf(values)
		if err != nil {
			return nil, simerr.Configuration("criterion %q mult values for %s: %v", c.Name, phase, err)
		}
		r.Mults[phase] = w
	}
	return r, nil
}

func minor(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(game.MinorUnits)).Round(0).IntPart()
}
