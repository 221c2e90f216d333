package game

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"reelsim/internal/simerr"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// WinType selects the evaluator of a game.
type WinType string

const (
	WinCluster WinType = "cluster"
	WinWays    WinType = "ways"
	WinScatter WinType = "scatter"
)

// Strategy aggregates wild multipliers during a ways evaluation.
type Strategy string

const (
	StrategyGlobal Strategy = "global"
	StrategySymbol Strategy = "symbol"
	StrategyBoard  Strategy = "board"
)

// Phase is the game type a spin belongs to.
type Phase string

const (
	BaseGame Phase = "basegame"
	FreeGame Phase = "freegame"
)

// OverlayRule controls position multiplier progression.
type OverlayRule struct {
	Base bool
	Free bool
	Cap  int64
}

func (o OverlayRule) Enabled(p Phase) bool {
	if p == FreeGame {
		return o.Free
	}
	return o.Base
}

// FreeGameRule awards Times spins for Min scatters and AddTimes per extra scatter.
type FreeGameRule struct {
	Min       int
	Times     int
	AddTimes  int
	Retrigger bool
}

// Spins returns the award for n scatters, 0 below the trigger.
func (f FreeGameRule) Spins(n int) int {
	if f.Min <= 0 || n < f.Min {
		return 0
	}
	return f.Times + (n-f.Min)*f.AddTimes
}

// Game is the immutable handle every round and evaluator reads from.
type Game struct {
	ID              string
	WinType         WinType
	Rows            []int
	MinClusterSize  int
	WaysStrategy    Strategy
	Tumble          bool
	MaxCascades     int
	MaxFeatureSpins int
	Symbols         map[string]SymbolDef
	Paytable        *Paytable
	ReelSets        map[string]*ReelSet
	Overlay         OverlayRule
	Streak          map[Phase][]int64
	FreeGame        FreeGameRule
	WinLevels       []int64 // minor units per base stake, ascending
}

// Symbol materializes a drawn code. Unknown codes come back as blanks.
func (g *Game) Symbol(code string) Symbol {
	d, ok := g.Symbols[code]
	if !ok {
		return Symbol{Code: code, Kind: Blank}
	}
	return Symbol{Code: code, Kind: d.Kind, Multiplier: d.Multiplier}
}

// Pays reports whether code is a paying symbol.
func (g *Game) Pays(code string) bool {
	d, ok := g.Symbols[code]
	return ok && d.Pays()
}

// ReelSet looks a reel set up by name.
func (g *Game) ReelSet(name string) (*ReelSet, error) {
	rs, ok := g.ReelSets[name]
	if !ok {
		return nil, simerr.Configuration("game %s has no reel set %q", g.ID, name)
	}
	return rs, nil
}

// StreakMultiplier is the running multiplier after the given number of cascades.
func (g *Game) StreakMultiplier(p Phase, cascades int) int64 {
	steps := g.Streak[p]
	if len(steps) == 0 {
		return 1
	}
	if cascades >= len(steps) {
		cascades = len(steps) - 1
	}
	return steps[cascades]
}

// WinLevel returns the index of the highest level reached by amount, or 0.
func (g *Game) WinLevel(amount int64) int {
	level := 0
	for i, threshold := range g.WinLevels {
		if amount >= threshold {
			level = i + 1
		}
	}
	return level
}

type gameConfigJson struct {
	ID              string                      `json:"id"`
	WinType         string                      `json:"win_type"`
	Rows            []int                       `json:"rows"`
	MinClusterSize  int                         `json:"min_cluster_size"`
	WaysStrategy    string                      `json:"ways_strategy"`
	Tumble          bool                        `json:"tumble"`
	MaxCascades     int                         `json:"max_cascades"`
	MaxFeatureSpins int                         `json:"max_feature_spins"`
	Symbols         []symbolJson                `json:"symbols"`
	PayTable        []payRangeJson              `json:"pay_table"`
	ReelSets        map[string][]map[string]int `json:"reel_sets"`
	Overlay         struct {
		Base bool  `json:"base"`
		Free bool  `json:"free"`
		Cap  int64 `json:"cap"`
	} `json:"overlay"`
	Streak   map[string][]int64 `json:"streak_multipliers"`
	FreeGame struct {
		Min       int  `json:"min"`
		Times     int  `json:"times"`
		AddTimes  int  `json:"add_times"`
		Retrigger bool `json:"retrigger"`
	} `json:"free_game"`
	WinLevels []string `json:"win_levels"`
}

type symbolJson struct {
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	NonPaying  bool   `json:"non_paying"`
	Multiplier int64  `json:"multiplier"`
}

type payRangeJson struct {
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	Symbol string `json:"symbol"`
	Pay    string `json:"pay"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadFile reads a game definition from disk.
func LoadFile(path string) (*Game, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game definition: %w", err)
	}
	return Parse(string(raw))
}

// Parse decodes and validates a JSON game definition.
func Parse(raw string) (*Game, error) {
	var cfg gameConfigJson
	if err := json.UnmarshalFromString(raw, &cfg); err != nil {
		return nil, simerr.Configuration("decode game definition: %v", err)
	}
	return cfg.build()
}

func (c *gameConfigJson) build() (*Game, error) {
	g := &Game{
		ID:              c.ID,
		WinType:         WinType(strings.ToLower(c.WinType)),
		Rows:            c.Rows,
		MinClusterSize:  c.MinClusterSize,
		WaysStrategy:    Strategy(strings.ToLower(c.WaysStrategy)),
		Tumble:          c.Tumble,
		MaxCascades:     c.MaxCascades,
		MaxFeatureSpins: c.MaxFeatureSpins,
		Symbols:         make(map[string]SymbolDef, len(c.Symbols)),
		ReelSets:        make(map[string]*ReelSet, len(c.ReelSets)),
		Overlay:         OverlayRule{Base: c.Overlay.Base, Free: c.Overlay.Free, Cap: c.Overlay.Cap},
		Streak:          make(map[Phase][]int64, len(c.Streak)),
		FreeGame: FreeGameRule{
			Min:       c.FreeGame.Min,
			Times:     c.FreeGame.Times,
			AddTimes:  c.FreeGame.AddTimes,
			Retrigger: c.FreeGame.Retrigger,
		},
	}
	if g.WaysStrategy == "" {
		g.WaysStrategy = StrategyGlobal
	}
	if g.MaxCascades <= 0 {
		g.MaxCascades = 100
	}
	if g.MaxFeatureSpins <= 0 {
		g.MaxFeatureSpins = 500
	}

	for _, s := range c.Symbols {
		kind, err := ParseKind(s.Kind)
		if err != nil {
			return nil, simerr.Configuration("symbol %s: %v", s.Code, err)
		}
		if _, dup := g.Symbols[s.Code]; dup {
			return nil, simerr.Configuration("symbol %s declared twice", s.Code)
		}
		g.Symbols[s.Code] = SymbolDef{Code: s.Code, Kind: kind, NonPaying: s.NonPaying, Multiplier: s.Multiplier}
	}

	ranges := make([]PayRange, 0, len(c.PayTable))
	for _, p := range c.PayTable {
		pay, err := decimal.NewFromString(p.Pay)
		if err != nil {
			return nil, simerr.Configuration("pay %q for %s: %v", p.Pay, p.Symbol, err)
		}
		ranges = append(ranges, PayRange{Min: p.Min, Max: p.Max, Symbol: p.Symbol, Pay: pay})
	}
	pt, err := NewPaytable(ranges)
	if err != nil {
		return nil, err
	}
	g.Paytable = pt

	for name, reels := range c.ReelSets {
		rs := &ReelSet{Name: name}
		for i, m := range reels {
			for code := range m {
				if _, ok := g.Symbols[code]; !ok {
					return nil, simerr.Configuration("reel set %s reel %d uses undeclared symbol %s", name, i, code)
				}
			}
			reel, err := WeightsOf(m)
			if err != nil {
				return nil, simerr.Configuration("reel set %s reel %d: %v", name, i, err)
			}
			rs.Reels = append(rs.Reels, reel)
		}
		g.ReelSets[name] = rs
	}

	for phase, steps := range c.Streak {
		g.Streak[Phase(phase)] = steps
	}

	for _, lvl := range c.WinLevels {
		d, err := decimal.NewFromString(lvl)
		if err != nil {
			return nil, simerr.Configuration("win level %q: %v", lvl, err)
		}
		g.WinLevels = append(g.WinLevels, d.Mul(decimal.NewFromInt(MinorUnits)).IntPart())
	}
	sort.Slice(g.WinLevels, func(i, j int) bool { return g.WinLevels[i] < g.WinLevels[j] })

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the cross references a hand-built Game must also satisfy.
func (g *Game) Validate() error {
	switch g.WinType {
	case WinCluster:
		if g.MinClusterSize < 1 {
			return simerr.Configuration("game %s: min_cluster_size must be positive", g.ID)
		}
	case WinWays, WinScatter:
	default:
		return simerr.Configuration("game %s: unknown win type %q", g.ID, g.WinType)
	}
	switch g.WaysStrategy {
	case StrategyGlobal, StrategySymbol, StrategyBoard:
	default:
		return simerr.Configuration("game %s: unknown ways strategy %q", g.ID, g.WaysStrategy)
	}
	if len(g.Rows) == 0 {
		return simerr.Configuration("game %s: no reels", g.ID)
	}
	for i, n := range g.Rows {
		if n < 1 {
			return simerr.Configuration("game %s: reel %d has no rows", g.ID, i)
		}
	}
	for code, d := range g.Symbols {
		if d.Pays() && !g.Paytable.Has(code) {
			return simerr.Configuration("game %s: paying symbol %s has no paytable entry", g.ID, code)
		}
	}
	for _, code := range g.Paytable.Symbols() {
		if _, ok := g.Symbols[code]; !ok {
			return simerr.Configuration("game %s: paytable symbol %s is not declared", g.ID, code)
		}
	}
	for name, rs := range g.ReelSets {
		if len(rs.Reels) != len(g.Rows) {
			return simerr.Configuration("game %s: reel set %s has %d reels, want %d", g.ID, name, len(rs.Reels), len(g.Rows))
		}
	}
	if (g.Overlay.Base || g.Overlay.Free) && g.Overlay.Cap < 2 {
		return simerr.Configuration("game %s: overlay cap must be at least 2", g.ID)
	}
	return nil
}

// ScatterCode returns the first declared scatter symbol in code order.
func (g *Game) ScatterCode() (string, bool) {
	var best string
	for code, d := range g.Symbols {
		if d.Kind == Scatter && (best == "" || code < best) {
			best = code
		}
	}
	return best, best != ""
}
