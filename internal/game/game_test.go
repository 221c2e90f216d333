package game

import (
	"math/rand/v2"
	"testing"

	"reelsim/internal/simerr"

	"github.com/shopspring/decimal"
)

func TestPaytableBuckets(t *testing.T) {
	pt, err := NewPaytable([]PayRange{
		{Min: 5, Max: 5, Symbol: "H1", Pay: decimal.RequireFromString("1")},
		{Min: 6, Max: 7, Symbol: "H1", Pay: decimal.RequireFromString("2.5")},
		{Min: 8, Max: 8, Symbol: "H1", Pay: decimal.RequireFromString("10")},
	})
	if err != nil {
		t.Fatalf("NewPaytable: %v", err)
	}

	cases := []struct {
		n    int
		want int64
	}{
		{5, 100}, {6, 250}, {7, 250}, {8, 1000}, {30, 1000},
	}
	for _, c := range cases {
		got, err := pt.Pay("H1", c.n)
		if err != nil {
			t.Fatalf("Pay(%d): %v", c.n, err)
		}
		if got != c.want {
			t.Errorf("Pay(%d) = %d, want %d", c.n, got, c.want)
		}
	}

	if _, err := pt.Pay("H1", 4); !simerr.IsConfiguration(err) {
		t.Errorf("below minimum bucket: got %v, want configuration error", err)
	}
	if _, err := pt.Pay("L9", 5); !simerr.IsConfiguration(err) {
		t.Errorf("missing symbol: got %v, want configuration error", err)
	}
	if n, _ := pt.MinCount("H1"); n != 5 {
		t.Errorf("MinCount = %d, want 5", n)
	}
}

func TestPaytableMonotonic(t *testing.T) {
	pt, err := NewPaytable([]PayRange{
		{Min: 3, Max: 4, Symbol: "A", Pay: decimal.NewFromInt(1)},
		{Min: 5, Max: 9, Symbol: "A", Pay: decimal.NewFromInt(3)},
	})
	if err != nil {
		t.Fatalf("NewPaytable: %v", err)
	}
	prev := int64(0)
	for n := 3; n <= 12; n++ {
		p, err := pt.Pay("A", n)
		if err != nil {
			t.Fatalf("Pay(%d): %v", n, err)
		}
		if p < prev {
			t.Fatalf("Pay(%d) = %d decreased from %d", n, p, prev)
		}
		prev = p
	}
}

func TestPaytableRejects(t *testing.T) {
	cases := map[string][]PayRange{
		"decreasing": {
			{Min: 3, Max: 3, Symbol: "A", Pay: decimal.NewFromInt(5)},
			{Min: 4, Max: 4, Symbol: "A", Pay: decimal.NewFromInt(2)},
		},
		"overlap": {
			{Min: 3, Max: 5, Symbol: "A", Pay: decimal.NewFromInt(1)},
			{Min: 5, Max: 6, Symbol: "A", Pay: decimal.NewFromInt(2)},
		},
		"inverted": {{Min: 5, Max: 3, Symbol: "A", Pay: decimal.NewFromInt(1)}},
		"zero pay": {{Min: 3, Max: 3, Symbol: "A", Pay: decimal.Zero}},
		"sub unit": {{Min: 3, Max: 3, Symbol: "A", Pay: decimal.RequireFromString("0.001")}},
	}
	for name, ranges := range cases {
		if _, err := NewPaytable(ranges); !simerr.IsConfiguration(err) {
			t.Errorf("%s: got %v, want configuration error", name, err)
		}
	}
}

func TestOverlayTouch(t *testing.T) {
	o := NewOverlay([]int{1})
	p := Position{}
	want := []int64{2, 4, 8, 8, 8}
	for i, w := range want {
		o.Touch(p, 12)
		if got := o.At(p); got != w {
			t.Fatalf("touch %d: got %d, want %d", i+1, got, w)
		}
	}
	o.Reset()
	if o.At(p) != 0 {
		t.Fatalf("reset left %d", o.At(p))
	}
	if m := o.Max([]Position{p}); m != 1 {
		t.Fatalf("Max on empty overlay = %d, want 1", m)
	}
	var none Overlay
	if none.At(Position{Reel: 3, Row: 3}) != 0 {
		t.Fatal("nil overlay should read 0")
	}
}

func TestGridTumble(t *testing.T) {
	a, b, c := Symbol{Code: "A"}, Symbol{Code: "B"}, Symbol{Code: "C"}
	g := GridOf([][]Symbol{{a, b, c}, {c, c, a}})
	next := g.Tumble([]Position{{Reel: 0, Row: 1}, {Reel: 1, Row: 0}, {Reel: 1, Row: 1}}, func(int) Symbol {
		return Symbol{Code: "N"}
	})

	if got := next.Reel(0); got[0].Code != "N" || got[1].Code != "A" || got[2].Code != "C" {
		t.Errorf("reel 0 = %v", got)
	}
	if got := next.Reel(1); got[0].Code != "N" || got[1].Code != "N" || got[2].Code != "A" {
		t.Errorf("reel 1 = %v", got)
	}
	if g.At(Position{Reel: 0, Row: 1}).Code != "B" {
		t.Error("tumble mutated the source grid")
	}
}

func TestWeightsDeterministic(t *testing.T) {
	w, err := WeightsOf(map[string]int{"A": 1, "B": 0, "C": 3})
	if err != nil {
		t.Fatalf("WeightsOf: %v", err)
	}
	if w.Len() != 2 || w.Total() != 4 {
		t.Fatalf("len=%d total=%d", w.Len(), w.Total())
	}
	r1 := rand.New(rand.NewPCG(7, 9))
	r2 := rand.New(rand.NewPCG(7, 9))
	counts := map[string]int{}
	for range 4000 {
		x, y := w.Pick(r1), w.Pick(r2)
		if x != y {
			t.Fatal("same seed produced different picks")
		}
		counts[x]++
	}
	if counts["B"] != 0 {
		t.Fatal("zero weight symbol was drawn")
	}
	if counts["C"] < 2700 || counts["C"] > 3300 {
		t.Errorf("C drawn %d/4000 times, want about 3000", counts["C"])
	}
	if _, err := WeightsOf(map[string]int{"A": 0}); err == nil {
		t.Error("zero total should fail")
	}
}

const testGameJson = `{
	"id": "test_cluster",
	"win_type": "cluster",
	"rows": [3, 3, 3],
	"min_cluster_size": 3,
	"tumble": true,
	"symbols": [
		{"code": "A"}, {"code": "B"}, {"code": "W", "kind": "wild"},
		{"code": "S", "kind": "scatter"}, {"code": "X", "kind": "blank"}
	],
	"pay_table": [
		{"min": 3, "max": 5, "symbol": "A", "pay": "1"},
		{"min": 6, "max": 9, "symbol": "A", "pay": "4"},
		{"min": 3, "max": 9, "symbol": "B", "pay": "0.5"}
	],
	"reel_sets": {
		"BR0": [{"A": 2, "B": 2, "W": 1, "S": 1}, {"A": 2, "B": 2, "X": 1}, {"A": 2, "B": 2, "S": 1}]
	},
	"overlay": {"free": true, "cap": 512},
	"streak_multipliers": {"basegame": [1, 2, 3]},
	"free_game": {"min": 3, "times": 10, "add_times": 2},
	"win_levels": ["1", "5", "20"]
}`

func TestParseDefinition(t *testing.T) {
	g, err := Parse(testGameJson)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.WinType != WinCluster || g.WaysStrategy != StrategyGlobal || g.MaxCascades != 100 {
		t.Fatalf("unexpected defaults: %+v", g)
	}
	if g.Symbol("W").Kind != Wild || g.Symbol("nope").Kind != Blank {
		t.Fatal("symbol kinds not resolved")
	}
	if !g.Pays("A") || g.Pays("S") {
		t.Fatal("paying flags wrong")
	}
	if got := g.StreakMultiplier(BaseGame, 7); got != 3 {
		t.Errorf("streak after 7 cascades = %d, want 3", got)
	}
	if got := g.StreakMultiplier(FreeGame, 2); got != 1 {
		t.Errorf("free streak = %d, want 1", got)
	}
	if got := g.FreeGame.Spins(5); got != 14 {
		t.Errorf("Spins(5) = %d, want 14", got)
	}
	if got := g.WinLevel(600); got != 2 {
		t.Errorf("WinLevel(600) = %d, want 2", got)
	}
	rs, err := g.ReelSet("BR0")
	if err != nil {
		t.Fatal(err)
	}
	grid := rs.Draw(g, rand.New(rand.NewPCG(1, 2)))
	if grid.Reels() != 3 || grid.Rows(2) != 3 {
		t.Fatalf("drawn grid has wrong shape")
	}
	if _, err := g.ReelSet("FR0"); !simerr.IsConfiguration(err) {
		t.Errorf("missing reel set: got %v", err)
	}
}

func TestParseRejectsMissingPay(t *testing.T) {
	raw := `{"id":"x","win_type":"ways","rows":[3],"symbols":[{"code":"A"},{"code":"B"}],
		"pay_table":[{"min":1,"max":1,"symbol":"A","pay":"1"}]}`
	if _, err := Parse(raw); !simerr.IsConfiguration(err) {
		t.Fatalf("got %v, want configuration error", err)
	}
}
