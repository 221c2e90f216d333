package profile_test

import (
	"path/filepath"
	"testing"

	"reelsim/internal/game"
	"reelsim/internal/gametest"
	"reelsim/internal/profile"
	"reelsim/internal/simerr"
)

func TestCompileSample(t *testing.T) {
	g := gametest.Cluster(t)
	profiles, err := gametest.Modes(t).Compile(g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles", len(profiles))
	}
	base := profiles[0]
	if base.Stake != 100 || base.WinCap != 10000 {
		t.Fatalf("stake %d wincap %d", base.Stake, base.WinCap)
	}
	if profiles[1].Stake != 10000 || !profiles[1].BuyBonus {
		t.Fatalf("bonus mode: %+v", profiles[1])
	}

	wincap, _ := base.Rule("wincap")
	if !wincap.ForceWinCap || !wincap.ForceFeature || !wincap.Forced() {
		t.Fatal("wincap rule should be forced")
	}
	if amt, ok := wincap.Target(); !ok || amt != 10000 {
		t.Fatalf("wincap target %d %v", amt, ok)
	}
	if r, _ := base.Rule("basegame"); !r.CatchAll() || r.ReelSets[game.FreeGame] == nil {
		t.Fatal("basegame should be a catch-all with a free reel fallback")
	}
	if r, _ := base.Rule("0"); !r.ZeroWin() {
		t.Fatal("criterion 0 should require a zero win")
	}
}

func TestClassifyDeclarationOrder(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")

	cases := []struct {
		payout  int64
		feature bool
		want    string
	}{
		{10000, true, "wincap"},
		{10000, false, "wincap"},
		{350, true, "freegame"},
		{0, true, "freegame"},
		{0, false, "0"},
		{20, false, "basegame"},
	}
	for _, c := range cases {
		r, ok := p.Classify(c.payout, c.feature)
		if !ok || r.Name != c.want {
			t.Errorf("Classify(%d, %v) = %v, want %s", c.payout, c.feature, r, c.want)
		}
	}
}

func TestAdmitsRespectsEarlierRules(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	freegame, _ := p.Rule("freegame")
	basegame, _ := p.Rule("basegame")

	if p.Admits(freegame, p.WinCap, true) {
		t.Fatal("a capped feature round belongs to wincap")
	}
	if !p.Admits(freegame, 350, true) {
		t.Fatal("an uncapped feature round belongs to freegame")
	}
	if p.Admits(freegame, 350, false) {
		t.Fatal("freegame admitted a round without a feature")
	}
	// "0" comes earlier and has a predicate
	if p.Admits(basegame, 0, false) || !p.Admits(basegame, 20, false) {
		t.Fatal("basegame admission")
	}

	// a leading catch-all does not shadow later rules
	reels := profile.Conditions{ReelWeights: map[game.Phase]map[string]int{game.BaseGame: {"BR0": 1}}}
	shadowed, err := profile.Compile(g, &profile.Mode{
		Name: "shadowed", Cost: 1,
		Criteria: []*profile.Criterion{
			{Name: "any", Quota: 0.5, Conditions: reels},
			{Name: "feature", Quota: 0.5, Feature: true, Conditions: reels},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	feature, _ := shadowed.Rule("feature")
	if !shadowed.Admits(feature, 0, true) {
		t.Fatal("catch-all shadowed the feature rule")
	}
}

func TestRangePredicate(t *testing.T) {
	g := gametest.Cluster(t)
	lo, hi := 1.0, 5.0
	m := &profile.Mode{
		Name: "range", Cost: 1,
		Criteria: []*profile.Criterion{
			{Name: "mid", Quota: 0.5, MinWin: &lo, MaxWin: &hi, Conditions: baseOnly()},
			{Name: "rest", Quota: 0.5, Conditions: baseOnly()},
		},
	}
	p, err := profile.Compile(g, m)
	if err != nil {
		t.Fatal(err)
	}
	mid, _ := p.Rule("mid")
	for payout, want := range map[int64]bool{99: false, 100: true, 499: true, 500: false} {
		if got := mid.Match(payout, false); got != want {
			t.Errorf("Match(%d) = %v, want %v", payout, got, want)
		}
	}
}

func baseOnly() profile.Conditions {
	return profile.Conditions{ReelWeights: map[game.Phase]map[string]int{game.BaseGame: {"BR0": 1}}}
}

func TestCompileRejects(t *testing.T) {
	g := gametest.Cluster(t)
	win := 3.0
	cases := map[string]*profile.Mode{
		"zero quota": {Name: "m", Cost: 1, Criteria: []*profile.Criterion{
			{Name: "a", Quota: 0, Conditions: baseOnly()},
			{Name: "b", Quota: 1, Conditions: baseOnly()},
		}},
		"quota sum": {Name: "m", Cost: 1, Criteria: []*profile.Criterion{
			{Name: "a", Quota: 0.5, Conditions: baseOnly()},
			{Name: "b", Quota: 0.3, Conditions: baseOnly()},
		}},
		"unknown reels": {Name: "m", Cost: 1, Criteria: []*profile.Criterion{
			{Name: "a", Quota: 1, Conditions: profile.Conditions{
				ReelWeights: map[game.Phase]map[string]int{game.BaseGame: {"NOPE": 1}},
			}},
		}},
		"no base reels": {Name: "m", Cost: 1, Criteria: []*profile.Criterion{
			{Name: "a", Quota: 1},
		}},
		"forced cap mismatch": {Name: "m", Cost: 1, WinCap: 100, Criteria: []*profile.Criterion{
			{Name: "a", Quota: 1, Win: &win, Conditions: profile.Conditions{
				ReelWeights: map[game.Phase]map[string]int{game.BaseGame: {"BR0": 1}},
				ForceWinCap: true,
			}},
		}},
		"duplicate": {Name: "m", Cost: 1, Criteria: []*profile.Criterion{
			{Name: "a", Quota: 0.5, Conditions: baseOnly()},
			{Name: "a", Quota: 0.5, Conditions: baseOnly()},
		}},
		"no cost": {Name: "m", Criteria: []*profile.Criterion{{Name: "a", Quota: 1, Conditions: baseOnly()}}},
	}
	for name, m := range cases {
		if _, err := profile.Compile(g, m); !simerr.IsConfiguration(err) {
			t.Errorf("%s: got %v, want configuration error", name, err)
		}
	}
}

func TestAllocate(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")

	for _, n := range []int{4, 7, 200, 1000, 12345} {
		counts, err := p.Allocate(n)
		if err != nil {
			t.Fatal(err)
		}
		sum := 0
		for i, c := range counts {
			if c < 1 {
				t.Errorf("n=%d: %s got %d rounds", n, p.Rules[i].Name, c)
			}
			sum += c
		}
		if sum != n {
			t.Errorf("n=%d: counts %v sum to %d", n, counts, sum)
		}
	}

	counts, _ := p.Allocate(1000)
	if counts[0] != 1 || counts[1] != 100 || counts[2] != 400 || counts[3] != 499 {
		t.Errorf("Allocate(1000) = %v", counts)
	}
	if _, err := p.Allocate(0); !simerr.IsConfiguration(err) {
		t.Errorf("Allocate(0) = %v", err)
	}
}

func TestWriteBackMasses(t *testing.T) {
	g := gametest.Cluster(t)
	cfg := gametest.Modes(t)
	p := gametest.Profile(t, g, "base")
	tuned := p.WithMasses([]float64{0.002, 0.08, 0.45, 0.468})
	if p.Rules[0].Mass != 0.001 {
		t.Fatal("WithMasses mutated the source profile")
	}

	src, _ := cfg.Mode("base")
	cfg.Modes[0] = tuned.Mode(src)
	path := filepath.Join(t.TempDir(), "tuned.yaml")
	if err := cfg.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	back, err := profile.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := back.Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	if got := again[0].Masses(); got[1] != 0.08 || got[3] != 0.468 {
		t.Fatalf("masses after reload = %v", got)
	}
	if src.Criteria[0].Weight != 0 {
		t.Fatal("Mode mutated the source criteria")
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := profile.Parse([]byte("game: x\nmodes:\n  - name: a\n    colour: red\n"))
	if !simerr.IsConfiguration(err) {
		t.Fatalf("got %v", err)
	}
}
