package round_test

import (
	"context"
	"reflect"
	"testing"

	"reelsim/internal/game"
	"reelsim/internal/gametest"
	"reelsim/internal/profile"
	"reelsim/internal/round"
	"reelsim/internal/simerr"
)

func play(t *testing.T, d *round.Driver, p *profile.Profile, rule string, seed uint64) *round.Round {
	t.Helper()
	r, ok := p.Rule(rule)
	if !ok {
		t.Fatalf("no rule %q", rule)
	}
	res, err := d.Play(context.Background(), round.Request{ID: seed, Seed: seed, Profile: p, Rule: r})
	if err != nil {
		t.Fatalf("Play(%s, %d): %v", rule, seed, err)
	}
	if d.State() != round.StateDone {
		t.Fatalf("driver left in state %s", d.State())
	}
	return res
}

func settled(r *round.Round) int64 {
	var sum int64
	for _, e := range r.Events {
		if e.Type == round.EventSetWin {
			sum += e.Amount
		}
	}
	return sum
}

func TestReplayIsDeterministic(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	a := round.NewDriver(g, gametest.Logger(t))
	b := round.NewDriver(g, nil)

	for seed := uint64(1); seed <= 40; seed++ {
		first := play(t, a, p, "basegame", seed)
		// interleave a different round so driver state cannot leak
		play(t, a, p, "freegame", seed+1000)
		second := play(t, b, p, "basegame", seed)
		if first.Payout != second.Payout || !reflect.DeepEqual(first.Events, second.Events) {
			t.Fatalf("seed %d: replay diverged (%d vs %d)", seed, first.Payout, second.Payout)
		}
	}
}

func TestPayoutIsSumOfSettledWins(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	d := round.NewDriver(g, nil)

	for seed := uint64(1); seed <= 200; seed++ {
		r := play(t, d, p, "basegame", seed)
		if r.Payout != settled(r) || r.Payout != r.BaseWin+r.FreeWin {
			t.Fatalf("seed %d: payout %d, settled %d", seed, r.Payout, settled(r))
		}
		if r.Payout > p.WinCap {
			t.Fatalf("seed %d: payout %d above cap", seed, r.Payout)
		}
		if last := r.Events[len(r.Events)-1]; last.Type != round.EventFinalWin || last.Amount != r.Payout {
			t.Fatalf("seed %d: last event %+v", seed, last)
		}
		for i, e := range r.Events {
			if e.Index != i {
				t.Fatalf("seed %d: event %d has index %d", seed, i, e.Index)
			}
		}
	}
}

func TestForcedFeatureTriggers(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	d := round.NewDriver(g, nil)

	for seed := uint64(1); seed <= 30; seed++ {
		r := play(t, d, p, "freegame", seed)
		if !r.Feature {
			t.Fatalf("seed %d: no feature", seed)
		}
		// reaching the cap ends the free game early
		if r.Capped {
			if r.Payout != p.WinCap {
				t.Fatalf("seed %d: capped round paid %d, cap %d", seed, r.Payout, p.WinCap)
			}
		} else if r.FreeSpinsPlayed < g.FreeGame.Times {
			t.Fatalf("seed %d: feature after %d spins", seed, r.FreeSpinsPlayed)
		}
		found := false
		for _, k := range r.Force {
			if k["symbol"] == "scatter" && k["gametype"] == string(game.BaseGame) {
				found = true
			}
		}
		if !found {
			t.Fatalf("seed %d: trigger not recorded in %v", seed, r.Force)
		}
	}
}

func TestForcedWinCapReachesCap(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	rule, _ := p.Rule("wincap")
	d := round.NewDriver(g, nil)

	for seed := uint64(1); seed <= 5; seed++ {
		r := play(t, d, p, "wincap", seed)
		if r.Payout != p.WinCap || !r.Capped {
			t.Fatalf("seed %d: payout %d, capped %v", seed, r.Payout, r.Capped)
		}
		if !rule.Match(r.Payout, r.Feature) {
			t.Fatalf("seed %d: forced round does not satisfy its criterion", seed)
		}
		if r.Payout != settled(r) {
			t.Fatalf("seed %d: settled %d", seed, settled(r))
		}
		capped := false
		for _, k := range r.Force {
			if k["wincap"] == "true" {
				capped = true
			}
		}
		if !capped {
			t.Fatalf("seed %d: wincap key missing", seed)
		}
	}
}

const endlessGame = `{
	"id": "endless",
	"win_type": "cluster",
	"rows": [3, 3, 3],
	"min_cluster_size": 3,
	"tumble": true,
	"max_cascades": 25,
	"symbols": [{"code": "A"}],
	"pay_table": [{"min": 3, "max": 9, "symbol": "A", "pay": "0.1"}],
	"reel_sets": {"R": [{"A": 1}, {"A": 1}, {"A": 1}]}
}`

func TestEndlessCascadeIsConfigurationError(t *testing.T) {
	g, err := game.Parse(endlessGame)
	if err != nil {
		t.Fatal(err)
	}
	p, err := profile.Compile(g, &profile.Mode{
		Name: "m", Cost: 1,
		Criteria: []*profile.Criterion{{
			Name: "all", Quota: 1,
			Conditions: profile.Conditions{ReelWeights: map[game.Phase]map[string]int{game.BaseGame: {"R": 1}}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	d := round.NewDriver(g, nil)
	_, err = d.Play(context.Background(), round.Request{ID: 9, Seed: 77, Profile: p, Rule: p.Rules[0]})
	if !simerr.IsConfiguration(err) {
		t.Fatalf("got %v, want configuration error", err)
	}
	if md := simerr.Metadata(err); md["seed"] != "77" || md["criterion"] != "all" {
		t.Fatalf("error metadata %v", md)
	}
}

func TestCapClampsEndlessCascade(t *testing.T) {
	g, err := game.Parse(endlessGame)
	if err != nil {
		t.Fatal(err)
	}
	p, err := profile.Compile(g, &profile.Mode{
		Name: "m", Cost: 1, WinCap: 0.5,
		Criteria: []*profile.Criterion{{
			Name: "all", Quota: 1,
			Conditions: profile.Conditions{ReelWeights: map[game.Phase]map[string]int{game.BaseGame: {"R": 1}}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	d := round.NewDriver(g, nil)
	r, err := d.Play(context.Background(), round.Request{Seed: 3, Profile: p, Rule: p.Rules[0]})
	if err != nil {
		t.Fatal(err)
	}
	// nine A pay 10 per cascade, so the fifth evaluation reaches the cap
	if r.Payout != 50 || !r.Capped || r.Cascades != 4 {
		t.Fatalf("payout %d capped %v cascades %d", r.Payout, r.Capped, r.Cascades)
	}
}
