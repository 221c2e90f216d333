package optimize

import (
	"context"
	"math"
	"testing"

	"reelsim/internal/gametest"
	"reelsim/internal/profile"
	"reelsim/internal/quota"
	"reelsim/internal/simerr"
)

// analytic measures a profile exactly from fixed per-criterion average wins, in the sample
// order wincap, freegame, 0, basegame.
func analytic(means []float64) RunnerFunc {
	return func(_ context.Context, _ uint64, p *profile.Profile) (*Measurement, error) {
		m := normalized(p.Masses())
		return &Measurement{
			RTP:     predict(m, means),
			HitRate: 1 / (1 - m[2]),
			Means:   means,
		}, nil
	}
}

func TestConvergesOnAnalyticProfile(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	means := []float64{100, 3, 0, 0.6}

	o, err := New(Target{RTP: 0.96, HitRate: 2.5, Tolerance: 1e-4, MaxIterations: 10}, analytic(means),
		WithLogger(gametest.Logger(t)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Optimize(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged || res.Residual > 1e-4 || res.Iterations > 3 {
		t.Fatalf("converged %v residual %g after %d iterations", res.Converged, res.Residual, res.Iterations)
	}
	if hr := res.Measurement.HitRate; math.Abs(hr-2.5) > 2.5*HitRateTolerance {
		t.Fatalf("hit rate %g", hr)
	}
	var sum float64
	for _, w := range res.Profile.Masses() {
		if w <= 0 {
			t.Fatalf("mass %g dropped a criterion", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("masses sum to %g", sum)
	}
	if p.Rules[0].Mass != 0.001 {
		t.Fatal("input profile was modified")
	}
}

func TestReportsBestResidual(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	means := []float64{100, 3, 0, 0.6}

	o, err := New(Target{RTP: 500, Tolerance: 0.01, MaxIterations: 4}, analytic(means))
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Optimize(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Converged || res.Iterations != 4 || len(res.History) != 4 {
		t.Fatalf("converged %v after %d iterations", res.Converged, res.Iterations)
	}
	first := res.History[0].Residual
	if !(res.Residual < first) || res.Residual <= 0 {
		t.Fatalf("best residual %g, first %g", res.Residual, first)
	}
	if res.History[res.Best].Residual != res.Residual {
		t.Fatalf("best iteration %d has residual %g, reported %g", res.Best, res.History[res.Best].Residual, res.Residual)
	}
	for _, s := range res.History {
		if s.Residual < res.Residual {
			t.Fatalf("step %d residual %g beats the reported best %g", s.Iteration, s.Residual, res.Residual)
		}
	}
}

func TestLocalSearchMovesWithErrorSign(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	means := []float64{100, 3, 0, 0.6}
	m, _ := analytic(means)(context.Background(), 0, p)
	ls := &LocalSearch{Damping: 0.5}

	up := ls.Adjust(p, m, Target{RTP: 1.2})
	down := ls.Adjust(p, m, Target{RTP: 0.3})
	if r := predict(up, means); !(r > m.RTP) || math.Abs(r-(m.RTP+0.5*(1.2-m.RTP))) > 1e-9 {
		t.Fatalf("raise: predicted %g from %g", r, m.RTP)
	}
	if r := predict(down, means); !(r < m.RTP) {
		t.Fatalf("lower: predicted %g from %g", r, m.RTP)
	}
}

func TestTargetValidation(t *testing.T) {
	bad := []Target{
		{RTP: 0, Tolerance: 0.01, MaxIterations: 1},
		{RTP: 0.96, Tolerance: 0, MaxIterations: 1},
		{RTP: 0.96, Tolerance: 0.01},
		{RTP: 0.96, Tolerance: 0.01, MaxIterations: 1, HitRate: 0.5},
	}
	for _, tg := range bad {
		if _, err := New(tg, analytic(nil)); !simerr.IsConfiguration(err) {
			t.Errorf("%+v: got %v", tg, err)
		}
	}
}

func TestEngineRunner(t *testing.T) {
	g := gametest.Cluster(t)
	p := gametest.Profile(t, g, "base")
	runner := &EngineRunner{Engine: quota.New(g, nil), Options: quota.Options{Rounds: 200}}

	o, err := New(Target{RTP: 0.96, Tolerance: 0.05, MaxIterations: 3}, runner)
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Optimize(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Measurement.Run == nil || res.Measurement.Run.Table.Len() != 200 {
		t.Fatal("best measurement lost its run")
	}
	if len(res.Measurement.Means) != len(p.Rules) || res.Measurement.Means[2] != 0 {
		t.Fatalf("means %v", res.Measurement.Means)
	}
	if res.Iterations < 1 || res.Iterations > 3 {
		t.Fatalf("iterations %d", res.Iterations)
	}
}
