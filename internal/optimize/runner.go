package optimize

import (
	"context"

	"reelsim/internal/game"
	"reelsim/internal/profile"
	"reelsim/internal/quota"
	"reelsim/internal/simerr"
)

// EngineRunner measures candidates by running the quota engine.
type EngineRunner struct {
	Engine  *quota.Engine
	Options quota.Options
}

func (r *EngineRunner) Measure(ctx context.Context, iteration uint64, p *profile.Profile) (*Measurement, error) {
	opts := r.Options
	opts.Iteration = iteration
	res, err := r.Engine.Run(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	stats, err := res.Table.Summarize(p.Stake)
	if err != nil {
		return nil, err
	}
	m := &Measurement{
		RTP:     res.RTP(),
		HitRate: stats.HitRate,
		StdDev:  stats.StdDev / float64(p.Stake),
		Means:   make([]float64, len(res.Criteria)),
		Run:     res,
	}
	if len(res.Criteria) != len(p.Rules) {
		return nil, simerr.Configuration("run of %s reported %d criteria, profile has %d", p.Name, len(res.Criteria), len(p.Rules))
	}
	for i, c := range res.Criteria {
		m.Means[i] = c.AvgWin * game.MinorUnits / float64(p.Stake)
	}
	return m, nil
}
