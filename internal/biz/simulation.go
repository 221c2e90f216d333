package biz

import (
	"context"
	"io"
	"os"
	"slices"
	"time"

	"reelsim/encoding"
	"reelsim/internal/conf"
	"reelsim/internal/force"
	"reelsim/internal/game"
	"reelsim/internal/optimize"
	"reelsim/internal/profile"
	"reelsim/internal/quota"
	"reelsim/internal/simerr"

	"github.com/google/uuid"
	"github.com/yola1107/kratos/v2/log"
	"go.uber.org/zap"
)

// SimulationUsecase runs, tunes and stores every selected bet mode of one game.
type SimulationUsecase struct {
	c      *conf.Sim
	runs   RunRepo
	forces ForceRepo
	files  ArtifactRepo
	notify Notifier
	zl     *zap.Logger
	log    *log.Helper
	out    io.Writer
}

// NewSimulationUsecase new a simulation usecase. zl is handed to the engine and optimizer.
func NewSimulationUsecase(c *conf.Sim, runs RunRepo, forces ForceRepo, files ArtifactRepo, notify Notifier, zl *zap.Logger, logger log.Logger) *SimulationUsecase {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &SimulationUsecase{
		c:      c,
		runs:   runs,
		forces: forces,
		files:  files,
		notify: notify,
		zl:     zl,
		log:    log.NewHelper(logger),
		out:    os.Stdout,
	}
}

// SetOutput redirects the per-mode reports, stdout by default.
func (uc *SimulationUsecase) SetOutput(w io.Writer) { uc.out = w }

// Run simulates the configured modes under a fresh run id.
func (uc *SimulationUsecase) Run(ctx context.Context) (*RunCompleted, error) {
	g, err := game.LoadFile(uc.c.Game)
	if err != nil {
		return nil, err
	}
	cfg, err := profile.LoadFile(uc.c.Modes)
	if err != nil {
		return nil, err
	}
	profiles, err := cfg.Compile(g)
	if err != nil {
		return nil, err
	}
	selected, err := uc.selectModes(profiles)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	engine := quota.New(g, uc.zl)
	msg := &RunCompleted{RunID: runID, Game: g.ID, Dir: uc.files.Dir(runID)}
	uc.log.WithContext(ctx).Infof("run %s: game=%s modes=%d rounds=%d", runID, g.ID, len(selected), uc.c.Rounds)

	tuned := false
	for _, p := range selected {
		sum, final, err := uc.runMode(ctx, engine, runID, p)
		if err != nil {
			return nil, err
		}
		if final != p {
			for i, m := range cfg.Modes {
				if m.Name == p.Name {
					cfg.Modes[i] = final.Mode(m)
				}
			}
			tuned = true
		}
		msg.Modes = append(msg.Modes, sum)
	}

	if _, err := uc.files.SaveModes(runID, cfg); err != nil {
		return nil, err
	}
	if tuned {
		if err := cfg.WriteFile(uc.c.Modes); err != nil {
			return nil, err
		}
		uc.log.WithContext(ctx).Infof("tuned weights written to %s", uc.c.Modes)
	}
	if err := uc.notify.RunCompleted(ctx, msg); err != nil {
		uc.log.WithContext(ctx).Warnf("run %s: notify: %v", runID, err)
	}
	return msg, nil
}

func (uc *SimulationUsecase) selectModes(profiles []*profile.Profile) ([]*profile.Profile, error) {
	if len(uc.c.Only) == 0 {
		return profiles, nil
	}
	out := make([]*profile.Profile, 0, len(uc.c.Only))
	for _, name := range uc.c.Only {
		i := slices.IndexFunc(profiles, func(p *profile.Profile) bool { return p.Name == name })
		if i < 0 {
			return nil, simerr.Configuration("mode %q is not declared", name)
		}
		out = append(out, profiles[i])
	}
	return out, nil
}

// runMode tunes p when enabled, then runs it once more with every sink attached and stores
// the artifacts. It returns the profile that produced them.
func (uc *SimulationUsecase) runMode(ctx context.Context, engine *quota.Engine, runID string, p *profile.Profile) (*RunSummary, *profile.Profile, error) {
	opts := quota.Options{
		Rounds:      uc.c.Rounds,
		Workers:     uc.c.Workers,
		BatchSize:   uc.c.BatchSize,
		MaxAttempts: uc.c.MaxAttempts,
	}
	sum := &RunSummary{
		RunID:     runID,
		Game:      p.Game.ID,
		Mode:      p.Name,
		Stake:     p.Stake,
		TargetRTP: p.RTP,
		Created:   time.Now(),
	}

	if o := uc.c.Optimize; o != nil && o.Enabled {
		tune := opts
		if o.Rounds > 0 {
			tune.Rounds = o.Rounds
		}
		opt, err := optimize.New(optimize.Target{
			RTP:           p.RTP,
			HitRate:       o.HitRate,
			MaxStdDev:     o.MaxStdDev,
			Tolerance:     o.Tolerance,
			MaxIterations: o.MaxIterations,
		}, &optimize.EngineRunner{Engine: engine, Options: tune},
			optimize.WithAdjuster(&optimize.LocalSearch{Damping: o.Damping}),
			optimize.WithLogger(uc.zl))
		if err != nil {
			return nil, nil, err
		}
		res, err := opt.Optimize(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		uc.log.WithContext(ctx).Infof("mode %s tuned: iterations=%d converged=%v residual=%g",
			p.Name, res.Iterations, res.Converged, res.Residual)
		p = res.Profile
		opts.Iteration = uint64(res.Best)
		sum.Iterations, sum.Converged, sum.Residual = res.Iterations, res.Converged, res.Residual
	}

	books, booksPath, err := uc.files.CreateBooks(runID, p.Name, uc.c.Compression)
	if err != nil {
		return nil, nil, err
	}
	fb := force.NewBuilder()
	opts.Sinks = []quota.Sink{books, fb}
	opts.Progress = uc.progress(p.Name)

	res, err := engine.Run(ctx, p, opts)
	if cerr := books.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, nil, err
	}
	stats, err := res.Table.Summarize(p.Stake)
	if err != nil {
		return nil, nil, err
	}
	sum.Rounds = res.Table.Len()
	sum.Draws = res.Draws
	sum.Fallbacks = res.Fallbacks
	sum.RTP = stats.RTP
	sum.HitRate = stats.HitRate
	sum.StdDev = stats.StdDev / float64(p.Stake)
	sum.MaxWin = stats.MaxWin
	sum.Elapsed = res.Elapsed
	sum.Criteria = res.Criteria

	ix := fb.Build()
	tablePath, err := uc.files.SaveTable(runID, p.Name, res.Table)
	if err != nil {
		return nil, nil, err
	}
	forcePath, err := uc.files.SaveForce(runID, p.Name, ix)
	if err != nil {
		return nil, nil, err
	}
	if _, err := uc.files.SaveSummary(sum); err != nil {
		return nil, nil, err
	}
	if err := uc.runs.SaveRun(ctx, sum, res.Table.Records()); err != nil {
		return nil, nil, err
	}
	if err := uc.forces.Mirror(ctx, p.Name, ix); err != nil {
		return nil, nil, err
	}

	if err := res.Print(uc.out); err != nil {
		return nil, nil, err
	}
	uc.log.WithContext(ctx).Infof("mode %s stored: table=%s books=%s force=%s", p.Name, tablePath, booksPath, forcePath)
	uc.log.WithContext(ctx).Debugf("mode %s summary: %s", p.Name, encoding.ToJson(sum))
	return sum, p, nil
}

// progress logs every tenth of a run.
func (uc *SimulationUsecase) progress(mode string) func(done, total int) {
	last := -1
	return func(done, total int) {
		if pct := done * 10 / total; pct > last {
			last = pct
			uc.log.Infof("mode %s: %d/%d rounds", mode, done, total)
		}
	}
}
