package biz

import (
	"context"
	"io/fs"

	"reelsim/internal/force"
	"reelsim/internal/outcome"
	"reelsim/internal/simerr"

	"github.com/yola1107/kratos/v2/errors"
	"github.com/yola1107/kratos/v2/log"
)

// ReportUsecase answers queries about finished runs. Artifact files are preferred, the run
// store is the fallback.
type ReportUsecase struct {
	runs   RunRepo
	forces ForceRepo
	files  ArtifactRepo
	log    *log.Helper
}

// NewReportUsecase new a report usecase.
func NewReportUsecase(runs RunRepo, forces ForceRepo, files ArtifactRepo, logger log.Logger) *ReportUsecase {
	return &ReportUsecase{runs: runs, forces: forces, files: files, log: log.NewHelper(logger)}
}

// Summary returns the stored summary of one mode of a run.
func (uc *ReportUsecase) Summary(ctx context.Context, run, mode string) (*RunSummary, error) {
	s, err := uc.files.LoadSummary(run, mode)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return uc.runs.GetRun(ctx, run, mode)
}

// Stats summarizes the outcome table of a mode. A zero stake uses the stake of the run.
func (uc *ReportUsecase) Stats(ctx context.Context, run, mode string, stake int64) (*outcome.Stats, error) {
	t, err := uc.table(ctx, run, mode)
	if err != nil {
		return nil, err
	}
	if stake == 0 {
		if s, err := uc.Summary(ctx, run, mode); err == nil {
			stake = s.Stake
		}
	}
	uc.log.WithContext(ctx).Debugf("stats: run=%s mode=%s stake=%d", run, mode, stake)
	return t.Summarize(stake)
}

// Payouts returns the ids of rounds whose payout matches q.
func (uc *ReportUsecase) Payouts(ctx context.Context, run, mode string, q outcome.Query) ([]uint64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t, err := uc.table(ctx, run, mode)
	if err != nil {
		return nil, err
	}
	return t.Search(q)
}

// Force returns the rounds matching every key. Without a run the live force store of the
// mode's latest run is asked.
func (uc *ReportUsecase) Force(ctx context.Context, run, mode string, keys []string) ([]uint64, error) {
	if len(keys) == 0 {
		return nil, simerr.InvalidQuery("no force keys given")
	}
	queries := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		q, err := force.ParseKey(k)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	if run == "" {
		return uc.forces.Search(ctx, mode, queries)
	}
	ix, err := uc.files.LoadForce(run, mode)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return ix.SearchAll(queries)
}

func (uc *ReportUsecase) table(ctx context.Context, run, mode string) (*outcome.Table, error) {
	t, err := uc.files.LoadTable(run, mode)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return uc.runs.LoadTable(ctx, run, mode)
}
