package biz

import (
	"context"
	"time"

	"reelsim/internal/book"
	"reelsim/internal/force"
	"reelsim/internal/outcome"
	"reelsim/internal/profile"
	"reelsim/internal/quota"

	"github.com/google/wire"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/errors"
)

// SimulationSet is the simulator's biz providers.
var SimulationSet = wire.NewSet(NewSimulationUsecase)

// ReportSet serves finished runs and needs no notifier.
var ReportSet = wire.NewSet(NewReportUsecase)

var (
	// ErrRunNotFound is a run or mode without stored artifacts.
	ErrRunNotFound = errors.NotFound("RUN_NOT_FOUND", "run not found")
	// ErrForceStoreDisabled is a live force query without a configured store.
	ErrForceStoreDisabled = errors.ServiceUnavailable("FORCE_STORE_DISABLED", "force store is not configured")
)

// RunSummary is what one finished bet mode of a run reports.
type RunSummary struct {
	RunID      string                   `json:"runId"`
	Game       string                   `json:"game"`
	Mode       string                   `json:"mode"`
	Stake      int64                    `json:"stake"`
	Rounds     int                      `json:"rounds"`
	Draws      uint64                   `json:"draws"`
	Fallbacks  int64                    `json:"fallbacks"`
	TargetRTP  float64                  `json:"targetRtp"`
	RTP        decimal.Decimal          `json:"rtp"`
	HitRate    float64                  `json:"hitRate"`
	StdDev     float64                  `json:"stdDev"` // stake multiples
	MaxWin     int64                    `json:"maxWin"`
	Iterations int                      `json:"iterations"`
	Converged  bool                     `json:"converged"`
	Residual   float64                  `json:"residual"`
	Elapsed    time.Duration            `json:"elapsed"`
	Created    time.Time                `json:"created"`
	Criteria   []quota.CriterionSummary `json:"criteria"`
}

// RunCompleted is published once every mode of a run is stored.
type RunCompleted struct {
	RunID string        `json:"runId"`
	Game  string        `json:"game"`
	Dir   string        `json:"dir"`
	Modes []*RunSummary `json:"modes"`
}

// RunRepo stores run summaries and outcome records.
type RunRepo interface {
	SaveRun(ctx context.Context, s *RunSummary, records []outcome.Record) error
	GetRun(ctx context.Context, runID, mode string) (*RunSummary, error)
	LoadTable(ctx context.Context, runID, mode string) (*outcome.Table, error)
}

// ForceRepo serves force lookups of the latest run of each mode.
type ForceRepo interface {
	Mirror(ctx context.Context, mode string, ix *force.Index) error
	Search(ctx context.Context, mode string, queries []map[string]string) ([]uint64, error)
}

// ArtifactRepo reads and writes the files of a run.
type ArtifactRepo interface {
	Dir(runID string) string
	SaveTable(runID, mode string, t *outcome.Table) (string, error)
	CreateBooks(runID, mode string, compress bool) (*book.Writer, string, error)
	SaveForce(runID, mode string, ix *force.Index) (string, error)
	SaveSummary(s *RunSummary) (string, error)
	SaveModes(runID string, cfg *profile.Config) (string, error)
	LoadTable(runID, mode string) (*outcome.Table, error)
	LoadForce(runID, mode string) (*force.Index, error)
	LoadSummary(runID, mode string) (*RunSummary, error)
}

// Notifier announces finished runs.
type Notifier interface {
	RunCompleted(ctx context.Context, msg *RunCompleted) error
}
