package data

import (
	"context"
	"time"

	"reelsim/internal/biz"
	"reelsim/internal/outcome"
	"reelsim/internal/quota"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// insertChunk bounds the rows of one INSERT statement.
const insertChunk = 500

type simRun struct {
	Id         int64                    `xorm:"pk autoincr"`
	RunId      string                   `xorm:"varchar(36) notnull unique(run_mode)"`
	Mode       string                   `xorm:"varchar(64) notnull unique(run_mode)"`
	Game       string                   `xorm:"varchar(64) notnull"`
	Stake      int64                    `xorm:"notnull"`
	Rounds     int                      `xorm:"notnull"`
	Draws      int64                    `xorm:"notnull"`
	Fallbacks  int64                    `xorm:"notnull"`
	TargetRtp  float64                  `xorm:"notnull"`
	Rtp        string                   `xorm:"varchar(32) notnull"`
	HitRate    float64                  `xorm:"notnull"`
	StdDev     float64                  `xorm:"notnull"`
	MaxWin     int64                    `xorm:"notnull"`
	Iterations int                      `xorm:"notnull"`
	Converged  bool                     `xorm:"notnull"`
	Residual   float64                  `xorm:"notnull"`
	ElapsedMs  int64                    `xorm:"notnull"`
	Criteria   []quota.CriterionSummary `xorm:"text json"`
	Created    time.Time                `xorm:"created"`
}

func (simRun) TableName() string { return "sim_run" }

type simRecord struct {
	Id        int64  `xorm:"pk autoincr"`
	RunId     string `xorm:"varchar(36) notnull index(run_mode)"`
	Mode      string `xorm:"varchar(64) notnull index(run_mode)"`
	RoundId   int64  `xorm:"notnull"`
	Weight    int64  `xorm:"notnull"`
	Payout    int64  `xorm:"notnull"`
	Criterion string `xorm:"varchar(64) notnull"`
	Feature   bool   `xorm:"notnull"`
}

func (simRecord) TableName() string { return "sim_record" }

type runRepo struct {
	data *Data
	log  *log.Helper
}

// NewRunRepo .
func NewRunRepo(data *Data, logger log.Logger) biz.RunRepo {
	return &runRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// SaveRun replaces the stored summary and records of a run mode in one transaction.
func (r *runRepo) SaveRun(ctx context.Context, s *biz.RunSummary, records []outcome.Record) error {
	if r.data.db == nil {
		return nil
	}
	session := r.data.db.NewSession().Context(ctx)
	defer session.Close()
	if err := session.Begin(); err != nil {
		return err
	}
	if _, err := session.Where("run_id = ? AND mode = ?", s.RunID, s.Mode).Delete(new(simRecord)); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Where("run_id = ? AND mode = ?", s.RunID, s.Mode).Delete(new(simRun)); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Insert(toRun(s)); err != nil {
		session.Rollback()
		return err
	}
	rows := make([]*simRecord, 0, insertChunk)
	for i, rec := range records {
		rows = append(rows, &simRecord{
			RunId:     s.RunID,
			Mode:      s.Mode,
			RoundId:   int64(rec.ID),
			Weight:    int64(rec.Weight),
			Payout:    rec.Payout,
			Criterion: rec.Criterion,
			Feature:   rec.Feature,
		})
		if len(rows) == insertChunk || i == len(records)-1 {
			if _, err := session.Insert(&rows); err != nil {
				session.Rollback()
				return err
			}
			rows = rows[:0]
		}
	}
	if err := session.Commit(); err != nil {
		return err
	}
	r.log.WithContext(ctx).Infof("run %s mode %s: stored %d records", s.RunID, s.Mode, len(records))
	return nil
}

func (r *runRepo) GetRun(ctx context.Context, runID, mode string) (*biz.RunSummary, error) {
	if r.data.db == nil {
		return nil, biz.ErrRunNotFound
	}
	var row simRun
	ok, err := r.data.db.Context(ctx).Where("run_id = ? AND mode = ?", runID, mode).Get(&row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, biz.ErrRunNotFound
	}
	return fromRun(&row)
}

// LoadTable rebuilds the outcome table in round id order.
func (r *runRepo) LoadTable(ctx context.Context, runID, mode string) (*outcome.Table, error) {
	if r.data.db == nil {
		return nil, biz.ErrRunNotFound
	}
	var rows []simRecord
	if err := r.data.db.Context(ctx).Where("run_id = ? AND mode = ?", runID, mode).Asc("round_id").Find(&rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, biz.ErrRunNotFound
	}
	recs := make([]outcome.Record, len(rows))
	for i, row := range rows {
		recs[i] = outcome.Record{
			ID:        uint64(row.RoundId),
			Weight:    uint64(row.Weight),
			Payout:    row.Payout,
			Criterion: row.Criterion,
			Feature:   row.Feature,
		}
	}
	return outcome.TableOf(recs), nil
}

func toRun(s *biz.RunSummary) *simRun {
	return &simRun{
		RunId:      s.RunID,
		Mode:       s.Mode,
		Game:       s.Game,
		Stake:      s.Stake,
		Rounds:     s.Rounds,
		Draws:      int64(s.Draws),
		Fallbacks:  s.Fallbacks,
		TargetRtp:  s.TargetRTP,
		Rtp:        s.RTP.String(),
		HitRate:    s.HitRate,
		StdDev:     s.StdDev,
		MaxWin:     s.MaxWin,
		Iterations: s.Iterations,
		Converged:  s.Converged,
		Residual:   s.Residual,
		ElapsedMs:  s.Elapsed.Milliseconds(),
		Criteria:   s.Criteria,
	}
}

func fromRun(row *simRun) (*biz.RunSummary, error) {
	rtp, err := decimal.NewFromString(row.Rtp)
	if err != nil {
		return nil, err
	}
	return &biz.RunSummary{
		RunID:      row.RunId,
		Game:       row.Game,
		Mode:       row.Mode,
		Stake:      row.Stake,
		Rounds:     row.Rounds,
		Draws:      uint64(row.Draws),
		Fallbacks:  row.Fallbacks,
		TargetRTP:  row.TargetRtp,
		RTP:        rtp,
		HitRate:    row.HitRate,
		StdDev:     row.StdDev,
		MaxWin:     row.MaxWin,
		Iterations: row.Iterations,
		Converged:  row.Converged,
		Residual:   row.Residual,
		Elapsed:    time.Duration(row.ElapsedMs) * time.Millisecond,
		Criteria:   row.Criteria,
		Created:    row.Created,
	}, nil
}
