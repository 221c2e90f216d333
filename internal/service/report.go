package service

import (
	"context"
	"strconv"

	"reelsim/internal/biz"
	"reelsim/internal/outcome"
	"reelsim/internal/simerr"

	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport/http"
)

const (
	OperationSummary = "/reelsim.v1.Report/Summary"
	OperationStats   = "/reelsim.v1.Report/Stats"
	OperationPayouts = "/reelsim.v1.Report/Payouts"
	OperationForce   = "/reelsim.v1.Report/Force"
)

// IdsReply is the answer of every id lookup.
type IdsReply struct {
	Count int      `json:"count"`
	Ids   []uint64 `json:"ids"`
}

// ReportService serves stored runs over HTTP.
type ReportService struct {
	uc  *biz.ReportUsecase
	log *log.Helper
}

// NewReportService new a report service.
func NewReportService(uc *biz.ReportUsecase, logger log.Logger) *ReportService {
	return &ReportService{uc: uc, log: log.NewHelper(logger)}
}

// RegisterReportHTTPServer mounts the report routes on s.
func RegisterReportHTTPServer(s *http.Server, srv *ReportService) {
	r := s.Route("/")
	r.GET("/v1/runs/{run}/modes/{mode}", srv.Summary)
	r.GET("/v1/runs/{run}/modes/{mode}/stats", srv.Stats)
	r.GET("/v1/runs/{run}/modes/{mode}/payouts", srv.Payouts)
	r.GET("/v1/runs/{run}/modes/{mode}/force", srv.Force)
	r.GET("/v1/modes/{mode}/force", srv.Force)
}

func (s *ReportService) Summary(ctx http.Context) error {
	vars := ctx.Vars()
	return s.handle(ctx, OperationSummary, func(c context.Context) (interface{}, error) {
		return s.uc.Summary(c, vars.Get("run"), vars.Get("mode"))
	})
}

// Stats GET /v1/runs/{run}/modes/{mode}/stats?stake=
func (s *ReportService) Stats(ctx http.Context) error {
	vars := ctx.Vars()
	stake, err := intParam(ctx, "stake")
	if err != nil {
		return err
	}
	return s.handle(ctx, OperationStats, func(c context.Context) (interface{}, error) {
		return s.uc.Stats(c, vars.Get("run"), vars.Get("mode"), stake)
	})
}

// Payouts GET /v1/runs/{run}/modes/{mode}/payouts?method=RANGE&min=&max=&limit=
func (s *ReportService) Payouts(ctx http.Context) error {
	vars := ctx.Vars()
	q := outcome.Query{Method: outcome.SearchMethod(ctx.Query().Get("method"))}
	var err error
	if q.Min, err = intParam(ctx, "min"); err != nil {
		return err
	}
	if q.Max, err = intParam(ctx, "max"); err != nil {
		return err
	}
	limit, err := intParam(ctx, "limit")
	if err != nil {
		return err
	}
	q.Limit = int(limit)
	return s.handle(ctx, OperationPayouts, func(c context.Context) (interface{}, error) {
		ids, err := s.uc.Payouts(c, vars.Get("run"), vars.Get("mode"), q)
		if err != nil {
			return nil, err
		}
		return &IdsReply{Count: len(ids), Ids: ids}, nil
	})
}

// Force GET /v1/modes/{mode}/force?key=k=v%3Bk=v&key=...
// The ';' between pairs has to be escaped. Under /v1/runs/{run} the run's force file is read
// instead of the live store.
func (s *ReportService) Force(ctx http.Context) error {
	vars := ctx.Vars()
	keys := ctx.Query()["key"]
	return s.handle(ctx, OperationForce, func(c context.Context) (interface{}, error) {
		ids, err := s.uc.Force(c, vars.Get("run"), vars.Get("mode"), keys)
		if err != nil {
			return nil, err
		}
		return &IdsReply{Count: len(ids), Ids: ids}, nil
	})
}

func (s *ReportService) handle(ctx http.Context, operation string, fn func(context.Context) (interface{}, error)) error {
	http.SetOperation(ctx, operation)
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return fn(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		s.log.WithContext(ctx).Debugf("%s: %v", operation, err)
		return err
	}
	return ctx.Result(200, out)
}

func intParam(ctx http.Context, name string) (int64, error) {
	v := ctx.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, simerr.InvalidQuery("%s: %q is not an integer", name, v)
	}
	return n, nil
}
