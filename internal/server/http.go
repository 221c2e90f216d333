package server

import (
	"reelsim/internal/conf"
	"reelsim/internal/service"

	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/middleware/recovery"
	"github.com/yola1107/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, report *service.ReportService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout.AsDuration() > 0 {
		opts = append(opts, http.Timeout(c.HTTP.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)
	service.RegisterReportHTTPServer(srv, report)
	return srv
}
