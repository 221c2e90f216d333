//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"reelsim/internal/biz"
	"reelsim/internal/conf"
	"reelsim/internal/data"
	"reelsim/internal/server"
	"reelsim/internal/service"

	"github.com/google/wire"
	"github.com/yola1107/kratos/v2"
	"github.com/yola1107/kratos/v2/log"
)

// wireApp init the report server. It only reads stores, so the notifier stays out.
func wireApp(*conf.Server, *conf.Data, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(data.StoreSet, biz.ReportSet, service.ProviderSet, server.ProviderSet, newApp))
}
