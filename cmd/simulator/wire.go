//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"reelsim/internal/biz"
	"reelsim/internal/conf"
	"reelsim/internal/data"

	"github.com/google/wire"
	"github.com/yola1107/kratos/v2/log"
	"go.uber.org/zap"
)

// wireSimulator init the simulation usecase.
func wireSimulator(*conf.Sim, *conf.Data, *zap.Logger, log.Logger) (*biz.SimulationUsecase, func(), error) {
	panic(wire.Build(data.ProviderSet, biz.SimulationSet))
}
