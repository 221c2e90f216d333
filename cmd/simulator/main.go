package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reelsim/encoding"
	"reelsim/internal/conf"
	"reelsim/internal/simerr"

	kzap "github.com/yola1107/kratos/v2/library/log/zap"
	zconf "github.com/yola1107/kratos/v2/library/log/zap/conf"
	"github.com/yola1107/kratos/v2/log"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "reelsim-simulator"
	// Version is the version of the compiled software.
	Version string

	flagconf   string
	flagRounds int
	flagOnly   string
	flagTune   bool
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
	flag.IntVar(&flagRounds, "rounds", 0, "rounds per mode, 0 keeps the configured value")
	flag.StringVar(&flagOnly, "only", "", "comma separated modes to run, empty runs all")
	flag.BoolVar(&flagTune, "optimize", false, "tune the weights before the final run")
}

// newEngineLogger builds the structured logger the engine and optimizer write to.
func newEngineLogger(c *conf.Sim) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.Level = level
	}
	return cfg.Build(zap.Fields(zap.String("app", Name)))
}

func main() {
	flag.Parse()

	logger := kzap.NewLogger(zconf.DefaultConfig(
		zconf.WithProduction(),
		zconf.WithAppName(Name),
		zconf.WithLevel("info"),
		zconf.WithDirectory("./logs"),
		zconf.WithSensitive([]string{"pwd", "password", "token"}),
	))
	helper := log.NewHelper(logger)

	bc, err := conf.Load(flagconf)
	if err != nil {
		panic(err)
	}
	if flagRounds > 0 {
		bc.Sim.Rounds = flagRounds
	}
	if flagOnly != "" {
		bc.Sim.Only = strings.Split(flagOnly, ",")
	}
	if flagTune {
		bc.Sim.Optimize.Enabled = true
	}

	zl, err := newEngineLogger(bc.Sim)
	if err != nil {
		panic(err)
	}
	defer zl.Sync()

	uc, cleanup, err := wireSimulator(bc.Sim, bc.Data, zl, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msg, err := uc.Run(ctx)
	if err != nil {
		helper.Errorf("simulation failed: %v %s", err, simerr.Describe(err))
		stop()
		cleanup()
		zl.Sync()
		os.Exit(1)
	}
	helper.Infof("run %s finished: %s", msg.RunID, encoding.ToJson(msg))
}
