package data

import (
	"reelsim/internal/conf"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/wire"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	kredis "github.com/yola1107/kratos/v2/library/db/redis"
	kxorm "github.com/yola1107/kratos/v2/library/db/xorm"
	"github.com/yola1107/kratos/v2/log"
	"xorm.io/xorm"
	_ "modernc.org/sqlite"
)

// StoreSet provides the run, force and artifact repositories with their clients.
var StoreSet = wire.NewSet(NewDB, NewRedis, NewData, NewRunRepo, NewForceRepo, NewArtifactRepo)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(StoreSet, NewNotifier)

// Data holds the optional stores. A nil db or rdb means that store is not configured.
type Data struct {
	db        *xorm.Engine
	rdb       redis.UniversalClient
	prefix    string
	artifacts string
}

// NewData .
func NewData(c *conf.Data, logger log.Logger, db *xorm.Engine, rdb redis.UniversalClient) (*Data, func(), error) {
	d := &Data{
		db:        db,
		rdb:       rdb,
		prefix:    "reelsim:",
		artifacts: c.Artifacts,
	}
	if c.Redis != nil && c.Redis.Prefix != "" {
		d.prefix = c.Redis.Prefix
	}
	if db != nil {
		if err := db.Sync(new(simRun), new(simRecord)); err != nil {
			return nil, nil, err
		}
	}
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
	}
	return d, cleanup, nil
}

func NewRedis(c *conf.Data, logger log.Logger) (redis.UniversalClient, func(), error) {
	if c.Redis == nil || c.Redis.Addr == "" {
		log.NewHelper(logger).Info("redis not configured, force mirror disabled")
		return nil, func() {}, nil
	}
	rdb := kredis.NewClient(kredis.WithAddress(c.Redis.Addr))
	return rdb, func() { rdb.Close() }, nil
}

// NewDB opens the run store. Driver is mysql, pgx or sqlite.
func NewDB(c *conf.Data, logger log.Logger) (*xorm.Engine, func(), error) {
	if c.Database == nil || c.Database.Driver == "" {
		log.NewHelper(logger).Info("database not configured, run store disabled")
		return nil, func() {}, nil
	}
	engine, err := kxorm.NewEngine(
		kxorm.WithDriver(c.Database.Driver),
		kxorm.WithDataSource(c.Database.Source),
	)
	if err != nil {
		return nil, nil, err
	}
	engine.ShowSQL(c.Database.ShowSQL)
	return engine, func() { engine.Close() }, nil
}
