package conf

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/yola1107/kratos/v2/config"
	"github.com/yola1107/kratos/v2/config/file"
	_ "github.com/yola1107/kratos/v2/encoding/json"
	_ "github.com/yola1107/kratos/v2/encoding/yaml"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REELSIM_"

// Load reads .env files, the config file or directory at path, then applies REELSIM_*
// environment overrides.
func Load(path string, dotenv ...string) (*Bootstrap, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()
	if err := c.Load(); err != nil {
		return nil, err
	}
	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	bc.defaults()
	if err := bc.ApplyEnv(); err != nil {
		return nil, err
	}
	base := path
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		base = filepath.Dir(path)
	}
	bc.Sim.Game = resolve(base, bc.Sim.Game)
	bc.Sim.Modes = resolve(base, bc.Sim.Modes)
	return &bc, nil
}

// resolve makes p relative to the configuration directory.
func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (bc *Bootstrap) defaults() {
	if bc.Server == nil {
		bc.Server = &Server{}
	}
	if bc.Server.HTTP == nil {
		bc.Server.HTTP = &Server_HTTP{}
	}
	if bc.Data == nil {
		bc.Data = &Data{}
	}
	if bc.Data.Artifacts == "" {
		bc.Data.Artifacts = "./library"
	}
	if bc.Sim == nil {
		bc.Sim = &Sim{}
	}
	if bc.Sim.Optimize == nil {
		bc.Sim.Optimize = &Optimize{}
	}
}

// ApplyEnv overrides fields from REELSIM_* variables, e.g. REELSIM_SIM_ROUNDS or
// REELSIM_DATA_DATABASE_SOURCE. Sections missing from the file stay nil.
func (bc *Bootstrap) ApplyEnv() error {
	return env.ParseWithOptions(bc, env.Options{Prefix: EnvPrefix})
}
