package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  http:
    addr: 0.0.0.0:8000
    timeout: 2s
data:
  artifacts: ./out
  database:
    driver: sqlite
    source: file:reelsim.db
sim:
  game: games/sample_cluster.json
  modes: /etc/reelsim/modes.yaml
  rounds: 1000
  batch_size: 100
  optimize:
    enabled: true
    tolerance: 0.001
    max_iterations: 5
`

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := write(t, sample)
	bc, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if bc.Server.HTTP.Addr != "0.0.0.0:8000" || bc.Server.HTTP.Timeout.AsDuration() != 2*time.Second {
		t.Fatalf("server %+v", bc.Server.HTTP)
	}
	if bc.Data.Database.Driver != "sqlite" || bc.Data.Redis != nil {
		t.Fatalf("data %+v", bc.Data)
	}
	if bc.Sim.Game != filepath.Join(filepath.Dir(path), "games", "sample_cluster.json") || bc.Sim.Modes != "/etc/reelsim/modes.yaml" {
		t.Fatalf("paths %s %s", bc.Sim.Game, bc.Sim.Modes)
	}
	if bc.Sim.Rounds != 1000 || bc.Sim.BatchSize != 100 || !bc.Sim.Optimize.Enabled || bc.Sim.Optimize.MaxIterations != 5 {
		t.Fatalf("sim %+v optimize %+v", bc.Sim, bc.Sim.Optimize)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REELSIM_SIM_ROUNDS", "250")
	t.Setenv("REELSIM_SIM_ONLY", "base,bonus")
	t.Setenv("REELSIM_SIM_OPTIMIZE_DAMPING", "0.5")
	t.Setenv("REELSIM_DATA_DATABASE_SOURCE", "file::memory:")
	t.Setenv("REELSIM_DATA_ARTIFACTS", "/tmp/library")

	bc, err := Load(write(t, sample), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if bc.Sim.Rounds != 250 || len(bc.Sim.Only) != 2 || bc.Sim.Only[1] != "bonus" {
		t.Fatalf("sim %+v", bc.Sim)
	}
	if bc.Sim.Optimize.Damping != 0.5 || bc.Data.Database.Source != "file::memory:" || bc.Data.Artifacts != "/tmp/library" {
		t.Fatalf("overrides not applied: %+v %+v", bc.Sim.Optimize, bc.Data)
	}
}

func TestDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("REELSIM_SIM_WORKERS=3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REELSIM_SIM_WORKERS", "")
	os.Unsetenv("REELSIM_SIM_WORKERS")

	bc, err := Load(write(t, sample), envFile)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Sim.Workers != 3 {
		t.Fatalf("workers %d", bc.Sim.Workers)
	}
}

func TestDefaults(t *testing.T) {
	bc, err := Load(write(t, "sim:\n  rounds: 1\n"), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if bc.Data.Artifacts != "./library" || bc.Sim.Optimize == nil || bc.Server.HTTP == nil {
		t.Fatalf("defaults %+v", bc)
	}
}
