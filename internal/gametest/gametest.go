// Package gametest loads the sample game shipped in configs/ for tests of other packages.
package gametest

import (
	"path/filepath"
	"runtime"
	"testing"

	"reelsim/internal/game"
	"reelsim/internal/profile"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Root is the repository root.
func Root() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

func GamePath() string  { return filepath.Join(Root(), "configs", "games", "sample_cluster.json") }
func ModesPath() string { return filepath.Join(Root(), "configs", "modes", "sample_cluster.yaml") }

// Cluster returns the sample cluster game.
func Cluster(t testing.TB) *game.Game {
	t.Helper()
	g, err := game.LoadFile(GamePath())
	if err != nil {
		t.Fatalf("load sample game: %v", err)
	}
	return g
}

// Modes returns the sample weighting configuration.
func Modes(t testing.TB) *profile.Config {
	t.Helper()
	cfg, err := profile.LoadFile(ModesPath())
	if err != nil {
		t.Fatalf("load sample modes: %v", err)
	}
	return cfg
}

// Profile compiles one sample mode.
func Profile(t testing.TB, g *game.Game, name string) *profile.Profile {
	t.Helper()
	cfg := Modes(t)
	m, ok := cfg.Mode(name)
	if !ok {
		t.Fatalf("sample modes have no %q", name)
	}
	p, err := profile.Compile(g, m)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return p
}

// Logger logs errors only, like the benchmark loggers.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.ErrorLevel))
}
