package profile

import (
	"bytes"
	"fmt"
	"os"

	"reelsim/internal/game"
	"reelsim/internal/simerr"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a weighting configuration.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weighting profile: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a weighting configuration, rejecting unknown fields.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, simerr.Configuration("decode weighting profile: %v", err)
	}
	if len(cfg.Modes) == 0 {
		return nil, simerr.Configuration("weighting profile for %q declares no modes", cfg.Game)
	}
	return &cfg, nil
}

// Compile builds every mode of the configuration against g.
func (c *Config) Compile(g *game.Game) ([]*Profile, error) {
	if c.Game != "" && c.Game != g.ID {
		return nil, simerr.Configuration("weighting profile targets game %q, loaded %q", c.Game, g.ID)
	}
	out := make([]*Profile, 0, len(c.Modes))
	for _, m := range c.Modes {
		p, err := Compile(g, m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Mode returns the file form of a mode by name.
func (c *Config) Mode(name string) (*Mode, bool) {
	for _, m := range c.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Marshal renders the configuration with two-space indentation.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile saves the configuration, typically after tuning.
func (c *Config) WriteFile(path string) error {
	raw, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encode weighting profile: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
