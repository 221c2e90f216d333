package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the whole configuration file.
type Bootstrap struct {
	Server *Server `json:"server" envPrefix:"SERVER_"`
	Data   *Data   `json:"data" envPrefix:"DATA_"`
	Sim    *Sim    `json:"sim" envPrefix:"SIM_"`
}

type Server struct {
	HTTP *Server_HTTP `json:"http" envPrefix:"HTTP_"`
}

type Server_HTTP struct {
	Network string   `json:"network" env:"NETWORK"`
	Addr    string   `json:"addr" env:"ADDR"`
	Timeout Duration `json:"timeout"`
}

type Data struct {
	Artifacts string         `json:"artifacts" env:"ARTIFACTS"` // output directory, one sub directory per run
	Database  *Data_Database `json:"database" envPrefix:"DATABASE_"`
	Redis     *Data_Redis    `json:"redis" envPrefix:"REDIS_"`
	Rabbitmq  *Data_Rabbitmq `json:"rabbitmq" envPrefix:"RABBITMQ_"`
}

// Data_Database selects the run store. Driver is mysql, pgx or sqlite; empty disables it.
type Data_Database struct {
	Driver  string `json:"driver" env:"DRIVER"`
	Source  string `json:"source" env:"SOURCE"`
	ShowSQL bool   `json:"show_sql" env:"SHOW_SQL"`
}

type Data_Redis struct {
	Addr   string `json:"addr" env:"ADDR"`
	Prefix string `json:"prefix" env:"PREFIX"`
}

type Data_Rabbitmq struct {
	Host       string `json:"host" env:"HOST"`
	Port       int    `json:"port" env:"PORT"`
	Username   string `json:"username" env:"USERNAME"`
	Password   string `json:"password" env:"PASSWORD"`
	Vhost      string `json:"vhost" env:"VHOST"`
	Exchange   string `json:"exchange" env:"EXCHANGE"`
	RoutingKey string `json:"routing_key" env:"ROUTING_KEY"`
}

// Sim is the offline simulation job.
type Sim struct {
	Game        string    `json:"game" env:"GAME"`   // game definition, JSON
	Modes       string    `json:"modes" env:"MODES"` // weighting profiles, YAML
	Only        []string  `json:"only" env:"ONLY"`   // mode names, empty means all
	Rounds      int       `json:"rounds" env:"ROUNDS"`
	Workers     int       `json:"workers" env:"WORKERS"`
	BatchSize   int       `json:"batch_size" env:"BATCH_SIZE"`
	MaxAttempts int       `json:"max_attempts" env:"MAX_ATTEMPTS"`
	Compression bool      `json:"compression" env:"COMPRESSION"`
	LogLevel    string    `json:"log_level" env:"LOG_LEVEL"`
	Optimize    *Optimize `json:"optimize" envPrefix:"OPTIMIZE_"`
}

type Optimize struct {
	Enabled       bool    `json:"enabled" env:"ENABLED"`
	HitRate       float64 `json:"hit_rate" env:"HIT_RATE"`
	MaxStdDev     float64 `json:"max_std_dev" env:"MAX_STD_DEV"`
	Tolerance     float64 `json:"tolerance" env:"TOLERANCE"`
	MaxIterations int     `json:"max_iterations" env:"MAX_ITERATIONS"`
	Damping       float64 `json:"damping" env:"DAMPING"`
	Rounds        int     `json:"rounds" env:"ROUNDS"` // rounds per iteration, 0 means Sim.Rounds
}

// Duration reads "1.5s" style strings or a number of seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		d.Duration = v
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration %s: %w", b, err)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// AsDuration mirrors the protobuf duration accessor.
func (d Duration) AsDuration() time.Duration { return d.Duration }
