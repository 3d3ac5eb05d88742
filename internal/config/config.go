package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"roadsim/internal/logging"
)

type Config struct {
	Planner struct {
		Workers          int           `yaml:"workers" validate:"gte=1"`
		Mode             string        `yaml:"mode" validate:"oneof=path distance"`
		ProgressInterval time.Duration `yaml:"progress_interval" validate:"gte=0"`
	} `yaml:"planner"`

	Simulation struct {
		Seed            int64   `yaml:"seed"`
		Velocity        float64 `yaml:"velocity" validate:"gt=0"`        // meters per tick
		MaxStepCount    int     `yaml:"max_step_count" validate:"gte=1"` // ticks
		MaxAgentCount   int     `yaml:"max_agent_count" validate:"gte=0"`
		Workers         int     `yaml:"workers" validate:"gte=1"`
		RecordEvery     int     `yaml:"record_every" validate:"gte=0"` // 0 records the final tick only
		PathSampleCount int     `yaml:"path_sample_count" validate:"gte=0"`
	} `yaml:"simulation"`

	Storage struct {
		Driver   string `yaml:"driver" validate:"oneof=sqlite postgres"`
		DSN      string `yaml:"dsn" validate:"required"`
		Artifact string `yaml:"artifact" validate:"required"`
	} `yaml:"storage"`

	Server struct {
		Port           string        `yaml:"port" validate:"required"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		TickInterval   time.Duration `yaml:"tick_interval" validate:"gte=0"` // wall-clock pause between replayed ticks
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format" validate:"omitempty,oneof=text json"`
	} `yaml:"log"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`
}

var (
	Global Config
	once   sync.Once
)

// Default returns the configuration used when a key is missing from the file.
func Default() Config {
	var c Config
	c.Planner.Workers = 8
	c.Planner.Mode = "path"
	c.Planner.ProgressInterval = 2 * time.Second

	c.Simulation.Seed = 42
	c.Simulation.Velocity = 10.0
	c.Simulation.MaxStepCount = 60 * 60
	c.Simulation.MaxAgentCount = 10000
	c.Simulation.Workers = 8
	c.Simulation.PathSampleCount = 20000

	c.Storage.Driver = "sqlite"
	c.Storage.DSN = "roadsim.db"
	c.Storage.Artifact = "path.bin"

	c.Server.Port = ":8080"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.TickInterval = 100 * time.Millisecond

	c.Log.Level = "info"
	c.Log.Format = "text"

	c.Tracing.ServiceName = "roadsim"
	return c
}

// Parse decodes a YAML document on top of Default, applies environment
// overrides and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads filename into Global once. A missing file leaves the defaults in
// place.
func Load(filename string) error {
	var err error
	once.Do(func() {
		data, e := os.ReadFile(filename)
		if e != nil && !os.IsNotExist(e) {
			err = e
			return
		}
		Global, err = Parse(data)
	})
	return err
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ROADSIM_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("ROADSIM_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
}

// Logger builds the structured logger described by the log section.
func (c Config) Logger() logging.Logger {
	return logging.New(logging.Config{Level: c.Log.Level, Format: c.Log.Format})
}

func TimeTrack(log logging.Logger, start time.Time, name string) {
	elapsed := time.Since(start)
	log.Info(context.Background(), name+" finished", logging.String("took", elapsed.String()))
}
