package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"web/arkmap/cluster"
	"web/arkmap/runner"
	"web/arkmap/viewport"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RunnerConfig struct {
	// Addr of a remote runner. Empty runs views in process.
	Addr          string        `mapstructure:"addr"`
	Port          int           `mapstructure:"port"`
	CatalogDir    string        `mapstructure:"catalog_dir"`
	MaxViews      int           `mapstructure:"max_views"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type EngineConfig struct {
	BaseRadius    float64 `mapstructure:"base_radius"`
	ZoomThreshold float64 `mapstructure:"zoom_threshold"`
	MinNeighbors  int     `mapstructure:"min_neighbors"`
	GridThreshold int     `mapstructure:"grid_threshold"`
}

type ViewportConfig struct {
	MinZoom    float64 `mapstructure:"min_zoom"`
	MaxZoom    float64 `mapstructure:"max_zoom"`
	StepDelta  float64 `mapstructure:"step_delta"`
	WheelDelta float64 `mapstructure:"wheel_delta"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional config.yaml and
// ARKMAP_ environment variables, in increasing priority.
func Load() (*Config, error) {
	v := viper.New()

	engine := cluster.DefaultOptions()
	vp := viewport.DefaultOptions()
	rn := runner.DefaultOptions()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("runner.addr", "")
	v.SetDefault("runner.port", 50051)
	v.SetDefault("runner.catalog_dir", rn.CatalogDir)
	v.SetDefault("runner.max_views", rn.MaxViews)
	v.SetDefault("runner.idle_timeout", rn.IdleTimeout)
	v.SetDefault("runner.sweep_interval", rn.SweepInterval)
	v.SetDefault("engine.base_radius", engine.BaseRadius)
	v.SetDefault("engine.zoom_threshold", engine.ZoomThreshold)
	v.SetDefault("engine.min_neighbors", engine.MinNeighbors)
	v.SetDefault("engine.grid_threshold", engine.GridThreshold)
	v.SetDefault("viewport.min_zoom", vp.MinZoom)
	v.SetDefault("viewport.max_zoom", vp.MaxZoom)
	v.SetDefault("viewport.step_delta", vp.StepDelta)
	v.SetDefault("viewport.wheel_delta", vp.WheelDelta)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Environment variables: ARKMAP_RUNNER_MAX_VIEWS → runner.max_views
	v.SetEnvPrefix("ARKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration values are sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Runner.Port <= 0 || c.Runner.Port > 65535 {
		errs = append(errs, fmt.Sprintf("runner.port must be 1-65535, got %d", c.Runner.Port))
	}
	if c.Runner.CatalogDir == "" {
		errs = append(errs, "runner.catalog_dir is required")
	}
	if c.Runner.MaxViews <= 0 {
		errs = append(errs, "runner.max_views must be positive")
	}
	if c.Runner.IdleTimeout < 0 {
		errs = append(errs, "runner.idle_timeout must not be negative")
	}
	if c.Runner.SweepInterval <= 0 {
		errs = append(errs, "runner.sweep_interval must be positive")
	}
	if c.Engine.BaseRadius <= 0 {
		errs = append(errs, "engine.base_radius must be positive")
	}
	if c.Engine.ZoomThreshold <= 0 {
		errs = append(errs, "engine.zoom_threshold must be positive")
	}
	if c.Engine.MinNeighbors <= 0 {
		errs = append(errs, "engine.min_neighbors must be positive")
	}
	if c.Viewport.MinZoom <= 0 {
		errs = append(errs, "viewport.min_zoom must be positive")
	}
	if c.Viewport.MaxZoom < c.Viewport.MinZoom {
		errs = append(errs, fmt.Sprintf("viewport.max_zoom (%v) must not be below viewport.min_zoom (%v)",
			c.Viewport.MaxZoom, c.Viewport.MinZoom))
	}
	if c.Viewport.StepDelta <= 0 || c.Viewport.WheelDelta <= 0 {
		errs = append(errs, "viewport.step_delta and viewport.wheel_delta must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) ClusterOptions() cluster.Options {
	return cluster.Options{
		BaseRadius:    c.Engine.BaseRadius,
		ZoomThreshold: c.Engine.ZoomThreshold,
		MinNeighbors:  c.Engine.MinNeighbors,
		GridThreshold: c.Engine.GridThreshold,
		Projection:    cluster.DefaultProjection,
	}
}

func (c *Config) ViewportOptions() viewport.Options {
	return viewport.Options{
		MinZoom:    c.Viewport.MinZoom,
		MaxZoom:    c.Viewport.MaxZoom,
		StepDelta:  c.Viewport.StepDelta,
		WheelDelta: c.Viewport.WheelDelta,
	}
}

func (c *Config) RunnerOptions() runner.Options {
	return runner.Options{
		CatalogDir:    c.Runner.CatalogDir,
		MaxViews:      c.Runner.MaxViews,
		IdleTimeout:   c.Runner.IdleTimeout,
		SweepInterval: c.Runner.SweepInterval,
		Engine:        c.ClusterOptions(),
		Viewport:      c.ViewportOptions(),
	}
}
