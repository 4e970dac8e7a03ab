package way_nav

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LiveConfig controls UDP input settings for tracked poses and marker decodes.
// PoseTimeout is how long the last pose is held after the feed goes quiet;
// zero holds it forever.
type LiveConfig struct {
	UDPAddr      string  `json:"udp_addr" mapstructure:"udp_addr"`
	ReadBuffer   int     `json:"read_buffer" mapstructure:"read_buffer"`
	CommandQueue int     `json:"command_queue" mapstructure:"command_queue"`
	PoseTimeout  float64 `json:"pose_timeout" mapstructure:"pose_timeout"`
}

// OutputConfig controls UDP output settings for turn cues.
type OutputConfig struct {
	UDPAddr string `json:"udp_addr" mapstructure:"udp_addr"`
}

// APIConfig controls the HTTP command surface.
type APIConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// LogConfig controls per-tick logging.
type LogConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// AppConfig aggregates all configuration sections.
type AppConfig struct {
	Hz       float64        `json:"hz" mapstructure:"hz"`
	Tracker  TrackerConfig  `json:"tracker" mapstructure:"tracker"`
	Clamp    ClampConfig    `json:"clamp" mapstructure:"clamp"`
	Turns    TurnConfig     `json:"turns" mapstructure:"turns"`
	Recenter RecenterConfig `json:"recenter" mapstructure:"recenter"`
	Path     PathConfig     `json:"path" mapstructure:"path"`
	Live     LiveConfig     `json:"live" mapstructure:"live"`
	Output   OutputConfig   `json:"output" mapstructure:"output"`
	Viz      VizConfig      `json:"viz" mapstructure:"viz"`
	API      APIConfig      `json:"api" mapstructure:"api"`
	Catalog  CatalogConfig  `json:"catalog" mapstructure:"catalog"`
	NavMesh  NavMeshConfig  `json:"navmesh" mapstructure:"navmesh"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

// envPrefix is the prefix for environment overrides, e.g. WAYFIND_LIVE_UDP_ADDR.
const envPrefix = "WAYFIND"

// DefaultConfig returns the stock tuning.
func DefaultConfig() AppConfig {
	return AppConfig{
		Hz:       30,
		Tracker:  TrackerConfig{AdvanceThreshold: 0.5},
		Clamp:    ClampConfig{Tolerance: 1.0},
		Turns:    TurnConfig{AngleThreshold: 30, AnnounceDistance: 2.0},
		Recenter: RecenterConfig{Duration: 0.3, SettleDelay: 0.5, ScanOnStart: true},
		Path:     PathConfig{GoalTolerance: 1.0},
		Live:     LiveConfig{ReadBuffer: 2048, CommandQueue: 64, PoseTimeout: 1.0},
		API:      APIConfig{Addr: "127.0.0.1:7071"},
		Viz:      VizConfig{Addr: "127.0.0.1:7070"},
		Catalog:  CatalogConfig{MaxRetries: 3, RetryInterval: 500 * time.Millisecond},
	}
}

// setDefaults mirrors DefaultConfig into viper keys.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("hz", d.Hz)
	v.SetDefault("tracker.advance_threshold", d.Tracker.AdvanceThreshold)
	v.SetDefault("clamp.tolerance", d.Clamp.Tolerance)
	v.SetDefault("turns.angle_threshold", d.Turns.AngleThreshold)
	v.SetDefault("turns.announce_distance", d.Turns.AnnounceDistance)
	v.SetDefault("recenter.duration", d.Recenter.Duration)
	v.SetDefault("recenter.settle_delay", d.Recenter.SettleDelay)
	v.SetDefault("recenter.scan_on_start", d.Recenter.ScanOnStart)
	v.SetDefault("recenter.default_frame.x", 0.0)
	v.SetDefault("recenter.default_frame.y", 0.0)
	v.SetDefault("recenter.default_frame.z", 0.0)
	v.SetDefault("recenter.default_frame.yaw", 0.0)
	v.SetDefault("path.goal_tolerance", d.Path.GoalTolerance)
	v.SetDefault("path.min_spacing", d.Path.MinSpacing)
	v.SetDefault("live.udp_addr", "")
	v.SetDefault("live.read_buffer", d.Live.ReadBuffer)
	v.SetDefault("live.command_queue", d.Live.CommandQueue)
	v.SetDefault("live.pose_timeout", d.Live.PoseTimeout)
	v.SetDefault("output.udp_addr", "")
	v.SetDefault("viz.enabled", false)
	v.SetDefault("viz.addr", d.Viz.Addr)
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", d.API.Addr)
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.sqlite_path", "")
	v.SetDefault("catalog.watch", false)
	v.SetDefault("catalog.max_retries", d.Catalog.MaxRetries)
	v.SetDefault("catalog.retry_interval", d.Catalog.RetryInterval)
	v.SetDefault("catalog.strict_floors", false)
	v.SetDefault("navmesh.path", "")
	v.SetDefault("log.enabled", false)
}

// LoadConfig reads the config file (JSON or YAML by extension) on top of the
// defaults and applies WAYFIND_* environment overrides. An empty path uses
// defaults and environment only.
func LoadConfig(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects settings the tick loop cannot run with.
func (c AppConfig) Validate() error {
	switch {
	case c.Hz <= 0:
		return fmt.Errorf("hz must be > 0")
	case c.Tracker.AdvanceThreshold <= 0:
		return fmt.Errorf("tracker.advance_threshold must be > 0")
	case c.Clamp.Tolerance <= 0:
		return fmt.Errorf("clamp.tolerance must be > 0")
	case c.Turns.AngleThreshold < 0 || c.Turns.AngleThreshold >= 180:
		return fmt.Errorf("turns.angle_threshold must be in [0, 180)")
	case c.Turns.AnnounceDistance <= 0:
		return fmt.Errorf("turns.announce_distance must be > 0")
	case c.Recenter.Duration < 0:
		return fmt.Errorf("recenter.duration must be >= 0")
	case c.Recenter.SettleDelay < 0:
		return fmt.Errorf("recenter.settle_delay must be >= 0")
	case c.Live.PoseTimeout < 0:
		return fmt.Errorf("live.pose_timeout must be >= 0")
	}
	return nil
}
