// Package config loads and hot-reloads the companion daemon's TOML
// configuration: a Config struct of nested sections with a Default,
// a Load(path), and a Save(path, cfg).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable named in §5's configuration surface.
type Config struct {
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Inference InferenceConfig `toml:"inference"`
	Broadcast BroadcastConfig `toml:"broadcast"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Dataset   DatasetConfig   `toml:"dataset"`
	Hardware  HardwareConfig  `toml:"hardware"`
}

// PipelineConfig controls the 60Hz visualization loop.
type PipelineConfig struct {
	TargetFPS             int     `toml:"target_fps"`
	ParticleCount          int     `toml:"particle_count"`
	InterpolationAlpha     float64 `toml:"interpolation_alpha"`
	FeatureCacheTTLMS      int     `toml:"feature_cache_ttl_ms"`
	SlowFrameThresholdMS   int     `toml:"slow_frame_threshold_ms"`
}

// InferenceConfig controls the TPU inference engine.
type InferenceConfig struct {
	ModelPath     string `toml:"model_path"`
	FallbackMode  string `toml:"fallback_mode"`
	WarmupFrames  int    `toml:"warmup_frames"`
}

// BroadcastConfig controls the websocket sink.
type BroadcastConfig struct {
	Addr string `toml:"addr"`
}

// SupervisorConfig controls the heartbeat/restart supervisor.
type SupervisorConfig struct {
	HeartbeatPath    string `toml:"heartbeat_path"`
	HeartbeatTimeoutS int   `toml:"heartbeat_timeout_s"`
}

// TelemetryConfig controls metrics reporting.
type TelemetryConfig struct {
	Enabled             bool `toml:"enabled"`
	MetricsReportInterval int `toml:"metrics_report_interval_s"`
	PrometheusPort      int  `toml:"prometheus_port"`
}

// DatasetConfig controls optional sample logging for offline training.
type DatasetConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// HardwareConfig maps logical device roles to serial ports, the one
// piece of config a technician is expected to edit per physical board.
type HardwareConfig struct {
	SerialPortMapping map[string]string `toml:"serial_port_mapping"`
}

// Default returns the out-of-the-box configuration.
func Default() Config {
	home := auraHome()
	return Config{
		Pipeline: PipelineConfig{
			TargetFPS:           60,
			ParticleCount:       10000,
			InterpolationAlpha:  0.3,
			FeatureCacheTTLMS:   100,
			SlowFrameThresholdMS: 20,
		},
		Inference: InferenceConfig{
			ModelPath:    filepath.Join(home, "models", "current.tflite"),
			FallbackMode: "procedural",
			WarmupFrames: 5,
		},
		Broadcast: BroadcastConfig{
			Addr: ":8765",
		},
		Supervisor: SupervisorConfig{
			HeartbeatPath:     filepath.Join(home, "run", "heartbeat"),
			HeartbeatTimeoutS: 10,
		},
		Telemetry: TelemetryConfig{
			Enabled:               true,
			MetricsReportInterval: 5,
			PrometheusPort:        9100,
		},
		Dataset: DatasetConfig{
			Enabled: false,
			Path:    filepath.Join(home, "dataset.sqlite"),
		},
		Hardware: HardwareConfig{
			SerialPortMapping: map[string]string{
				"flipper": "/dev/ttyACM0",
			},
		},
	}
}

// Load reads config from path, falling back to Default() if the file
// does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func auraHome() string {
	if env := os.Getenv("AURA_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aura")
}

// Home exposes the resolved data directory for callers that need it
// without constructing a full Config (e.g. the CLI's default config path).
func Home() string {
	return auraHome()
}
