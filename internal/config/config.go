// Package config loads engine configuration through viper (defaults,
// config file, environment; there is no command-line flag layer) and
// derives the compile-time-sized
// Limits that bound the StateSnapshot and Graph allocations.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the recognized option set from spec §6.5.
type Config struct {
	SampleRate            int `mapstructure:"sample_rate"`
	MaxBlock              int `mapstructure:"max_block"`
	Channels              int `mapstructure:"channels"`
	TrackCount            int `mapstructure:"track_count"`
	SceneCount            int `mapstructure:"scene_count"`
	MaxFxSlots            int `mapstructure:"max_fx_slots"`
	MaxNotesPerClip       int `mapstructure:"max_notes_per_clip"`
	MaxAutomationLanes    int `mapstructure:"max_automation_lanes"`
	MaxAutomationPoints   int `mapstructure:"max_automation_points"`
	QuantizeIndex         int `mapstructure:"quantize_index"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("max_block", 128)
	v.SetDefault("channels", 2)
	v.SetDefault("track_count", 8)
	v.SetDefault("scene_count", 8)
	v.SetDefault("max_fx_slots", 4)
	v.SetDefault("max_notes_per_clip", 256)
	v.SetDefault("max_automation_lanes", 8)
	v.SetDefault("max_automation_points", 64)
	v.SetDefault("quantize_index", 2) // one beat
}

// Load reads configuration from (in priority order) environment variables
// prefixed LAUNCHCORE_, an optional config file at path, and defaults.
// An empty path skips the config-file layer.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("launchcore")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the option set for internally consistent values.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.MaxBlock <= 0 {
		return fmt.Errorf("config: max_block must be positive, got %d", c.MaxBlock)
	}
	if c.Channels != 2 {
		return fmt.Errorf("config: channels is fixed at 2, got %d", c.Channels)
	}
	if c.TrackCount <= 0 {
		return fmt.Errorf("config: track_count must be positive, got %d", c.TrackCount)
	}
	if c.SceneCount <= 0 {
		return fmt.Errorf("config: scene_count must be positive, got %d", c.SceneCount)
	}
	if c.MaxFxSlots < 0 {
		return fmt.Errorf("config: max_fx_slots must not be negative, got %d", c.MaxFxSlots)
	}
	return nil
}

// Limits derives the fixed-size allocation caps used by the snapshot and
// graph packages from this configuration.
func (c *Config) Limits() Limits {
	return Limits{
		TrackCount:          c.TrackCount,
		SceneCount:          c.SceneCount,
		MaxFxSlots:          c.MaxFxSlots,
		MaxNotesPerClip:     c.MaxNotesPerClip,
		MaxAutomationLanes:  c.MaxAutomationLanes,
		MaxAutomationPoints: c.MaxAutomationPoints,
		MaxBlock:            c.MaxBlock,
	}
}

// Limits are the compile-time-ish caps spec.md names as fixed constants,
// here resolved from Config at engine-build time.
type Limits struct {
	TrackCount          int
	SceneCount          int
	MaxFxSlots          int
	MaxNotesPerClip     int
	MaxAutomationLanes  int
	MaxAutomationPoints int
	MaxBlock            int
}

// DefaultEventCapacity bounds the number of events a single node's event
// port can hold for one block; overflow increments a saturating counter.
const DefaultEventCapacity = 256
