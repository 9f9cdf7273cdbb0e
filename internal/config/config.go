// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"ringvis/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Core configuration constants that define the boundaries and defaults
// for the visualizer.
const (
	MinSampleLength = 64   // Smallest spectrum snapshot (bins).
	MaxSampleLength = 8192 // Largest spectrum snapshot (bins).

	MinSmoothingSpeed = 1.0
	MaxSmoothingSpeed = 30.0

	MinChangeInterval      = 100 * time.Millisecond
	MaxChangeInterval      = 10 * time.Second
	MinTransitionDuration  = 100 * time.Millisecond
	MaxTransitionDuration  = 5 * time.Second
	DefaultReferenceSource = 10 // Active sources at which the dynamic gain reaches its maximum.

	MinDeviceID = -1 // -1 represents system default device
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error
	Command   string          `yaml:"command,omitempty"`
	Frame     FrameConfig     `yaml:"frame"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Bars      BarsConfig      `yaml:"bars"`
	Color     ColorConfig     `yaml:"color"`
	Keys      KeysConfig      `yaml:"keys"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	TUI       TUIConfig       `yaml:"tui"`
}

// FrameConfig controls the simulation tick.
type FrameConfig struct {
	TickRate float64 `yaml:"tick_rate"` // Ticks per second.
}

// SpectrumConfig holds the aggregator settings.
type SpectrumConfig struct {
	SampleLength     int           `yaml:"sample_length"`    // Bins per snapshot, power of two in [64, 8192].
	Window           string        `yaml:"window"`           // Window function name, e.g. "BlackmanHarris".
	Channel          int           `yaml:"channel"`          // Source channel analyzed.
	BaseGain         float64       `yaml:"base_gain"`        // Applied to every bin after averaging.
	MinDynamicGain   float64       `yaml:"min_dynamic_gain"` // Gain with a single active source.
	MaxDynamicGain   float64       `yaml:"max_dynamic_gain"` // Gain at ReferenceSources active sources.
	ReferenceSources int           `yaml:"reference_sources"`
	ClampDynamicGain bool          `yaml:"clamp_dynamic_gain"` // Stop the gain at MaxDynamicGain past the reference count.
	DiscoveryDelay   time.Duration `yaml:"discovery_delay"`    // Settle delay before sources are resolved.
	OnsetThreshold   float64       `yaml:"onset_threshold"`    // Spectrum RMS below which no beat is reported.
	OnsetRatio       float64       `yaml:"onset_ratio"`        // Tick-to-tick energy rise that counts as a beat.
	OnsetCooldown    time.Duration `yaml:"onset_cooldown"`
}

// BarsConfig holds the bar ring settings.
type BarsConfig struct {
	Count          int     `yaml:"count"` // 0 means one bar per bin.
	SmoothingSpeed float64 `yaml:"smoothing_speed"`
}

// ColorConfig holds the colour cycle settings.
type ColorConfig struct {
	Enabled            bool          `yaml:"enabled"`
	ChangeInterval     time.Duration `yaml:"change_interval"`
	TransitionDuration time.Duration `yaml:"transition_duration"`
	Property           string        `yaml:"property"` // Name of the HDR colour attribute on the surface.
	Seed               uint64        `yaml:"seed"`     // 0 seeds from the clock.
}

// KeysConfig holds the piano voice settings.
type KeysConfig struct {
	ClipDir     string        `yaml:"clip_dir"`     // Directory holding one WAV per note.
	ClipPattern string        `yaml:"clip_pattern"` // fmt template receiving the MIDI note number.
	BaseVolume  float64       `yaml:"base_volume"`
	FadeOut     time.Duration `yaml:"fade_out"`
	TapHold     time.Duration `yaml:"tap_hold"` // How long a TUI key tap holds the key down.
}

// AudioConfig holds settings related to audio input/output and processing.
type AudioConfig struct {
	InputEnabled    bool    `yaml:"input_enabled"`     // Capture a live input as an extra sound source.
	OutputEnabled   bool    `yaml:"output_enabled"`    // Play the key voices through the output device.
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for audio output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback buffer.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`
	OutputChannels  int     `yaml:"output_channels"`
	GateThreshold   float64 `yaml:"gate_threshold"` // 0-1, input counts as playing above this peak level.
}

// RecordingConfig holds settings related to recording the output mix.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Empty generates recording-DD-MM-YYYY-HHMMSS.wav.
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig holds settings related to sending frames over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// TUIConfig holds settings for the terminal renderer.
type TUIConfig struct {
	Enabled bool `yaml:"enabled"`
	Columns int  `yaml:"columns"` // Bars drawn; the ring is resampled to fit.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Frame: FrameConfig{
			TickRate: 60,
		},
		Spectrum: SpectrumConfig{
			SampleLength:     512,
			Window:           "BlackmanHarris",
			Channel:          0,
			BaseGain:         1,
			MinDynamicGain:   1,
			MaxDynamicGain:   2,
			ReferenceSources: DefaultReferenceSource,
			ClampDynamicGain: true,
			DiscoveryDelay:   time.Second,
			OnsetThreshold:   0.01,
			OnsetRatio:       1.5,
			OnsetCooldown:    150 * time.Millisecond,
		},
		Bars: BarsConfig{
			Count:          0,
			SmoothingSpeed: 15,
		},
		Color: ColorConfig{
			Enabled:            true,
			ChangeInterval:     3 * time.Second,
			TransitionDuration: time.Second,
			Property:           "_EmissionColor",
		},
		Keys: KeysConfig{
			ClipDir:     "./clips",
			ClipPattern: "German Concert D %03d 083.wav",
			BaseVolume:  0.5,
			FadeOut:     500 * time.Millisecond,
			TapHold:     400 * time.Millisecond,
		},
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			OutputDevice:    MinDeviceID,
			SampleRate:      44100,
			FramesPerBuffer: 512,
			InputChannels:   1,
			OutputChannels:  2,
			GateThreshold:   0.001,
		},
		Recording: RecordingConfig{
			BitDepth: 16,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: ":8080",
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  16 * time.Millisecond,
		},
		TUI: TUIConfig{
			Enabled: true,
			Columns: 64,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("ringvis.yaml", "config.yaml"). If no file is found, it
// uses built-in defaults. After loading it applies environment variable overrides and
// validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"ringvis.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every bound the pipeline relies on. The colour cycle hold time is
// ChangeInterval - TransitionDuration, so an interval shorter than the transition is
// rejected rather than clamped.
func (c *Config) Validate() error {
	s := c.Spectrum
	if s.SampleLength < MinSampleLength || s.SampleLength > MaxSampleLength || !bitint.IsPowerOfTwo(s.SampleLength) {
		return fmt.Errorf("%w: spectrum.sample_length %d must be a power of two in [%d, %d] (nearest: %d)",
			ErrInvalid, s.SampleLength, MinSampleLength, MaxSampleLength, bitint.NextPowerOfTwo(s.SampleLength))
	}
	if s.Channel < 0 {
		return fmt.Errorf("%w: spectrum.channel must not be negative", ErrInvalid)
	}
	if s.BaseGain < 0 || s.MinDynamicGain < 0 || s.MaxDynamicGain < 0 {
		return fmt.Errorf("%w: spectrum gains must not be negative", ErrInvalid)
	}
	if s.ReferenceSources <= 0 {
		return fmt.Errorf("%w: spectrum.reference_sources must be positive", ErrInvalid)
	}
	if s.OnsetThreshold < 0 || s.OnsetRatio < 1 || s.OnsetCooldown < 0 {
		return fmt.Errorf("%w: spectrum onset settings need threshold >= 0, ratio >= 1, cooldown >= 0", ErrInvalid)
	}
	if s.DiscoveryDelay < 0 {
		return fmt.Errorf("%w: spectrum.discovery_delay must not be negative", ErrInvalid)
	}

	if c.Bars.SmoothingSpeed < MinSmoothingSpeed || c.Bars.SmoothingSpeed > MaxSmoothingSpeed {
		return fmt.Errorf("%w: bars.smoothing_speed %.2f outside [%.0f, %.0f]",
			ErrInvalid, c.Bars.SmoothingSpeed, MinSmoothingSpeed, MaxSmoothingSpeed)
	}
	if c.Bars.Count < 0 {
		return fmt.Errorf("%w: bars.count must not be negative", ErrInvalid)
	}

	col := c.Color
	if col.ChangeInterval < MinChangeInterval || col.ChangeInterval > MaxChangeInterval {
		return fmt.Errorf("%w: color.change_interval %s outside [%s, %s]",
			ErrInvalid, col.ChangeInterval, MinChangeInterval, MaxChangeInterval)
	}
	if col.TransitionDuration < MinTransitionDuration || col.TransitionDuration > MaxTransitionDuration {
		return fmt.Errorf("%w: color.transition_duration %s outside [%s, %s]",
			ErrInvalid, col.TransitionDuration, MinTransitionDuration, MaxTransitionDuration)
	}
	if col.ChangeInterval < col.TransitionDuration {
		return fmt.Errorf("%w: color.change_interval %s shorter than color.transition_duration %s",
			ErrInvalid, col.ChangeInterval, col.TransitionDuration)
	}
	if col.Property == "" {
		return fmt.Errorf("%w: color.property must be set", ErrInvalid)
	}

	if c.Keys.BaseVolume < 0 || c.Keys.BaseVolume > 1 {
		return fmt.Errorf("%w: keys.base_volume must be in [0, 1]", ErrInvalid)
	}
	if c.Keys.FadeOut < 0 || c.Keys.TapHold < 0 {
		return fmt.Errorf("%w: keys durations must not be negative", ErrInvalid)
	}

	if c.Frame.TickRate <= 0 {
		return fmt.Errorf("%w: frame.tick_rate must be positive", ErrInvalid)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: audio.sample_rate must be positive", ErrInvalid)
	}
	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio device IDs must be >= %d", ErrInvalid, MinDeviceID)
	}

	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalid)
	}
	return nil
}

// TickInterval is the fixed frame duration derived from Frame.TickRate.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Frame.TickRate)
}

// BarCount resolves Bars.Count, where 0 means one bar per spectrum bin.
func (c *Config) BarCount() int {
	if c.Bars.Count == 0 {
		return c.Spectrum.SampleLength
	}
	return c.Bars.Count
}

// applyEnvOverrides lets RINGVIS_* variables win over file and default values.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("RINGVIS_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("RINGVIS_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("RINGVIS_SAMPLE_LENGTH"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Spectrum.SampleLength = n
		}
	}
	if val, ok := os.LookupEnv("RINGVIS_CLIP_DIR"); ok {
		c.Keys.ClipDir = val
	}

	// RINGVIS_UDP_* are specific to the transport layer.
	if val, ok := os.LookupEnv("RINGVIS_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("RINGVIS_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("RINGVIS_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
	if val, ok := os.LookupEnv("RINGVIS_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}
}
