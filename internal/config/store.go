// Package config implements the configuration store (C11): typed sections
// with live reload, validation, and atomic swap, backed by a settings.ini
// file read through viper (grounded in other_examples/…cctv-agent's go.mod,
// which requires spf13/viper directly).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings is the full configuration snapshot (spec.md §4.11). It is
// treated as an immutable value: Store.Current returns a pointer to one
// snapshot, and readers never mutate it.
type Settings struct {
	Debug bool

	Camera struct {
		DefaultCameraType  string // industrial | webcam
		AutoReconnect      bool
		ConnectionTimeoutS int
	}

	Sensor struct {
		SimulationMode bool
		BufferDuration int // seconds
		BufferFPS      int
	}

	UI struct {
		PollingIntervalMS     int
		NotificationTimeoutMS int
	}

	Logging struct {
		LogDirectory   string
		LogLevel       string // DEBUG|INFO|WARN|ERROR
		RotationTime   string // HH:MM
		RetentionDays  int
		MaxFileSizeMB  int
		ConsoleLogging bool
	}

	Streaming struct {
		Camera struct {
			FrameRate int
			Quality   int
		}
		SSE struct {
			HeartbeatSec int
		}
		File struct {
			ChunkBytes int
		}
		Data struct {
			ImageCacheDir string
			InspectionDir string
		}
		ErrorHandling struct {
			SlowClientTimeoutMS int
		}
		Monitoring struct {
			IntervalSec int
		}
	}
}

// Store holds the live configuration as a copy-on-write atomic pointer:
// readers never lock (spec.md §5).
type Store struct {
	v       *viper.Viper
	current atomic.Pointer[Settings]
	path    string
}

func defaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("camera.default_camera_type", "webcam")
	v.SetDefault("camera.auto_reconnect", true)
	v.SetDefault("camera.connection_timeout", 10)
	v.SetDefault("sensor.simulation_mode", false)
	v.SetDefault("sensor.buffer_duration", 30)
	v.SetDefault("sensor.buffer_fps", 10)
	v.SetDefault("ui.polling_interval", 500)
	v.SetDefault("ui.notification_timeout", 5000)
	v.SetDefault("logging.log_directory", "./log")
	v.SetDefault("logging.log_level", "INFO")
	v.SetDefault("logging.rotation_time", "00:00")
	v.SetDefault("logging.retention_days", 14)
	v.SetDefault("logging.max_file_size_mb", 100)
	v.SetDefault("logging.console_logging", true)
	v.SetDefault("camera_stream.frame_rate", 10)
	v.SetDefault("camera_stream.quality", 80)
	v.SetDefault("sse.heartbeat_sec", 15)
	v.SetDefault("file.chunk_bytes", 65536)
	v.SetDefault("data.image_cache_dir", "data/image_cache")
	v.SetDefault("data.inspection_dir", "data/images/inspection")
	v.SetDefault("error_handling.slow_client_timeout_ms", 2000)
	v.SetDefault("monitoring.interval_sec", 5)
}

// Load reads settings.ini at path (creating the viper instance) and
// performs the initial validate+swap.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		// Missing file: proceed on defaults, matching a fresh install.
	}

	s := &Store{v: v, path: path}
	settings := decode(v)
	if violations := Validate(settings); len(violations) > 0 {
		return nil, fmt.Errorf("config: invalid defaults: %s", strings.Join(violations, "; "))
	}
	s.current.Store(settings)
	return s, nil
}

// Current returns the active snapshot. Safe for concurrent use; never
// blocks.
func (s *Store) Current() *Settings {
	return s.current.Load()
}

// Defaults returns a fresh Settings built from the default values alone,
// ignoring any overrides read from settings.ini or prior updates. Backs
// POST /api/streaming/config/reset (spec.md §6).
func Defaults() *Settings {
	v := viper.New()
	defaults(v)
	return decode(v)
}

// Update validates a proposed full settings object and, if valid,
// atomically swaps it in. Invalid updates return the violation list and
// never touch state (spec.md §4.11).
func (s *Store) Update(proposed *Settings) []string {
	if violations := Validate(proposed); len(violations) > 0 {
		return violations
	}
	s.current.Store(proposed)
	applyToViper(s.v, proposed)
	return nil
}

// Reload re-reads the underlying settings.ini and performs the same
// validate-swap Update does.
func (s *Store) Reload() []string {
	if err := s.v.ReadInConfig(); err != nil {
		return []string{fmt.Sprintf("reload: %v", err)}
	}
	proposed := decode(s.v)
	return s.Update(proposed)
}

// WatchFile arranges for fsnotify-driven reloads whenever settings.ini
// changes on disk (viper's own mechanism, grounded in the same
// cctv-agent go.mod that requires fsnotify transitively).
func (s *Store) WatchFile(onChange func([]string)) {
	s.v.OnConfigChange(func(_ fsnotify.Event) {
		violations := s.Reload()
		if onChange != nil {
			onChange(violations)
		}
	})
	s.v.WatchConfig()
}

func decode(v *viper.Viper) *Settings {
	s := &Settings{}
	s.Debug = v.GetBool("debug")
	s.Camera.DefaultCameraType = v.GetString("camera.default_camera_type")
	s.Camera.AutoReconnect = v.GetBool("camera.auto_reconnect")
	s.Camera.ConnectionTimeoutS = v.GetInt("camera.connection_timeout")
	s.Sensor.SimulationMode = v.GetBool("sensor.simulation_mode")
	s.Sensor.BufferDuration = v.GetInt("sensor.buffer_duration")
	s.Sensor.BufferFPS = v.GetInt("sensor.buffer_fps")
	s.UI.PollingIntervalMS = v.GetInt("ui.polling_interval")
	s.UI.NotificationTimeoutMS = v.GetInt("ui.notification_timeout")
	s.Logging.LogDirectory = v.GetString("logging.log_directory")
	s.Logging.LogLevel = v.GetString("logging.log_level")
	s.Logging.RotationTime = v.GetString("logging.rotation_time")
	s.Logging.RetentionDays = v.GetInt("logging.retention_days")
	s.Logging.MaxFileSizeMB = v.GetInt("logging.max_file_size_mb")
	s.Logging.ConsoleLogging = v.GetBool("logging.console_logging")
	s.Streaming.Camera.FrameRate = v.GetInt("camera_stream.frame_rate")
	s.Streaming.Camera.Quality = v.GetInt("camera_stream.quality")
	s.Streaming.SSE.HeartbeatSec = v.GetInt("sse.heartbeat_sec")
	s.Streaming.File.ChunkBytes = v.GetInt("file.chunk_bytes")
	s.Streaming.Data.ImageCacheDir = v.GetString("data.image_cache_dir")
	s.Streaming.Data.InspectionDir = v.GetString("data.inspection_dir")
	s.Streaming.ErrorHandling.SlowClientTimeoutMS = v.GetInt("error_handling.slow_client_timeout_ms")
	s.Streaming.Monitoring.IntervalSec = v.GetInt("monitoring.interval_sec")
	return s
}

func applyToViper(v *viper.Viper, s *Settings) {
	v.Set("debug", s.Debug)
	v.Set("camera.default_camera_type", s.Camera.DefaultCameraType)
	v.Set("camera.auto_reconnect", s.Camera.AutoReconnect)
	v.Set("camera.connection_timeout", s.Camera.ConnectionTimeoutS)
	v.Set("sensor.simulation_mode", s.Sensor.SimulationMode)
	v.Set("sensor.buffer_duration", s.Sensor.BufferDuration)
	v.Set("sensor.buffer_fps", s.Sensor.BufferFPS)
	v.Set("ui.polling_interval", s.UI.PollingIntervalMS)
	v.Set("ui.notification_timeout", s.UI.NotificationTimeoutMS)
	v.Set("logging.log_directory", s.Logging.LogDirectory)
	v.Set("logging.log_level", s.Logging.LogLevel)
	v.Set("logging.rotation_time", s.Logging.RotationTime)
	v.Set("logging.retention_days", s.Logging.RetentionDays)
	v.Set("logging.max_file_size_mb", s.Logging.MaxFileSizeMB)
	v.Set("logging.console_logging", s.Logging.ConsoleLogging)
	v.Set("camera_stream.frame_rate", s.Streaming.Camera.FrameRate)
	v.Set("camera_stream.quality", s.Streaming.Camera.Quality)
	v.Set("sse.heartbeat_sec", s.Streaming.SSE.HeartbeatSec)
	v.Set("file.chunk_bytes", s.Streaming.File.ChunkBytes)
	v.Set("data.image_cache_dir", s.Streaming.Data.ImageCacheDir)
	v.Set("data.inspection_dir", s.Streaming.Data.InspectionDir)
	v.Set("error_handling.slow_client_timeout_ms", s.Streaming.ErrorHandling.SlowClientTimeoutMS)
	v.Set("monitoring.interval_sec", s.Streaming.Monitoring.IntervalSec)
}
