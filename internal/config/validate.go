package config

import "fmt"

// Validate checks a proposed Settings snapshot for internal consistency.
// Update and Reload both route through this before ever swapping state in,
// so an invalid proposal never reaches Current() (spec.md §4.11's
// "validate, then atomic swap" law).
func Validate(s *Settings) []string {
	var problems []string

	switch s.Camera.DefaultCameraType {
	case "industrial", "webcam":
	default:
		problems = append(problems, fmt.Sprintf("camera.default_camera_type: unknown value %q", s.Camera.DefaultCameraType))
	}
	if s.Camera.ConnectionTimeoutS <= 0 {
		problems = append(problems, "camera.connection_timeout must be > 0")
	}

	if s.Sensor.BufferDuration <= 0 {
		problems = append(problems, "sensor.buffer_duration must be > 0")
	}
	if s.Sensor.BufferFPS <= 0 {
		problems = append(problems, "sensor.buffer_fps must be > 0")
	}

	if s.UI.PollingIntervalMS <= 0 {
		problems = append(problems, "ui.polling_interval must be > 0")
	}

	switch s.Logging.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("logging.log_level: unknown value %q", s.Logging.LogLevel))
	}
	if s.Logging.RetentionDays <= 0 {
		problems = append(problems, "logging.retention_days must be > 0")
	}
	if s.Logging.MaxFileSizeMB <= 0 {
		problems = append(problems, "logging.max_file_size_mb must be > 0")
	}

	if s.Streaming.Camera.FrameRate <= 0 {
		problems = append(problems, "camera_stream.frame_rate must be > 0")
	}
	if s.Streaming.Camera.Quality < 10 || s.Streaming.Camera.Quality > 100 {
		problems = append(problems, "camera_stream.quality must be in [10,100]")
	}
	if s.Streaming.SSE.HeartbeatSec <= 0 {
		problems = append(problems, "sse.heartbeat_sec must be > 0")
	}
	if s.Streaming.File.ChunkBytes <= 0 {
		problems = append(problems, "file.chunk_bytes must be > 0")
	}
	if s.Streaming.Data.ImageCacheDir == "" {
		problems = append(problems, "data.image_cache_dir must not be empty")
	}
	if s.Streaming.Data.InspectionDir == "" {
		problems = append(problems, "data.inspection_dir must not be empty")
	}
	if s.Streaming.ErrorHandling.SlowClientTimeoutMS <= 0 {
		problems = append(problems, "error_handling.slow_client_timeout_ms must be > 0")
	}
	if s.Streaming.Monitoring.IntervalSec <= 0 {
		problems = append(problems, "monitoring.interval_sec must be > 0")
	}

	return problems
}
