package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"STEMSYNC_PORT", "STEMSYNC_FFMPEG", "STEMSYNC_FFPROBE",
		"STEMSYNC_CLOCK_POLL_MS", "STEMSYNC_CLOCK_MAX_ATTEMPTS",
		"STEMSYNC_SCHEDULE_LEAD_MS", "STEMSYNC_MP3_BITRATE",
		"STEMSYNC_OPUS_BITRATE", "STEMSYNC_LISTENER_DEPTH",
		"STEMSYNC_LOG_LEVEL", "STEMSYNC_LOG_PATH",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want 'ffmpeg'", cfg.FFmpegPath)
	}
	if cfg.FFprobePath != "ffprobe" {
		t.Errorf("FFprobePath = %q, want 'ffprobe'", cfg.FFprobePath)
	}
	if cfg.ClockPollInterval != 10*time.Millisecond {
		t.Errorf("ClockPollInterval = %v, want 10ms", cfg.ClockPollInterval)
	}
	if cfg.ClockMaxAttempts != 30 {
		t.Errorf("ClockMaxAttempts = %d, want 30", cfg.ClockMaxAttempts)
	}
	if cfg.ScheduleLead != 40*time.Millisecond {
		t.Errorf("ScheduleLead = %v, want 40ms", cfg.ScheduleLead)
	}
	if cfg.MP3Bitrate != "192k" {
		t.Errorf("MP3Bitrate = %q, want '192k'", cfg.MP3Bitrate)
	}
	if cfg.OpusBitrate != 128000 {
		t.Errorf("OpusBitrate = %d, want 128000", cfg.OpusBitrate)
	}
	if cfg.ListenerDepth != 150 {
		t.Errorf("ListenerDepth = %d, want 150", cfg.ListenerDepth)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want 'info'", cfg.LogLevel)
	}
	if cfg.LogPath != "" {
		t.Errorf("LogPath = %q, want empty default", cfg.LogPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STEMSYNC_PORT", "3000")
	t.Setenv("STEMSYNC_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("STEMSYNC_CLOCK_POLL_MS", "5")
	t.Setenv("STEMSYNC_CLOCK_MAX_ATTEMPTS", "60")
	t.Setenv("STEMSYNC_SCHEDULE_LEAD_MS", "100")
	t.Setenv("STEMSYNC_MP3_BITRATE", "320k")
	t.Setenv("STEMSYNC_OPUS_BITRATE", "96000")
	t.Setenv("STEMSYNC_LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegPath = %q, want env override", cfg.FFmpegPath)
	}
	if cfg.ClockPollInterval != 5*time.Millisecond {
		t.Errorf("ClockPollInterval = %v, want 5ms", cfg.ClockPollInterval)
	}
	if cfg.ClockMaxAttempts != 60 {
		t.Errorf("ClockMaxAttempts = %d, want 60", cfg.ClockMaxAttempts)
	}
	if cfg.ScheduleLead != 100*time.Millisecond {
		t.Errorf("ScheduleLead = %v, want 100ms", cfg.ScheduleLead)
	}
	if cfg.MP3Bitrate != "320k" {
		t.Errorf("MP3Bitrate = %q, want '320k'", cfg.MP3Bitrate)
	}
	if cfg.OpusBitrate != 96000 {
		t.Errorf("OpusBitrate = %d, want 96000", cfg.OpusBitrate)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want 'debug'", cfg.LogLevel)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("STEMSYNC_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvStrEmpty(t *testing.T) {
	// Unset string should use the fallback
	os.Unsetenv("STEMSYNC_MP3_BITRATE")
	cfg := Load()
	if cfg.MP3Bitrate != "192k" {
		t.Errorf("Unset env should use fallback: got %q", cfg.MP3Bitrate)
	}
}
