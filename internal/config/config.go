package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// External tools
	FFmpegPath  string
	FFprobePath string

	// Playback engine
	ClockPollInterval time.Duration // delay between clock acquisition attempts
	ClockMaxAttempts  int           // acquisition attempts before best-effort start
	ScheduleLead      time.Duration // how far ahead of the clock a synchronized start is placed

	// Stream output
	MP3Bitrate    string // e.g. "192k"
	OpusBitrate   int    // bits per second for WebRTC listeners
	ListenerDepth int    // buffered frames per listener

	// Logging
	LogLevel string
	LogPath  string // empty = stdout only
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: envInt("STEMSYNC_PORT", 8080),

		FFmpegPath:  envStr("STEMSYNC_FFMPEG", "ffmpeg"),
		FFprobePath: envStr("STEMSYNC_FFPROBE", "ffprobe"),

		ClockPollInterval: time.Duration(envInt("STEMSYNC_CLOCK_POLL_MS", 10)) * time.Millisecond,
		ClockMaxAttempts:  envInt("STEMSYNC_CLOCK_MAX_ATTEMPTS", 30),
		ScheduleLead:      time.Duration(envInt("STEMSYNC_SCHEDULE_LEAD_MS", 40)) * time.Millisecond,

		MP3Bitrate:    envStr("STEMSYNC_MP3_BITRATE", "192k"),
		OpusBitrate:   envInt("STEMSYNC_OPUS_BITRATE", 128000),
		ListenerDepth: envInt("STEMSYNC_LISTENER_DEPTH", 150),

		LogLevel: envStr("STEMSYNC_LOG_LEVEL", "info"),
		LogPath:  envStr("STEMSYNC_LOG_PATH", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
