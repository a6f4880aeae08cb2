package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ServerSettings controls the HTTP listener.
type ServerSettings struct {
	Host                     string `json:"host"`
	Port                     int    `json:"port"`
	EnableH2C                bool   `json:"enableH2C"`
	ReadHeaderTimeoutSeconds int    `json:"readHeaderTimeoutSeconds"`
	IdleTimeoutSeconds       int    `json:"idleTimeoutSeconds"`
	ShutdownTimeoutSeconds   int    `json:"shutdownTimeoutSeconds"`
}

// MediaSettings describes where media files live.
type MediaSettings struct {
	Root         string `json:"root"`
	DefaultMedia string `json:"defaultMedia"`
	// ContentType is sent for every file, or "auto" to sniff it.
	ContentType        string `json:"contentType"`
	ContentDisposition bool   `json:"contentDisposition"`
	OpenAttempts       int    `json:"openAttempts"`
	OpenRetryDelayMs   int    `json:"openRetryDelayMs"`
}

type StreamingSettings struct {
	ChunkSize         int   `json:"chunkSize"`
	MaxBytesPerSecond int64 `json:"maxBytesPerSecond"`
}

type LogSettings struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
	Compress   bool   `json:"compress"`
}

// Settings is the full runtime configuration of the media server.
type Settings struct {
	Server    ServerSettings    `json:"server"`
	Media     MediaSettings     `json:"media"`
	Streaming StreamingSettings `json:"streaming"`
	Log       LogSettings       `json:"log"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host:                     "",
			Port:                     8080,
			ReadHeaderTimeoutSeconds: 10,
			IdleTimeoutSeconds:       120,
			ShutdownTimeoutSeconds:   15,
		},
		Media: MediaSettings{
			Root:             "./media",
			DefaultMedia:     "video.mp4",
			ContentType:      "video/mp4",
			OpenAttempts:     3,
			OpenRetryDelayMs: 50,
		},
		Streaming: StreamingSettings{
			ChunkSize: 64 * 1024,
		},
		Log: LogSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Address returns the host:port the server listens on.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Server.Host, strconv.Itoa(s.Server.Port))
}

func (s Settings) ReadHeaderTimeout() time.Duration {
	return time.Duration(s.Server.ReadHeaderTimeoutSeconds) * time.Second
}

func (s Settings) IdleTimeout() time.Duration {
	return time.Duration(s.Server.IdleTimeoutSeconds) * time.Second
}

func (s Settings) ShutdownTimeout() time.Duration {
	return time.Duration(s.Server.ShutdownTimeoutSeconds) * time.Second
}

func (s Settings) OpenRetryDelay() time.Duration {
	return time.Duration(s.Media.OpenRetryDelayMs) * time.Millisecond
}

// Validate reports every problem with the settings at once.
func (s Settings) Validate() error {
	var errs []error

	if s.Server.Port < 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", s.Server.Port))
	}
	if s.Server.ReadHeaderTimeoutSeconds < 0 || s.Server.IdleTimeoutSeconds < 0 || s.Server.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if strings.TrimSpace(s.Media.Root) == "" {
		errs = append(errs, errors.New("media.root is required"))
	}
	if strings.TrimSpace(s.Media.ContentType) == "" {
		errs = append(errs, errors.New("media.contentType is required"))
	}
	if s.Media.OpenAttempts < 0 || s.Media.OpenRetryDelayMs < 0 {
		errs = append(errs, errors.New("media open attempts and delay must not be negative"))
	}
	// Out-of-range chunk sizes are clamped by the streamer.
	if s.Streaming.ChunkSize < 0 {
		errs = append(errs, errors.New("streaming.chunkSize must not be negative"))
	}
	if s.Streaming.MaxBytesPerSecond < 0 {
		errs = append(errs, errors.New("streaming.maxBytesPerSecond must not be negative"))
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q not one of debug, info, warn, error", s.Log.Level))
	}
	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q not text or json", s.Log.Format))
	}

	return errors.Join(errs...)
}
