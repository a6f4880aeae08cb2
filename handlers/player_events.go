package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mediastream/utils"
)

const (
	maxPlayerEventBody = 64 << 10
	maxPlayerEvents    = 100
)

// playerEvent is one media element event reported by the player page.
type playerEvent struct {
	Type        string  `json:"type"` // error, stalled, waiting, seeking
	Message     string  `json:"message"`
	CurrentTime float64 `json:"currentTime"`
	Timestamp   string  `json:"timestamp"`
}

type playerEventBatch struct {
	Media     string        `json:"media"`
	SessionID string        `json:"sessionId"`
	UserAgent string        `json:"userAgent"`
	Events    []playerEvent `json:"events"`
}

// PlayerEventsHandler records playback problems seen by browsers so they show
// up next to the range requests that caused them.
type PlayerEventsHandler struct {
	logger *slog.Logger
}

func NewPlayerEventsHandler(logger *slog.Logger) *PlayerEventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayerEventsHandler{logger: logger}
}

func (h *PlayerEventsHandler) Capture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var batch playerEventBatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPlayerEventBody)).Decode(&batch); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	events := batch.Events
	if len(events) > maxPlayerEvents {
		events = events[:maxPlayerEvents]
	}

	logged := 0
	for _, ev := range events {
		kind := strings.ToLower(strings.TrimSpace(ev.Type))
		if kind == "" {
			continue
		}
		ts := strings.TrimSpace(ev.Timestamp)
		if ts == "" {
			ts = time.Now().UTC().Format(time.RFC3339)
		}

		level := slog.LevelInfo
		if kind == "error" {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "player.event",
			"type", kind,
			"media", strings.TrimSpace(batch.Media),
			"session", strings.TrimSpace(batch.SessionID),
			"position", ev.CurrentTime,
			"message", strings.TrimSpace(ev.Message),
			"client_ts", ts,
			"user_agent", strings.TrimSpace(batch.UserAgent),
			"request_id", utils.RequestID(r.Context()),
		)
		logged++
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "logged": logged})
}
