package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"
)

//go:embed player_templates/*
var playerTemplates embed.FS

var playerTemplate = template.Must(template.ParseFS(playerTemplates, "player_templates/video.html"))

type playerPage struct {
	Title     string
	MediaURL  string
	EventsURL string
}

// PlayerHandler renders a minimal HTML5 player pointed at the media endpoint.
type PlayerHandler struct {
	defaultMedia string
}

func NewPlayerHandler(defaultMedia string) *PlayerHandler {
	return &PlayerHandler{defaultMedia: strings.TrimSpace(defaultMedia)}
}

// Video serves the player page. ?media=<name> overrides the configured default.
func (h *PlayerHandler) Video(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("media"))
	if name == "" {
		name = h.defaultMedia
	}
	if name == "" {
		http.Error(w, "no media configured", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	page := playerPage{
		Title:     name,
		MediaURL:  "/media/" + url.PathEscape(name),
		EventsURL: "/video/events",
	}
	if err := playerTemplate.Execute(&buf, page); err != nil {
		log.Printf("[player] render failed media=%q err=%v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
