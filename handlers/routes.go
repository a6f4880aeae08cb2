package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the media and player endpoints on r. A nil player
// leaves out the player page and its event sink.
func RegisterRoutes(r *mux.Router, media *MediaHandler, player *PlayerHandler) {
	r.Handle("/media/{mediaName}", media).
		Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	if player != nil {
		r.HandleFunc("/video", player.Video).Methods(http.MethodGet)
		r.HandleFunc("/video/events", NewPlayerEventsHandler(nil).Capture).Methods(http.MethodPost)
	}
}
