// msgboard/handlers/render.go

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/feeds"
)

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"error":"Failed to marshal JSON response"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string, app App) {
	respondJSON(w, status, map[string]string{"error": msg}, app)
}

// respondNotFound is used for missing items and for items the viewer may
// not read, so the two cannot be told apart.
func respondNotFound(w http.ResponseWriter, app App) {
	respondError(w, http.StatusNotFound, "Not found.", app)
}

// renderFeed writes feed as RSS or Atom. It reports false for unknown kinds.
func renderFeed(w http.ResponseWriter, feed *feeds.Feed, kind string, app App) bool {
	var (
		body        string
		err         error
		contentType string
	)
	switch kind {
	case "rss":
		body, err = feed.ToRss()
		contentType = "application/rss+xml; charset=utf-8"
	case "atom":
		body, err = feed.ToAtom()
		contentType = "application/atom+xml; charset=utf-8"
	default:
		return false
	}
	if err != nil {
		app.Logger().Error("Failed to render feed", "kind", kind, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to render feed.", app)
		return true
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write([]byte(body)); err != nil {
		app.Logger().Error("Failed to write feed", "error", err)
	}
	return true
}
