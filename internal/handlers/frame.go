package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"picture-frame/internal/logging"
	"picture-frame/internal/scanner"
	"picture-frame/internal/store"
)

// NextImage picks the next image from the rotation and marks it shown.
// An optional album query parameter overrides the session filter for
// this request only.
func (h *Handlers) NextImage(w http.ResponseWriter, r *http.Request) {
	var explicit *string
	if album := r.URL.Query().Get("album"); album != "" {
		explicit = &album
	}

	result, err := h.engine.NextImage(r.Context(), explicit)
	if err != nil {
		if errors.Is(err, store.ErrNoImages) {
			writeJSONError(w, "no images available", http.StatusNotFound)
			return
		}
		logging.Error("Next image failed: %v", err)
		writeJSONError(w, "failed to pick next image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, result)
}

// ScanMedia triggers a synchronous catalog scan of all media roots.
// Returns 409 if a scan is already running.
func (h *Handlers) ScanMedia(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.Scan()
	if err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			writeJSONError(w, "scan already in progress", http.StatusConflict)
			return
		}
		logging.Error("Scan failed: %v", err)
		writeJSONError(w, "scan failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// GetAlbums lists every album currently in the catalog.
func (h *Handlers) GetAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.engine.Albums(r.Context())
	if err != nil {
		logging.Error("Listing albums failed: %v", err)
		writeJSONError(w, "failed to list albums", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"albums": albums,
		"count":  len(albums),
	})
}

type setAlbumRequest struct {
	Album string `json:"album"`
}

// SetAlbum sets the session album filter. An empty album clears the
// filter. The album is not validated against the catalog; a filter
// naming an unknown album simply yields no images until a scan finds
// matching files.
func (h *Handlers) SetAlbum(w http.ResponseWriter, r *http.Request) {
	var req setAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Album == "" {
		h.engine.SetAlbum(nil)
	} else {
		h.engine.SetAlbum(&req.Album)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"album": h.engine.CurrentAlbum(),
	})
}

// GetAlbum returns the current session album filter, or null when the
// rotation is unfiltered.
func (h *Handlers) GetAlbum(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"album": h.engine.CurrentAlbum(),
	})
}

// ResetHistory clears rotation history so every image becomes eligible
// again. An optional album query parameter limits the reset to one album.
func (h *Handlers) ResetHistory(w http.ResponseWriter, r *http.Request) {
	var scope *string
	if album := r.URL.Query().Get("album"); album != "" {
		scope = &album
	}

	count, err := h.engine.ResetHistory(r.Context(), scope)
	if err != nil {
		logging.Error("History reset failed: %v", err)
		writeJSONError(w, "failed to reset history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"reset": count,
	})
}
