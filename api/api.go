// Package api exposes the station's telemetry over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang/glog"
	goji "goji.io"
	"goji.io/pat"

	"github.com/acmurray/weatherstation/station"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Weather Station</title></head>
<body>
<h1>Weather Station</h1>
<p>Device: %s</p>
<ul>
<li><a href="/api/latest">/api/latest</a> &mdash; latest reading (JSON)</li>
<li><a href="/data">/data</a> &mdash; latest reading (JSON)</li>
</ul>
</body>
</html>
`

// Handler serves the station's HTTP surface:
//
//	GET /           status page
//	GET /api/latest latest reading as JSON
//	GET /data       same payload, legacy path
type Handler struct {
	store    *station.Store
	deviceID string
}

// NewHandler builds the HTTP mux around the latest-reading store.
func NewHandler(store *station.Store, deviceID string) http.Handler {
	h := &Handler{store: store, deviceID: deviceID}

	mux := goji.NewMux()
	mux.Use(requestLogger)
	mux.HandleFunc(pat.Get("/"), h.handleIndex)
	mux.HandleFunc(pat.Get("/api/latest"), h.handleLatest)
	mux.HandleFunc(pat.Get("/data"), h.handleLatest)
	return mux
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, h.deviceID)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.store.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no reading available yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorf("Failed to encode response: %s", err)
	}
}
