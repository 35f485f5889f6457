// Package api is the HTTP surface of the dirwatch server binary: a
// websocket stream of event batches, recent-event history, and Prometheus
// metrics. It is a caller of the watcher Handle API, not part of the engine.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"dirwatch"
	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
)

// Service holds one Hub per watched directory.
type Service struct {
	Hubs      map[string]*dirwatch.Hub
	Registry  *metrics.Registry
	Logger    *logging.Logger
	AuthToken string
}

func RegisterRoutes(mux *http.ServeMux, service *Service) {
	mux.HandleFunc("/api/dirs", service.handleDirs)
	mux.HandleFunc("/api/recent", service.handleRecent)
	mux.HandleFunc("/api/metrics", service.handleMetrics)
	mux.HandleFunc("/api/events", service.handleEvents)
}

func (service *Service) handleDirs(w http.ResponseWriter, r *http.Request) {
	if !service.authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type dirStatus struct {
		Dir   string `json:"dir"`
		State string `json:"state"`
	}
	dirs := make([]dirStatus, 0, len(service.Hubs))
	for dir, hub := range service.Hubs {
		dirs = append(dirs, dirStatus{Dir: dir, State: hub.Watcher().State().String()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Dir < dirs[j].Dir })
	writeJSON(w, dirs)
}

func (service *Service) handleRecent(w http.ResponseWriter, r *http.Request) {
	if !service.authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hub, ok := service.hubFor(r)
	if !ok {
		http.Error(w, "unknown directory", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events := hub.Watcher().Recent(limit)
	if events == nil {
		events = []dirwatch.Event{}
	}
	writeJSON(w, events)
}

func (service *Service) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !service.authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	registry := service.Registry
	if registry == nil {
		registry = metrics.Default
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = registry.WritePrometheus(w)
}

func (service *Service) hubFor(r *http.Request) (*dirwatch.Hub, bool) {
	dir := r.URL.Query().Get("dir")
	if dir == "" && len(service.Hubs) == 1 {
		for _, hub := range service.Hubs {
			return hub, true
		}
	}
	hub, ok := service.Hubs[dir]
	return hub, ok
}

// authorize accepts the token as a bearer header or a token query parameter,
// the latter for websocket clients that cannot set headers.
func (service *Service) authorize(w http.ResponseWriter, r *http.Request) bool {
	if service.AuthToken == "" {
		return true
	}

	presented := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		presented = strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(service.AuthToken)) == 1 {
		return true
	}

	service.logWarn("unauthorized request", map[string]string{"path": r.URL.Path})
	http.Error(w, "unauthorized", http.StatusUnauthorized)
	return false
}

func (service *Service) logWarn(message string, fields map[string]string) {
	if service == nil || service.Logger == nil {
		return
	}
	service.Logger.Warn(message, fields)
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
