package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vity-loop/vity-loop/internal/analytics"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/variants"
)

type HealthResponse struct {
	Status        string `json:"status"`
	EventsCount   int    `json:"events_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.store.Events(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Str("component", "server").Msg("failed to count events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := HealthResponse{
		Status:        "ok",
		EventsCount:   len(events),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// IngestRequest is one structured analytics event on the wire.
type IngestRequest struct {
	Name       string         `json:"name"`
	Variant    string         `json:"variant"`
	Properties map[string]any `json:"properties"`
}

var knownEvents = map[string]bool{
	analytics.EventMessageSent:    true,
	analytics.EventModalShown:     true,
	analytics.EventLinkCopied:     true,
	analytics.EventModalDismissed: true,
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !knownEvents[req.Name] {
		http.Error(w, "Unknown event name", http.StatusBadRequest)
		return
	}
	if !variants.Valid(variants.ID(req.Variant)) {
		http.Error(w, "Invalid variant", http.StatusBadRequest)
		return
	}

	event := store.Event{
		Name:       req.Name,
		Variant:    variants.ID(req.Variant),
		Properties: req.Properties,
	}
	if err := s.store.AppendEvent(r.Context(), event); err != nil {
		s.log.Warn().Err(err).Str("component", "server").Msg("failed to append event")
		http.Error(w, "Failed to record event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.store.Events(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch events", http.StatusInternalServerError)
		return
	}

	type eventResponse struct {
		Name       string         `json:"name"`
		Variant    string         `json:"variant"`
		Properties map[string]any `json:"properties,omitempty"`
		Timestamp  int64          `json:"timestamp"`
	}

	response := make([]eventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, eventResponse{
			Name:       e.Name,
			Variant:    string(e.Variant),
			Properties: e.Properties,
			Timestamp:  e.CreatedAt.Unix(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec, err := s.store.Record(r.Context())
	if err != nil {
		http.Error(w, "Failed to load record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
