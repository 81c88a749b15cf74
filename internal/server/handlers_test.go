package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vity-loop/vity-loop/internal/server"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/testutil"
)

func setupServer(t *testing.T) (http.Handler, *store.SQLiteStore) {
	t.Helper()
	s := testutil.SetupTestStore(t)
	srv := server.New(s, 0, zerolog.Nop())
	return srv.Handler(), s
}

func TestHealth(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var resp server.HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("got status %q, want ok", resp.Status)
	}
	if resp.EventsCount != 0 {
		t.Errorf("got %d events on a fresh store, want 0", resp.EventsCount)
	}
}

func TestIngest(t *testing.T) {
	handler, s := setupServer(t)

	body := `{"name":"referral_link_copied","variant":"B","properties":{"referral_url":"https://example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/e", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204: %s", w.Code, w.Body.String())
	}

	events, err := s.Events(req.Context())
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d stored events, want 1", len(events))
	}
	if events[0].Name != "referral_link_copied" || string(events[0].Variant) != "B" {
		t.Errorf("stored event wrong: %+v", events[0])
	}
}

func TestIngest_Rejections(t *testing.T) {
	handler, _ := setupServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"unknown event", `{"name":"page_view","variant":"A"}`},
		{"invalid variant", `{"name":"user_message_sent","variant":"Z"}`},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/e", strings.NewReader(tt.body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", tt.name, w.Code)
		}
	}
}

func TestIngest_CORSPreflight(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/e", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("got status %d for preflight, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("got allow-origin %q, want *", got)
	}
}

func TestIngest_MethodNotAllowed(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/e", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want 405", w.Code)
	}
}

func TestEvents(t *testing.T) {
	handler, s := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	if err := s.AppendEvent(req.Context(), store.Event{Name: "user_message_sent", Variant: "A"}); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var events []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0]["name"] != "user_message_sent" || events[0]["variant"] != "A" {
		t.Errorf("event payload wrong: %v", events[0])
	}
}

func TestRecord(t *testing.T) {
	handler, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/record", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var rec store.Record
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if rec.Version != store.SchemaVersion {
		t.Errorf("got version %d, want %d", rec.Version, store.SchemaVersion)
	}
}
