package http

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"quiz-player-service/internal/domain"
)

func TestHealthz(t *testing.T) {
	server := newTestRouter(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response: %d %q", resp.StatusCode, body)
	}
}

func TestSubjectsEndpoint(t *testing.T) {
	server := newTestRouter(t)
	resp, err := http.Get(server.URL + "/api/subjects")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var subjects []domain.Subject
	if err := json.NewDecoder(resp.Body).Decode(&subjects); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(subjects) != 1 || subjects[0].ID != "chem" {
		t.Fatalf("unexpected subjects: %+v", subjects)
	}
}

func TestHistoryEndpointRequiresClientID(t *testing.T) {
	server := newTestRouter(t)
	resp, err := http.Get(server.URL + "/api/history")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/history?clientId=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var entries []domain.HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v", entries)
	}
}

func TestBookmarksEndpoint(t *testing.T) {
	server := newTestRouter(t)
	resp, err := http.Get(server.URL + "/api/bookmarks/chem?clientId=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var positions []int
	if err := json.NewDecoder(resp.Body).Decode(&positions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("expected no bookmarks, got %v", positions)
	}
}
