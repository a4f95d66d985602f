package mode

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lexdesk/backend/internal/model/mode"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(mode.NewMemoryStore(mode.Seed())).RegisterRoutes(r)
	return r
}

func TestListModesByFeature(t *testing.T) {
	r := setupRouter()
	req := httptest.NewRequest(http.MethodGet, "/modes?feature=analysis", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var modes []mode.Mode
	if err := json.NewDecoder(resp.Body).Decode(&modes); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(modes) != 3 {
		t.Fatalf("expected 3 analysis modes, got %d", len(modes))
	}
}

func TestListModesUnknownFeature(t *testing.T) {
	r := setupRouter()
	req := httptest.NewRequest(http.MethodGet, "/modes?feature=speech", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
