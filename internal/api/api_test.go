package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/itemservice"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/storage"
)

// testEnv sets up a temp item store, SQLite DB, service, and router.
// An empty authToken means auth disabled.
func testEnv(t *testing.T, authToken string) (*itemservice.Service, http.Handler) {
	t.Helper()

	baseDir := t.TempDir()
	store, err := storage.NewFS(baseDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "lagu-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := itemservice.NewService(store, db, logger)
	router := NewRouter(svc, authToken != "", authToken, nil, nil)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetItem(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{
		"title":   "Fix login",
		"content": "Repro steps.",
		"tags":    []string{"auth"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.Item
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID != "1" || created.Status != "Open" || created.Priority != "medium" {
		t.Errorf("created = %+v", created)
	}

	w = doJSON(t, router, http.MethodGet, "/items/issues/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Item
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Fix login" || got.Content != "Repro steps." {
		t.Errorf("got = %+v", got)
	}
}

func TestGetMissingItem(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/items/issues/99", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	_, router := testEnv(t, "")

	// Missing content on a task type.
	w := doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "No content"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content status = %d, want 400", w.Code)
	}

	// Unknown type.
	w = doJSON(t, router, http.MethodPost, "/items/ghosts", map[string]any{"title": "x", "content": "y"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", w.Code)
	}
}

func TestDuplicateDailyConflicts(t *testing.T) {
	_, router := testEnv(t, "")

	body := map[string]any{"title": "Standup", "id": "2025-01-15"}
	w := doJSON(t, router, http.MethodPost, "/items/dailies", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create = %d, body = %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, "/items/dailies", body)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestUpdateItem(t *testing.T) {
	_, router := testEnv(t, "")
	_ = doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "Before", "content": "x"})

	w := doJSON(t, router, http.MethodPut, "/items/issues/1", map[string]any{"title": "After"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Item
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Title != "After" {
		t.Errorf("title = %q", updated.Title)
	}
}

func TestDeleteItem(t *testing.T) {
	_, router := testEnv(t, "")
	_ = doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "Doomed", "content": "x"})

	w := doJSON(t, router, http.MethodDelete, "/items/issues/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/items/issues/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestListItemsFilters(t *testing.T) {
	_, router := testEnv(t, "")
	_ = doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "Open one", "content": "x"})
	_ = doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "Done one", "content": "x", "status": "Done"})

	w := doJSON(t, router, http.MethodGet, "/items/issues", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp ItemListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Items[0].Title != "Open one" {
		t.Errorf("default list = %+v", resp)
	}

	w = doJSON(t, router, http.MethodGet, "/items/issues?include_closed=true", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("include_closed total = %d, want 2", resp.Total)
	}

	w = doJSON(t, router, http.MethodGet, "/items/issues?status=Done", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Items[0].Title != "Done one" {
		t.Errorf("status filter = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	_ = doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "Websocket drops", "content": "reconnect loop"})

	w := doJSON(t, router, http.MethodGet, "/search?q=reconnect", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "1" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestTypeRegistryEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/types", map[string]any{"name": "recipes", "base_kind": "documents"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}

	// Duplicate registration conflicts.
	w = doJSON(t, router, http.MethodPost, "/types", map[string]any{"name": "recipes", "base_kind": "documents"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}

	// Items of the custom type work through the same routes.
	w = doJSON(t, router, http.MethodPost, "/items/recipes", map[string]any{"title": "Pancakes", "content": "Flour."})
	if w.Code != http.StatusCreated {
		t.Fatalf("custom item status = %d, body = %s", w.Code, w.Body.String())
	}

	// Deletion is blocked while items remain, allowed after.
	w = doJSON(t, router, http.MethodDelete, "/types/recipes", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("busy delete status = %d, want 409", w.Code)
	}
	_ = doJSON(t, router, http.MethodDelete, "/items/recipes/1", nil)
	w = doJSON(t, router, http.MethodDelete, "/types/recipes", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
}

func TestTagEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	_ = doJSON(t, router, http.MethodPost, "/items/issues", map[string]any{"title": "Tagged", "content": "x", "tags": []string{"auth"}})

	w := doJSON(t, router, http.MethodGet, "/tags", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tags status = %d", w.Code)
	}
	var resp TagListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tags) != 1 || resp.Tags[0].Name != "auth" || resp.Tags[0].UsageCount != 1 {
		t.Errorf("tags = %+v", resp.Tags)
	}

	// Deleting a used tag conflicts.
	w = doJSON(t, router, http.MethodDelete, "/tags/auth", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("busy tag delete = %d, want 409", w.Code)
	}

	// Free the tag, then deletion succeeds.
	_ = doJSON(t, router, http.MethodDelete, "/items/issues/1", nil)
	w = doJSON(t, router, http.MethodDelete, "/tags/auth", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("tag delete = %d, want 204", w.Code)
	}
}

func TestStatusEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/statuses", map[string]any{"name": "Blocked", "is_closed": false})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var st models.Status
	_ = json.Unmarshal(w.Body.Bytes(), &st)

	w = doJSON(t, router, http.MethodGet, "/statuses", nil)
	var listing struct {
		Statuses []models.Status `json:"statuses"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listing)
	if len(listing.Statuses) != 5 {
		t.Errorf("statuses = %+v, want 4 defaults + Blocked", listing.Statuses)
	}
}

func TestRebuildEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPost, "/rebuild", nil)
	if w.Code != http.StatusOK {
		t.Errorf("rebuild status = %d", w.Code)
	}
}

func TestAuthEnforced(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/items/issues", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/items/issues", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", w.Code)
	}
}
