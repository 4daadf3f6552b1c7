package fieldmap

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/lagu/internal/models"
)

func TestTaskRoundTrip(t *testing.T) {
	m, err := For(models.KindTask)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	it := &models.Item{
		Type:        "issues",
		ID:          "42",
		Title:       "Fix login",
		Description: "Session expires early",
		Content:     "Repro steps here.\n",
		Priority:    "high",
		StatusID:    1,
		StartDate:   "2025-01-15",
		EndDate:     "2025-01-20",
		Tags:        []string{"auth", "bug"},
		Related:     []string{"docs-7"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := m.Encode(it)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := m.Decode(data, "issues", "42")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, it) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, it)
	}
}

func TestDocumentFieldsOmitTaskMetadata(t *testing.T) {
	m, _ := For(models.KindDocument)
	it := &models.Item{
		Type:    "docs",
		ID:      "1",
		Title:   "Architecture",
		Content: "Overview.\n",
	}
	data, err := m.Encode(it)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := string(data)
	for _, key := range []string{"priority:", "status_id:"} {
		if strings.Contains(out, key) {
			t.Errorf("document encoding should not contain %q:\n%s", key, out)
		}
	}
}

func TestDocumentDatesRoundTrip(t *testing.T) {
	m, _ := For(models.KindDocument)
	it := &models.Item{
		Type:      "docs",
		ID:        "1",
		Title:     "Quarter plan",
		Content:   "Milestones.\n",
		StartDate: "2025-01-15",
		EndDate:   "2025-01-20",
	}
	data, err := m.Encode(it)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := m.Decode(data, "docs", "1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.StartDate != "2025-01-15" || got.EndDate != "2025-01-20" {
		t.Errorf("dates = %q/%q, want 2025-01-15/2025-01-20", got.StartDate, got.EndDate)
	}
}

func TestDecodeIgnoresForeignKeys(t *testing.T) {
	m, _ := For(models.KindDocument)
	raw := "---\ntitle: Doc\npriority: high\ncustom_key: whatever\n---\n\nBody.\n"
	it, err := m.Decode([]byte(raw), "docs", "1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if it.Title != "Doc" {
		t.Errorf("title = %q", it.Title)
	}
	if it.Priority != "" {
		t.Errorf("priority = %q, documents carry none", it.Priority)
	}
	if it.Content != "Body.\n" {
		t.Errorf("content = %q", it.Content)
	}
}

func TestSessionCarriesDatesNoPriority(t *testing.T) {
	m, _ := For(models.KindSession)
	it := &models.Item{
		Type:      "sessions",
		ID:        "2025-01-15-09.00.00.000",
		Title:     "Pairing session",
		StartDate: "2025-01-15",
	}
	data, err := m.Encode(it)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := m.Decode(data, "sessions", it.ID)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.StartDate != "2025-01-15" {
		t.Errorf("start_date = %q, want 2025-01-15", got.StartDate)
	}
	if strings.Contains(string(data), "priority:") {
		t.Errorf("sessions carry no priority:\n%s", data)
	}
}

func TestForUnknownKind(t *testing.T) {
	if _, err := For(models.Kind("bogus")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
