package index

import (
	"os"
	"testing"
	"time"

	"github.com/starford/lagu/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lagu-index-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRow(id, title string) ItemRow {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	return ItemRow{
		Type:      "issues",
		ID:        id,
		Title:     title,
		Priority:  "medium",
		StatusID:  1,
		Status:    "Open",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	row := testRow("1", "First issue")
	row.Tags = []string{"auth"}
	if err := db.UpsertItem(row, "the body", nil); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	got, err := db.GetItemRow("issues", "1")
	if err != nil {
		t.Fatalf("GetItemRow: %v", err)
	}
	if got == nil || got.Title != "First issue" || got.Status != "Open" {
		t.Errorf("row = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "auth" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestUpsertReplacesEdges(t *testing.T) {
	db := testDB(t)
	row := testRow("1", "Edges")
	row.Tags = []string{"a", "b"}
	edges := []models.RelatedEdge{{SourceType: "issues", SourceID: "1", TargetType: "docs", TargetID: "7"}}
	if err := db.UpsertItem(row, "", edges); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	row.Tags = []string{"b"}
	if err := db.UpsertItem(row, "", nil); err != nil {
		t.Fatalf("second UpsertItem: %v", err)
	}

	got, _ := db.GetItemRow("issues", "1")
	if len(got.Tags) != 1 || got.Tags[0] != "b" {
		t.Errorf("tags after replace = %v", got.Tags)
	}
	rel, err := db.RelatedFrom("issues", "1")
	if err != nil {
		t.Fatalf("RelatedFrom: %v", err)
	}
	if len(rel) != 0 {
		t.Errorf("relations after replace = %v", rel)
	}
}

func TestDeleteItemRemovesEverything(t *testing.T) {
	db := testDB(t)
	row := testRow("1", "Doomed")
	row.Tags = []string{"temp"}
	_ = db.UpsertItem(row, "body", []models.RelatedEdge{
		{SourceType: "issues", SourceID: "1", TargetType: "issues", TargetID: "2"},
	})

	if err := db.DeleteItem("issues", "1"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	got, err := db.GetItemRow("issues", "1")
	if err != nil {
		t.Fatalf("GetItemRow: %v", err)
	}
	if got != nil {
		t.Errorf("row survived delete: %+v", got)
	}
	// The tag row stays registered; only the edge goes.
	tags, _ := db.Tags()
	for _, tag := range tags {
		if tag.Name == "temp" && tag.UsageCount != 0 {
			t.Errorf("usage count = %d, want 0", tag.UsageCount)
		}
	}
}

func TestListExcludesClosedByDefault(t *testing.T) {
	db := testDB(t)
	open := testRow("1", "Open issue")
	_ = db.UpsertItem(open, "", nil)

	done := testRow("2", "Done issue")
	done.StatusID = 3
	done.Status = "Done"
	_ = db.UpsertItem(done, "", nil)

	rows, err := db.ListItems("issues", ListFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "1" {
		t.Errorf("rows = %+v, want only the open issue", rows)
	}

	rows, _ = db.ListItems("issues", ListFilter{IncludeClosed: true})
	if len(rows) != 2 {
		t.Errorf("IncludeClosed rows = %d, want 2", len(rows))
	}

	rows, _ = db.ListItems("issues", ListFilter{Statuses: []string{"Done"}})
	if len(rows) != 1 || rows[0].ID != "2" {
		t.Errorf("explicit status rows = %+v", rows)
	}
}

func TestListFiltersByTag(t *testing.T) {
	db := testDB(t)
	a := testRow("1", "Tagged")
	a.Tags = []string{"auth"}
	_ = db.UpsertItem(a, "", nil)
	b := testRow("2", "Untagged")
	_ = db.UpsertItem(b, "", nil)

	rows, err := db.ListItems("issues", ListFilter{Tag: "auth"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestListDateRangeOnIDForDateKeyedTypes(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"2025-01-10", "2025-01-20", "2025-02-01"} {
		row := testRow(id, "Daily "+id)
		row.Type = "dailies"
		row.StatusID = 0
		row.Status = ""
		if err := db.UpsertItem(row, "", nil); err != nil {
			t.Fatalf("UpsertItem: %v", err)
		}
	}
	rows, err := db.ListItems("dailies", ListFilter{
		StartDate: "2025-01-15",
		EndDate:   "2025-01-31",
		UseIDDate: true,
	})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "2025-01-20" {
		t.Errorf("rows = %+v, want only 2025-01-20", rows)
	}
}

func TestChecksums(t *testing.T) {
	db := testDB(t)
	row := testRow("1", "Sum")
	row.Checksum = "abc123"
	_ = db.UpsertItem(row, "", nil)

	sums, err := db.Checksums("issues")
	if err != nil {
		t.Fatalf("Checksums: %v", err)
	}
	if sums["1"] != "abc123" {
		t.Errorf("checksum = %q", sums["1"])
	}
}

func TestIDsByType(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertItem(testRow("1", "a"), "", nil)
	_ = db.UpsertItem(testRow("2", "b"), "", nil)

	ids, err := db.IDsByType("issues")
	if err != nil {
		t.Fatalf("IDsByType: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v", ids)
	}
	if _, ok := ids["1"]; !ok {
		t.Error("missing id 1")
	}
}

func TestSearchFindsBodyText(t *testing.T) {
	db := testDB(t)
	row := testRow("1", "Login bug")
	_ = db.UpsertItem(row, "the session token expires too early", nil)
	other := testRow("2", "Unrelated")
	other.Type = "docs"
	_ = db.UpsertItem(other, "nothing here", nil)

	results, err := db.Search("", "expires", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Errorf("results = %+v", results)
	}

	// Restricted to a type with no match.
	results, _ = db.Search("docs", "expires", 10)
	if len(results) != 0 {
		t.Errorf("type-restricted results = %+v", results)
	}
}
