package index

import (
	"errors"
	"testing"

	"github.com/starford/lagu/internal/apperr"
)

func TestEnsureTagsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.EnsureTags([]string{"a", "b"}); err != nil {
		t.Fatalf("EnsureTags: %v", err)
	}
	if err := db.EnsureTags([]string{"b", "c"}); err != nil {
		t.Fatalf("second EnsureTags: %v", err)
	}
	tags, err := db.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 3 {
		t.Errorf("tags = %+v, want 3", tags)
	}
}

func TestGetOrCreateTagIDStable(t *testing.T) {
	db := testDB(t)
	first, err := db.GetOrCreateTagID("stable")
	if err != nil {
		t.Fatalf("GetOrCreateTagID: %v", err)
	}
	second, err := db.GetOrCreateTagID("stable")
	if err != nil {
		t.Fatalf("second GetOrCreateTagID: %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %d vs %d", first, second)
	}
}

func TestSearchTags(t *testing.T) {
	db := testDB(t)
	_ = db.EnsureTags([]string{"auth", "author", "deploy"})
	tags, err := db.SearchTags("auth")
	if err != nil {
		t.Fatalf("SearchTags: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("tags = %+v, want auth and author", tags)
	}
}

func TestDeleteTagBlockedWhileUsed(t *testing.T) {
	db := testDB(t)
	row := testRow("1", "Uses tag")
	row.Tags = []string{"busy"}
	if err := db.UpsertItem(row, "", nil); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	_, err := db.DeleteTag("busy")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("DeleteTag err = %v, want ErrConflict", err)
	}

	// Detach the tag, then deletion succeeds.
	row.Tags = nil
	if err := db.UpsertItem(row, "", nil); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	ok, err := db.DeleteTag("busy")
	if err != nil || !ok {
		t.Errorf("DeleteTag after detach = %v, %v", ok, err)
	}
}

func TestDeleteTagAbsent(t *testing.T) {
	db := testDB(t)
	ok, err := db.DeleteTag("ghost")
	if err != nil || ok {
		t.Errorf("DeleteTag = %v, %v, want false, nil", ok, err)
	}
}
