package store

import (
	"context"
	"strings"
	"testing"

	"github.com/rcliao/cardfolio/internal/model"
)

func TestSearchCards_Basic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "t1",
		model.ProjectCardData{ID: "c1", Title: "Robot arm", Content: []model.Block{model.NewParagraph("servo control")}},
		model.ProjectCardData{ID: "c2", Title: "Garden", Content: []model.Block{model.NewParagraph("tomatoes")}},
	))

	hits, err := s.SearchCards(ctx, SearchParams{Query: "robot"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].CardID != "c1" {
		t.Fatalf("expected c1 by title, got %+v", hits)
	}

	hits, _ = s.SearchCards(ctx, SearchParams{Query: "tomato"})
	if len(hits) != 1 || hits[0].CardID != "c2" {
		t.Fatalf("expected c2 by body, got %+v", hits)
	}
	if hits[0].SnapshotID != "doc" {
		t.Errorf("expected snapshot doc, got %q", hits[0].SnapshotID)
	}
}

func TestSearchCards_LatestOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "t1", model.ProjectCardData{ID: "c1", Title: "Old name"}))
	s.Put(ctx, testSnapshot("doc", "t2", model.ProjectCardData{ID: "c1", Title: "New name"}))

	hits, _ := s.SearchCards(ctx, SearchParams{Query: "name"})
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit from latest revision, got %d", len(hits))
	}
	if hits[0].Title != "New name" {
		t.Errorf("expected latest title, got %q", hits[0].Title)
	}
}

func TestSearchCards_DeletedExcluded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "t1", model.ProjectCardData{ID: "c1", Title: "Robot"}))
	s.Rm(ctx, RmParams{ID: "doc", AllVersions: true})

	hits, _ := s.SearchCards(ctx, SearchParams{Query: "Robot"})
	if len(hits) != 0 {
		t.Errorf("expected no hits after delete, got %d", len(hits))
	}
}

func TestSnippet(t *testing.T) {
	body := strings.Repeat("a", 100) + "needle" + strings.Repeat("b", 100)
	got := snippet(body, "needle", 40)
	if !strings.Contains(got, "needle") {
		t.Errorf("expected snippet around match, got %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipses on both sides, got %q", got)
	}
	if snippet("short", "x", 40) != "short" {
		t.Error("expected short body unchanged")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("a", "t1", model.ProjectCardData{ID: "c1", Title: "x"}))
	s.Put(ctx, testSnapshot("a", "t2", model.ProjectCardData{ID: "c1", Title: "x"}))
	s.Put(ctx, testSnapshot("b", "t3"))
	s.SetItem(ctx, "k", "v")

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalRevisions != 3 || st.LiveRevisions != 3 {
		t.Errorf("expected 3 revisions, got total=%d live=%d", st.TotalRevisions, st.LiveRevisions)
	}
	if st.TotalCards != 2 {
		t.Errorf("expected 2 card rows, got %d", st.TotalCards)
	}
	if st.LocalKeys != 1 {
		t.Errorf("expected 1 local key, got %d", st.LocalKeys)
	}
	if len(st.Snapshots) != 2 || st.Snapshots[0].ID != "a" || st.Snapshots[0].Versions != 2 {
		t.Errorf("unexpected per-snapshot stats: %+v", st.Snapshots)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("a", "t1"))
	s.Put(ctx, testSnapshot("a", "t2"))
	s.Put(ctx, testSnapshot("b", "t3"))

	snaps, err := s.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != "a" || snaps[0].SavedAt != "t2" {
		t.Errorf("expected latest of a first, got %s/%s", snaps[0].ID, snaps[0].SavedAt)
	}

	dst := NewMemoryRepository()
	n, err := Import(ctx, dst, snaps)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 || dst.Len() != 2 {
		t.Errorf("expected 2 imported, got n=%d len=%d", n, dst.Len())
	}
}
