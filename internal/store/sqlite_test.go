package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/cardfolio/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot(id, savedAt string, cards ...model.ProjectCardData) model.SavedContent {
	index := map[string]model.ProjectCardData{}
	var blocks []model.Block
	for _, c := range cards {
		index[c.ID] = c
		props := model.CardProps{ID: c.ID, Title: c.Title, EditorContent: "[]"}
		blocks = append(blocks, model.Block{ID: "blk-" + c.ID, Type: model.TypeProjectCard, Props: props.Map()})
	}
	blocks = append(blocks, model.NewParagraph("intro"))
	return model.SavedContent{
		ID:      id,
		SavedAt: savedAt,
		Content: model.EditorContent{Blocks: blocks, ProjectCards: index},
	}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.GetItem(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.SetItem(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetItem(ctx, "k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.GetItem(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}

	if err := s.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.GetItem(ctx, "k"); ok {
		t.Error("expected key removed")
	}
	if err := s.RemoveItem(ctx, "k"); err != nil {
		t.Errorf("removing a missing key should not fail: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snap := testSnapshot("doc-1", "2024-01-01T00:00:00.000Z",
		model.ProjectCardData{ID: "c1", Title: "Robot", Content: []model.Block{}})
	rev, err := s.PutRevision(ctx, snap)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if rev.Version != 1 {
		t.Errorf("expected version 1, got %d", rev.Version)
	}
	if rev.RevID == "" {
		t.Error("expected non-empty revision id")
	}
	if rev.Cards != 1 {
		t.Errorf("expected 1 card, got %d", rev.Cards)
	}

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SavedAt != snap.SavedAt {
		t.Errorf("expected savedAt %q, got %q", snap.SavedAt, got.SavedAt)
	}
	if got.Content.ProjectCards["c1"].Title != "Robot" {
		t.Errorf("expected card title Robot, got %q", got.Content.ProjectCards["c1"].Title)
	}
	if len(got.Content.Blocks) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(got.Content.Blocks))
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutEmptyID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(context.Background(), model.SavedContent{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "2024-01-01T00:00:00.000Z"))
	r2, _ := s.PutRevision(ctx, testSnapshot("doc", "2024-01-02T00:00:00.000Z"))

	if r2.Version != 2 {
		t.Errorf("expected version 2, got %d", r2.Version)
	}
	if r2.Supersedes == "" {
		t.Error("expected supersedes to be set")
	}

	got, _ := s.Get(ctx, "doc")
	if got.SavedAt != "2024-01-02T00:00:00.000Z" {
		t.Errorf("expected latest savedAt, got %q", got.SavedAt)
	}

	first, err := s.GetVersion(ctx, "doc", 1)
	if err != nil {
		t.Fatalf("get version 1: %v", err)
	}
	if first.SavedAt != "2024-01-01T00:00:00.000Z" {
		t.Errorf("expected first savedAt, got %q", first.SavedAt)
	}

	hist, err := s.History(ctx, "doc")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}
	if hist[0].Version != 2 || hist[1].Version != 1 {
		t.Errorf("expected newest first, got %d then %d", hist[0].Version, hist[1].Version)
	}
	if hist[0].Supersedes != hist[1].RevID {
		t.Errorf("expected v2 to supersede v1")
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("a", "t1"))
	s.Put(ctx, testSnapshot("b", "t2"))
	s.Put(ctx, testSnapshot("c", "t3"))

	revs, err := s.List(ctx, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(revs) != 3 {
		t.Errorf("expected 3, got %d", len(revs))
	}

	revs, _ = s.List(ctx, ListParams{Limit: 2})
	if len(revs) != 2 {
		t.Errorf("expected 2 with limit, got %d", len(revs))
	}
}

func TestListShowsLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "v1"))
	s.Put(ctx, testSnapshot("doc", "v2"))

	revs, _ := s.List(ctx, ListParams{})
	if len(revs) != 1 {
		t.Fatalf("expected 1 (latest only), got %d", len(revs))
	}
	if revs[0].SavedAt != "v2" {
		t.Errorf("expected latest version, got %q", revs[0].SavedAt)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "v1"))
	s.Put(ctx, testSnapshot("doc", "v2"))
	if err := s.Rm(ctx, RmParams{ID: "doc"}); err != nil {
		t.Fatalf("rm: %v", err)
	}

	got, err := s.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("get after rm: %v", err)
	}
	if got.SavedAt != "v1" {
		t.Errorf("expected previous version visible, got %q", got.SavedAt)
	}
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "v1", model.ProjectCardData{ID: "c", Title: "x"}))
	if err := s.Rm(ctx, RmParams{ID: "doc", Hard: true}); err != nil {
		t.Fatalf("hard rm: %v", err)
	}

	if _, err := s.Get(ctx, "doc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after hard delete, got %v", err)
	}
	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM snapshot_cards`).Scan(&n)
	if n != 0 {
		t.Errorf("expected card rows removed, got %d", n)
	}
}

func TestDeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, testSnapshot("doc", "v1"))
	s.Put(ctx, testSnapshot("doc", "v2"))
	if err := s.Rm(ctx, RmParams{ID: "doc", AllVersions: true}); err != nil {
		t.Fatalf("rm all: %v", err)
	}

	if _, err := s.History(ctx, "doc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after deleting all versions, got %v", err)
	}
	if err := s.Rm(ctx, RmParams{ID: "doc", AllVersions: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second rm, got %v", err)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store in nested dir: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
