package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/rcliao/cardfolio/internal/model"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	if _, err := r.Get(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snap := testSnapshot("x", "t1", model.ProjectCardData{ID: "c", Title: "Card"})
	if err := r.Put(ctx, snap); err != nil {
		t.Fatalf("put: %v", err)
	}
	snap.Content.ProjectCards["c"] = model.ProjectCardData{ID: "c", Title: "mutated"}

	got, err := r.Get(ctx, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content.ProjectCards["c"].Title != "Card" {
		t.Errorf("stored snapshot was mutated through caller: %q", got.Content.ProjectCards["c"].Title)
	}

	r.Put(ctx, testSnapshot("x", "t2"))
	got, _ = r.Get(ctx, "x")
	if got.SavedAt != "t2" {
		t.Errorf("expected replaced snapshot, got %q", got.SavedAt)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 snapshot, got %d", r.Len())
	}
}

func TestMemoryLocalStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocalStore()

	m.SetItem(ctx, "k", "v")
	v, ok, _ := m.GetItem(ctx, "k")
	if !ok || v != "v" {
		t.Fatalf("expected v, got %q ok=%v", v, ok)
	}
	m.RemoveItem(ctx, "k")
	if _, ok, _ := m.GetItem(ctx, "k"); ok {
		t.Error("expected key removed")
	}
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func TestS3Repository(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}}
	r := newS3Repository(fake, S3Config{Bucket: "portfolio", Prefix: "snapshots"})

	if _, err := r.Get(ctx, "doc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing object, got %v", err)
	}

	if err := r.Put(ctx, testSnapshot("doc", "t1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := fake.objects["portfolio/snapshots/doc.json"]; !ok {
		t.Fatalf("expected object at snapshots/doc.json, have %v", fake.objects)
	}

	got, err := r.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SavedAt != "t1" {
		t.Errorf("expected t1, got %q", got.SavedAt)
	}
}

func TestS3RepositoryRequiresBucket(t *testing.T) {
	if _, err := NewS3Repository(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
