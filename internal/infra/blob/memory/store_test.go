package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tankcore/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	ctx := context.Background()
	meta := map[string]string{"caption": "front view"}
	info, err := store.Put(ctx, "tanks/t1/photos/a.jpg", bytes.NewReader([]byte("jpeg")), core.PutOptions{ContentType: "image/jpeg", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["caption"] = "mutated"
	if info.Size != 4 || !info.LastModified.Equal(fixed) || info.Metadata["caption"] != "front view" {
		t.Fatalf("unexpected info %+v", info)
	}
	got, rc, err := store.Get(ctx, "tanks/t1/photos/a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "jpeg" || got.ContentType != "image/jpeg" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver")
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := store.Put(ctx, "k", bytes.NewReader([]byte("v2")), core.PutOptions{})
	if !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	store := New()
	for _, key := range []string{"", "/abs", "a/../b", `a\b`} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestMissingAndDelete(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}
	_, _ = store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{})
	if ok, err := store.Delete(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected delete true, got %v %v", ok, err)
	}
}

func TestListByPrefixAndPresign(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, k := range []string{"tanks/b/2", "tanks/a/1", "other"} {
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte(k)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "tanks/")
	if err != nil || len(list) != 2 || list[0].Key != "tanks/a/1" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if _, err := store.PresignURL(ctx, "other", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestPutReadError(t *testing.T) {
	if _, err := New().Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
