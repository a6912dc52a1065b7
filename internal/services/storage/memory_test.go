package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemoryUploadAndURL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	name, err := m.Upload(ctx, "escrows/e1/evidence/a.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	data, ct, ok := m.Object(name)
	if !ok || string(data) != "jpeg" || ct != "image/jpeg" {
		t.Fatalf("unexpected object %q %q %v", data, ct, ok)
	}
	u, err := m.GetURL(ctx, name, time.Minute)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if !strings.HasPrefix(u, "memory://escrows/e1/evidence/a.jpg?expires=") {
		t.Fatalf("unexpected url %s", u)
	}
	if _, err := m.GetURL(ctx, "missing", time.Minute); err == nil {
		t.Fatalf("expected error for missing object")
	}
}

func TestMemoryUploadChecksSize(t *testing.T) {
	m := NewMemory()
	if _, err := m.Upload(context.Background(), "x", strings.NewReader("toolong"), 3, "text/plain"); err == nil {
		t.Fatalf("expected size mismatch")
	}
}

func TestNewWithoutEndpointUsesMemory(t *testing.T) {
	st, err := New(context.Background(), Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := st.(*Memory); !ok {
		t.Fatalf("expected memory storage, got %T", st)
	}
}

func TestMemoryRemove(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.Upload(ctx, "a", strings.NewReader("1"), 1, "text/plain"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, _, ok := m.Object("a"); ok || m.Len() != 0 {
		t.Fatalf("object still stored")
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("removing a missing object: %v", err)
	}
}
