package lyrics

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "lyrics.db"))
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("Johnny Cash", "Hurt", "I hurt myself today..."); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	body, ok, err := s.Get("Johnny Cash", "Hurt")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if body != "I hurt myself today..." {
		t.Errorf("body = %q", body)
	}
}

func TestGetNormalizesKeys(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("  Johnny Cash ", "HURT", "lyrics"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	_, ok, err := s.Get("johnny cash", "hurt")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Error("normalized lookup should hit")
	}
}

func TestGetMissIsNotError(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("Nobody", "Nothing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestPutRequiresKeys(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put("", "song", "x"); err == nil {
		t.Error("expected error for empty artist")
	}
	if err := s.Put("artist", "  ", "x"); err == nil {
		t.Error("expected error for blank song")
	}
}

func TestPutReplaces(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put("a", "b", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("a", "b", "v2"); err != nil {
		t.Fatal(err)
	}
	body, _, err := s.Get("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if body != "v2" {
		t.Errorf("body = %q, want v2", body)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
