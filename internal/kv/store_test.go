package kv

import (
	"path/filepath"
	"reflect"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	v, ok, err := s.Get("absent")
	if err != nil || ok || v != "" {
		t.Fatalf("Get(absent) = %q, %v, %v", v, ok, err)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := openTestStore(t)
	if err := s.Set("echo-flow-mode", "clean"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("echo-flow-mode", "idea"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("echo-flow-mode")
	if err != nil || !ok || v != "idea" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestDeleteAndKeys(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"b", "a", "c"} {
		if err := s.Set(k, "x"); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := s.Delete("b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("never-there"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "c"}) {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("echo-flow-apikey", "gsk_test"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v, ok, _ := s2.Get("echo-flow-apikey")
	if !ok || v != "gsk_test" {
		t.Fatalf("value lost across reopen: %q %v", v, ok)
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer s.Close()
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := s.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %q %v", v, ok)
	}
}
