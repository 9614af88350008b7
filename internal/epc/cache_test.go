package epc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := cache.Get("AB1 2CD"); err != nil || ok {
		t.Fatalf("Get on empty cache: ok=%v err=%v", ok, err)
	}

	records := []Record{{Address: "10 HIGH STREET", Postcode: "AB1 2CD", FloorArea: 82}}
	if err := cache.Put("AB1 2CD", records); err != nil {
		t.Fatal(err)
	}

	got, ok, err := cache.Get("ab1 2cd")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Get missed after Put (keys are case-insensitive)")
	}
	if len(got) != 1 || got[0] != records[0] {
		t.Errorf("got %+v, want %+v", got, records)
	}
}

func TestCacheEmptyListIsAHit(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.Put("ZZ9 9ZZ", nil); err != nil {
		t.Fatal(err)
	}

	got, ok, err := cache.Get("ZZ9 9ZZ")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("cached empty list reported as a miss")
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestCacheKeyReplacesSpaces(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.Put("AB1 2CD", []Record{}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "AB1_2CD.json")); err != nil {
		t.Errorf("expected AB1_2CD.json on disk: %v", err)
	}

	// No leftover temp files after a successful write.
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
