package middleware

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func TestDedupeCacheSeen(t *testing.T) {
	cache, err := NewDedupeCache(8, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDedupeCache() error = %v", err)
	}

	if cache.Seen("m1") {
		t.Error("first sighting of m1 should not be a duplicate")
	}
	if !cache.Seen("m1") {
		t.Error("second sighting of m1 should be a duplicate")
	}
	if cache.Seen("m2") {
		t.Error("m2 was never seen before")
	}
}

func TestDedupeCacheIgnoresBlankIDs(t *testing.T) {
	cache, err := NewDedupeCache(8, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDedupeCache() error = %v", err)
	}

	if cache.Seen("") {
		t.Error("blank message IDs must never deduplicate")
	}
	if cache.Seen("") {
		t.Error("blank message IDs must never deduplicate, even repeated")
	}
}

func TestDedupeCacheEvictsOldEntries(t *testing.T) {
	cache, err := NewDedupeCache(4, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDedupeCache() error = %v", err)
	}

	cache.Seen("m0")
	for i := 1; i <= 8; i++ {
		cache.Seen(fmt.Sprintf("m%d", i))
	}

	// m0 was evicted, so it reads as fresh again.
	if cache.Seen("m0") {
		t.Error("evicted entry should no longer count as seen")
	}
}
