package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
)

func sampleMapping(id string) mapping.Mapping {
	retired := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m := mapping.Mapping{
		ID:              id,
		PrimaryName:     "Barcelona",
		AllSports:       &mapping.SourceRef{ID: "as-" + id, Name: "FC Barcelona"},
		APIFootball:     &mapping.SourceRef{ID: "af-" + id, Name: "Barcelona"},
		Country:         "Spain",
		League:          "La Liga",
		Variations:      []string{"FC Barcelona", "Barcelona"},
		Confidence:      0.97,
		Method:          "levenshtein",
		Verified:        true,
		AutoDiscovered:  true,
		ConsecutiveHits: 2,
		LastSyncedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if id == "retired" {
		m.RetiredAt = &retired
	}
	return m
}

func TestFlushAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mappings.json")
	ctx := context.Background()

	repo, err := NewMappingRepository(path)
	if err != nil {
		t.Fatalf("NewMappingRepository: %v", err)
	}
	for _, id := range []string{"m1", "retired"} {
		if _, err := repo.Upsert(ctx, sampleMapping(id)); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	if err := repo.Retire(ctx, "retired", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Retire: %v", err)
	}
	if err := repo.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded, err := NewMappingRepository(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, found, err := reloaded.GetBySourceID(ctx, record.SourceAllSports, "as-m1")
	if err != nil || !found {
		t.Fatalf("GetBySourceID after reload: found=%v err=%v", found, err)
	}
	want := sampleMapping("m1")
	if got.PrimaryName != want.PrimaryName ||
		got.Confidence != want.Confidence ||
		got.Verified != want.Verified ||
		got.ConsecutiveHits != want.ConsecutiveHits ||
		!got.LastSyncedAt.Equal(want.LastSyncedAt) ||
		len(got.Variations) != len(want.Variations) {
		t.Fatalf("reloaded mapping drifted: %+v", got)
	}

	retired, found, _ := reloaded.GetBySourceID(ctx, record.SourceAllSports, "as-retired")
	if !found || !retired.Retired() {
		t.Fatalf("retired mapping after reload: found=%v retired=%v", found, retired.Retired())
	}
}

func TestNewRepositoryMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope", "mappings.json")
	repo, err := NewMappingRepository(path)
	if err != nil {
		t.Fatalf("NewMappingRepository: %v", err)
	}
	all, err := repo.List(context.Background())
	if err != nil || len(all) != 0 {
		t.Fatalf("fresh store: %d mappings, err=%v", len(all), err)
	}

	// First flush creates the directory.
	if err := repo.Flush(context.Background()); err != nil {
		t.Fatalf("Flush into missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not written: %v", err)
	}
}

func TestNewRepositoryRejectsCorruptDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mappings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := NewMappingRepository(path); err == nil {
		t.Fatal("corrupt document should fail loading, not silently start empty")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	ctx := context.Background()

	cp, err := NewCheckpoint(path)
	if err != nil {
		t.Fatalf("NewCheckpoint: %v", err)
	}
	if cp.Done("Spain") {
		t.Fatal("fresh checkpoint should have nothing done")
	}
	if err := cp.Mark(ctx, "Spain"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := cp.Mark(ctx, "England"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	// A restart picks up the committed partitions.
	resumed, err := NewCheckpoint(path)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.Done("Spain") || !resumed.Done("England") || resumed.Done("Italy") {
		t.Fatal("resumed checkpoint lost state")
	}

	if err := resumed.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("checkpoint file should be gone after reset, stat err=%v", err)
	}

	fresh, err := NewCheckpoint(path)
	if err != nil {
		t.Fatalf("NewCheckpoint after reset: %v", err)
	}
	if fresh.Done("Spain") {
		t.Fatal("reset cycle should start clean")
	}
}
