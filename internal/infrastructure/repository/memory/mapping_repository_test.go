package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
)

func pairedMapping(id, primary, asID, afID string, confidence float64) mapping.Mapping {
	m := mapping.Mapping{
		ID:           id,
		PrimaryName:  primary,
		Country:      "England",
		Confidence:   confidence,
		Method:       "levenshtein",
		LastSyncedAt: time.Now().UTC(),
	}
	if asID != "" {
		m.AllSports = &mapping.SourceRef{ID: asID, Name: primary}
	}
	if afID != "" {
		m.APIFootball = &mapping.SourceRef{ID: afID, Name: primary}
	}
	m.AddVariation(primary)
	return m
}

func TestUpsertAndGetBySourceID(t *testing.T) {
	t.Parallel()

	repo, err := NewMappingRepository(nil)
	if err != nil {
		t.Fatalf("NewMappingRepository: %v", err)
	}
	ctx := context.Background()

	stored, err := repo.Upsert(ctx, pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.92))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.ID != "m1" {
		t.Fatalf("stored id=%s, want m1", stored.ID)
	}

	for _, src := range record.Sources() {
		got, found, err := repo.GetBySourceID(ctx, src, map[record.Source]string{
			record.SourceAllSports:   "as-1",
			record.SourceAPIFootball: "af-1",
		}[src])
		if err != nil || !found {
			t.Fatalf("GetBySourceID(%s): found=%v err=%v", src, found, err)
		}
		if got.ID != "m1" {
			t.Fatalf("GetBySourceID(%s) id=%s, want m1", src, got.ID)
		}
	}

	if _, found, _ := repo.GetBySourceID(ctx, record.SourceAllSports, "missing"); found {
		t.Fatal("lookup of unknown ref should not find anything")
	}
}

func TestUpsertMergesVariations(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	first := pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.85)
	if _, err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second := pairedMapping("m1", "Arsenal FC", "as-1", "af-1", 0.90)
	stored, err := repo.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if stored.Confidence != 0.90 {
		t.Fatalf("confidence=%.2f, want the higher 0.90", stored.Confidence)
	}
	if len(stored.Variations) != 2 {
		t.Fatalf("variations=%v, want both spellings", stored.Variations)
	}
}

func TestUpsertSlotConflictLowerConfidenceLoses(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.92)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Different mapping claiming the same API-Football ref at lower
	// confidence must lose.
	challenger := pairedMapping("m2", "Arsenal Reserves", "as-2", "af-1", 0.81)
	_, err := repo.Upsert(ctx, challenger)
	if !errors.Is(err, mapping.ErrLowerConfidence) {
		t.Fatalf("err=%v, want ErrLowerConfidence", err)
	}

	got, found, _ := repo.GetBySourceID(ctx, record.SourceAPIFootball, "af-1")
	if !found || got.ID != "m1" {
		t.Fatalf("slot owner=%v found=%v, want m1 untouched", got.ID, found)
	}
}

func TestUpsertSlotConflictHigherConfidenceSupersedes(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.81)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	winner := pairedMapping("m2", "Arsenal", "as-2", "af-1", 0.97)
	if _, err := repo.Upsert(ctx, winner); err != nil {
		t.Fatalf("superseding Upsert: %v", err)
	}

	got, found, _ := repo.GetBySourceID(ctx, record.SourceAPIFootball, "af-1")
	if !found || got.ID != "m2" {
		t.Fatalf("slot owner=%v, want superseding m2", got.ID)
	}

	// The prior owner reverted to a single-source mapping.
	prior, found, _ := repo.GetBySourceID(ctx, record.SourceAllSports, "as-1")
	if !found {
		t.Fatal("prior owner should survive as a single-source mapping")
	}
	if prior.APIFootball != nil {
		t.Fatalf("prior owner still holds the contested ref: %+v", prior.APIFootball)
	}
}

func TestUpsertNeverSupersedesVerified(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	verified := pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.85)
	verified.Verified = true
	if _, err := repo.Upsert(ctx, verified); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	challenger := pairedMapping("m2", "Arsenal", "as-2", "af-1", 0.99)
	_, err := repo.Upsert(ctx, challenger)
	if !errors.Is(err, mapping.ErrLowerConfidence) {
		t.Fatalf("err=%v, a verified slot owner must never be superseded", err)
	}
}

func TestRetireIsSoftDelete(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.9)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	at := time.Now().UTC()
	if err := repo.Retire(ctx, "m1", at); err != nil {
		t.Fatalf("Retire: %v", err)
	}

	got, found, _ := repo.GetBySourceID(ctx, record.SourceAllSports, "as-1")
	if !found {
		t.Fatal("retired mapping must stay readable")
	}
	if !got.Retired() {
		t.Fatal("mapping should carry its retirement timestamp")
	}

	if err := repo.Retire(ctx, "missing", at); err == nil {
		t.Fatal("retiring an unknown mapping should fail")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	a := pairedMapping("m1", "Arsenal", "as-1", "af-1", 0.90)
	a.Verified = true
	b := pairedMapping("m2", "Wrexham", "as-2", "", 1.0)
	c := pairedMapping("m3", "Retired FC", "as-3", "af-3", 0.80)
	for _, m := range []mapping.Mapping{a, b, c} {
		if _, err := repo.Upsert(ctx, m); err != nil {
			t.Fatalf("Upsert %s: %v", m.ID, err)
		}
	}
	if err := repo.Retire(ctx, "m3", time.Now().UTC()); err != nil {
		t.Fatalf("Retire: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Retired != 1 || stats.BothSources != 1 || stats.Verified != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	want := (0.90 + 1.0) / 2
	if stats.AvgConfidence < want-0.001 || stats.AvgConfidence > want+0.001 {
		t.Fatalf("avg confidence=%.4f, want %.4f over live mappings", stats.AvgConfidence, want)
	}
	if stats.ByCountry["England"] != 2 {
		t.Fatalf("by country=%v", stats.ByCountry)
	}
}

func TestConcurrentUpsertsKeepSlotUnique(t *testing.T) {
	t.Parallel()

	repo, _ := NewMappingRepository(nil)
	ctx := context.Background()

	// Many writers race for the same API-Football ref with distinct
	// confidences; exactly one mapping may own it afterwards.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := pairedMapping(
				fmt.Sprintf("m%d", i),
				fmt.Sprintf("Team %d", i),
				fmt.Sprintf("as-%d", i),
				"af-shared",
				0.70+float64(i)*0.009,
			)
			_, _ = repo.Upsert(ctx, m)
		}()
	}
	wg.Wait()

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	owners := 0
	for _, m := range all {
		if m.APIFootball != nil && m.APIFootball.ID == "af-shared" {
			owners++
		}
	}
	if owners != 1 {
		t.Fatalf("%d mappings own the shared ref, want exactly 1", owners)
	}
}
