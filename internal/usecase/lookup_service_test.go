package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/infrastructure/repository/memory"
	"github.com/matchscope/team-identity/internal/platform/logging"
)

func seedLookupStore(t *testing.T) *memory.MappingRepository {
	t.Helper()

	now := time.Now().UTC()
	seed := []mapping.Mapping{
		{
			ID:           "m-barca",
			PrimaryName:  "Barcelona",
			AllSports:    &mapping.SourceRef{ID: "as-1", Name: "FC Barcelona"},
			APIFootball:  &mapping.SourceRef{ID: "af-1", Name: "Barcelona"},
			Country:      "Spain",
			Variations:   []string{"FC Barcelona", "Barcelona", "Barça"},
			Confidence:   0.98,
			Method:       "exact",
			Verified:     true,
			LastSyncedAt: now,
		},
		{
			ID:           "m-wrexham",
			PrimaryName:  "Wrexham",
			AllSports:    &mapping.SourceRef{ID: "as-2", Name: "Wrexham AFC"},
			Country:      "Wales",
			Variations:   []string{"Wrexham AFC"},
			Confidence:   1.0,
			Method:       "exact",
			LastSyncedAt: now,
		},
	}
	store, err := memory.NewMappingRepository(seed)
	if err != nil {
		t.Fatalf("NewMappingRepository: %v", err)
	}
	return store
}

func newLookup(t *testing.T) (*LookupService, *memory.MappingRepository) {
	t.Helper()

	store := seedLookupStore(t)
	svc, err := NewLookupService(store, DefaultResolverConfig().AcceptThreshold, logging.NewNop())
	if err != nil {
		t.Fatalf("NewLookupService: %v", err)
	}
	return svc, store
}

func TestLookupBySourceID(t *testing.T) {
	t.Parallel()

	svc, _ := newLookup(t)
	ctx := context.Background()

	got, found, err := svc.BySourceID(ctx, record.SourceAPIFootball, "af-1")
	if err != nil || !found {
		t.Fatalf("BySourceID: found=%v err=%v", found, err)
	}
	if got.ID != "m-barca" {
		t.Fatalf("got %s, want m-barca", got.ID)
	}

	if _, found, err := svc.BySourceID(ctx, record.SourceAPIFootball, "af-404"); err != nil || found {
		t.Fatalf("miss should be a plain not-found, got found=%v err=%v", found, err)
	}

	if _, _, err := svc.BySourceID(ctx, record.Source("bogus"), "af-1"); err == nil {
		t.Fatal("invalid source should be rejected")
	}
}

func TestLookupResolveExactVariation(t *testing.T) {
	t.Parallel()

	svc, _ := newLookup(t)
	ctx := context.Background()

	for _, name := range []string{"FC Barcelona", "barcelona", "Barça"} {
		got, found, err := svc.Resolve(ctx, name, LookupOptions{})
		if err != nil || !found {
			t.Fatalf("Resolve(%q): found=%v err=%v", name, found, err)
		}
		if got.ID != "m-barca" {
			t.Fatalf("Resolve(%q)=%s, want m-barca", name, got.ID)
		}
	}
}

func TestLookupResolveFuzzyFallback(t *testing.T) {
	t.Parallel()

	svc, _ := newLookup(t)
	ctx := context.Background()

	// Misspelling close enough for the scorer but with no exact variation.
	got, found, err := svc.Resolve(ctx, "Barcelonna", LookupOptions{})
	if err != nil || !found {
		t.Fatalf("fuzzy Resolve: found=%v err=%v", found, err)
	}
	if got.ID != "m-barca" {
		t.Fatalf("fuzzy Resolve=%s, want m-barca", got.ID)
	}
}

func TestLookupResolveBelowThresholdIsNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newLookup(t)
	ctx := context.Background()

	if _, found, err := svc.Resolve(ctx, "Borussia Dortmund", LookupOptions{}); err != nil || found {
		t.Fatalf("unrelated name: found=%v err=%v, want clean miss", found, err)
	}
	if _, found, err := svc.Resolve(ctx, "", LookupOptions{}); err != nil || found {
		t.Fatalf("empty name: found=%v err=%v, want clean miss", found, err)
	}
}

func TestLookupResolveHints(t *testing.T) {
	t.Parallel()

	svc, _ := newLookup(t)
	ctx := context.Background()

	// Country hint keeps the search inside one partition.
	if _, found, _ := svc.Resolve(ctx, "Barcelona", LookupOptions{Country: "Wales"}); found {
		t.Fatal("country hint should exclude other partitions")
	}

	// Source hint excludes mappings not linked to that provider.
	if _, found, _ := svc.Resolve(ctx, "Wrexham AFC", LookupOptions{Source: record.SourceAPIFootball}); found {
		t.Fatal("source hint should exclude single-source mappings of the other provider")
	}
	got, found, err := svc.Resolve(ctx, "Wrexham AFC", LookupOptions{Source: record.SourceAllSports})
	if err != nil || !found || got.ID != "m-wrexham" {
		t.Fatalf("source-hinted Resolve: got=%v found=%v err=%v", got.ID, found, err)
	}
}

func TestLookupResolveCachesUntilInvalidated(t *testing.T) {
	t.Parallel()

	svc, store := newLookup(t)
	ctx := context.Background()

	if _, found, err := svc.Resolve(ctx, "Wrexham AFC", LookupOptions{}); err != nil || !found {
		t.Fatalf("warm-up Resolve: found=%v err=%v", found, err)
	}

	if err := store.Retire(ctx, "m-wrexham", time.Now().UTC()); err != nil {
		t.Fatalf("Retire: %v", err)
	}

	// Still served from cache.
	if _, found, _ := svc.Resolve(ctx, "Wrexham AFC", LookupOptions{}); !found {
		t.Fatal("cached resolution should survive the store write")
	}

	svc.InvalidateCache()
	if _, found, _ := svc.Resolve(ctx, "Wrexham AFC", LookupOptions{}); found {
		t.Fatal("retired mapping should not resolve after invalidation")
	}
}

func TestLookupStats(t *testing.T) {
	t.Parallel()

	svc, _ := newLookup(t)
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.BothSources != 1 || stats.Verified != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}
