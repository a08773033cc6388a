package mapping

import (
	"context"
	"errors"
	"time"

	"github.com/matchscope/team-identity/internal/domain/record"
)

// ErrLowerConfidence is returned by Upsert when the incoming write loses a
// slot conflict against an equal-or-higher-confidence mapping that already
// owns one of its source refs.
var ErrLowerConfidence = errors.New("existing mapping holds the slot at equal or higher confidence")

// Store describes mapping persistence needs from the resolver and
// orchestrator. Implementations must keep the one-to-one invariant: a
// (source, source id) pair belongs to at most one live mapping.
type Store interface {
	// Upsert writes a mapping keyed by its source refs. Conflicting refs
	// are resolved deterministically by confidence: the loser is unlinked
	// from the ref (or the write fails with ErrLowerConfidence).
	Upsert(ctx context.Context, m Mapping) (Mapping, error)
	GetBySourceID(ctx context.Context, src record.Source, sourceID string) (Mapping, bool, error)
	ListByCountry(ctx context.Context, country string) ([]Mapping, error)
	List(ctx context.Context) ([]Mapping, error)
	// Retire soft-deletes a mapping; retired mappings stay readable
	// because downstream statistics may still reference them.
	Retire(ctx context.Context, id string, at time.Time) error
	Stats(ctx context.Context) (Stats, error)
}

// Flusher is implemented by stores that buffer writes and persist on
// demand; the orchestrator flushes after each committed partition.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Stats summarizes mapping coverage for downstream collaborators.
type Stats struct {
	Total         int            `json:"total"`
	BothSources   int            `json:"both_sources"`
	Verified      int            `json:"verified"`
	Retired       int            `json:"retired"`
	AvgConfidence float64        `json:"avg_confidence"`
	ByCountry     map[string]int `json:"by_country"`
}
