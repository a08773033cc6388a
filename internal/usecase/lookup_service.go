package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/platform/cache"
	"github.com/matchscope/team-identity/internal/platform/logging"
	"github.com/matchscope/team-identity/internal/similarity"
)

// LookupOptions narrow a name lookup. Zero values mean no restriction.
type LookupOptions struct {
	// Source restricts hits to mappings linked to that provider.
	Source record.Source
	// Country restricts the candidate set to one partition.
	Country string
}

// resolveCacheTTL bounds how long a name resolution may lag store writes.
const resolveCacheTTL = 5 * time.Minute

type resolveHit struct {
	mapping mapping.Mapping
	found   bool
}

// LookupService is the read-only query surface for statistics consumers.
// It never invokes the resolver and never mutates the store; a miss is a
// plain not-found result, not an error. Name resolutions are cached because
// the scoring fallback walks every stored variation.
type LookupService struct {
	store     mapping.Store
	threshold float64
	resolved  *cache.Store[resolveHit]
	logger    *logging.Logger
}

func NewLookupService(store mapping.Store, acceptThreshold float64, logger *logging.Logger) (*LookupService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	if acceptThreshold <= 0 || acceptThreshold > 1 {
		return nil, fmt.Errorf("%w: accept threshold %.3f is outside (0,1]", ErrInvalidInput, acceptThreshold)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LookupService{
		store:     store,
		threshold: acceptThreshold,
		resolved:  cache.New[resolveHit](resolveCacheTTL),
		logger:    logger,
	}, nil
}

// BySourceID is the point lookup on a provider's own team ID.
func (s *LookupService) BySourceID(ctx context.Context, src record.Source, sourceID string) (mapping.Mapping, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "LookupService.BySourceID")
	defer span.End()

	if !src.Valid() || strings.TrimSpace(sourceID) == "" {
		return mapping.Mapping{}, false, fmt.Errorf("%w: source and source id are required", ErrInvalidInput)
	}
	return s.store.GetBySourceID(ctx, src, sourceID)
}

// Resolve finds the mapping for a raw team name. It tries an exact match
// against stored variations first, then falls back to scoring; fallback
// hits below the accept threshold are treated as not found.
func (s *LookupService) Resolve(ctx context.Context, name string, opts LookupOptions) (mapping.Mapping, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "LookupService.Resolve")
	defer span.End()

	normalized := similarity.Normalize(name)
	if normalized == "" {
		return mapping.Mapping{}, false, nil
	}

	key := strings.Join([]string{normalized, string(opts.Source), strings.ToLower(strings.TrimSpace(opts.Country))}, "|")
	hit, err := s.resolved.GetOrLoad(ctx, key, func(ctx context.Context) (resolveHit, error) {
		return s.resolve(ctx, name, normalized, opts)
	})
	if err != nil {
		return mapping.Mapping{}, false, err
	}
	return hit.mapping, hit.found, nil
}

// InvalidateCache drops cached name resolutions. The sync daemon calls it
// after each committed cycle so lookups pick up fresh mappings immediately.
func (s *LookupService) InvalidateCache() {
	s.resolved.Purge()
}

func (s *LookupService) resolve(ctx context.Context, name, normalized string, opts LookupOptions) (resolveHit, error) {
	candidates, err := s.candidates(ctx, opts)
	if err != nil {
		return resolveHit{}, fmt.Errorf("load candidates: %w", err)
	}

	var (
		best      mapping.Mapping
		bestScore float64
	)
	for _, m := range candidates {
		for _, variation := range m.Variations {
			v := similarity.Normalize(variation)
			if v == normalized {
				return resolveHit{mapping: m, found: true}, nil
			}
			if score := similarity.Compare(normalized, v); score.Value > bestScore {
				best = m
				bestScore = score.Value
			}
		}
	}

	if bestScore < s.threshold {
		s.logger.DebugContext(ctx, "name lookup missed",
			"name", name, "best_score", bestScore)
		return resolveHit{}, nil
	}
	return resolveHit{mapping: best, found: true}, nil
}

// Stats reports mapping coverage.
func (s *LookupService) Stats(ctx context.Context) (mapping.Stats, error) {
	ctx, span := startUsecaseSpan(ctx, "LookupService.Stats")
	defer span.End()

	return s.store.Stats(ctx)
}

func (s *LookupService) candidates(ctx context.Context, opts LookupOptions) ([]mapping.Mapping, error) {
	var (
		rows []mapping.Mapping
		err  error
	)
	if strings.TrimSpace(opts.Country) != "" {
		rows, err = s.store.ListByCountry(ctx, opts.Country)
	} else {
		rows, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	filtered := rows[:0]
	for _, m := range rows {
		if m.Retired() {
			continue
		}
		if opts.Source.Valid() && m.Ref(opts.Source) == nil {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}
