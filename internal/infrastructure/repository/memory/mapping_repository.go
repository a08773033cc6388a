package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
)

// MappingRepository keeps mappings in memory, indexed by mapping ID and by
// (source, source id). It enforces the slot uniqueness rule inside Upsert
// so concurrent writers cannot end up sharing a source ref.
type MappingRepository struct {
	mu   sync.RWMutex
	rows map[string]mapping.Mapping
	// refs maps "source|id" to the owning mapping ID.
	refs map[string]string
}

func NewMappingRepository(seed []mapping.Mapping) (*MappingRepository, error) {
	r := &MappingRepository{
		rows: make(map[string]mapping.Mapping, len(seed)),
		refs: make(map[string]string, len(seed)*2),
	}
	for _, m := range seed {
		if err := r.put(m); err != nil {
			return nil, fmt.Errorf("seed mapping %s: %w", m.ID, err)
		}
	}
	return r, nil
}

func (r *MappingRepository) Upsert(_ context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rows[m.ID]; ok {
		m = mapping.Merge(existing, m, false)
	}
	if err := m.Validate(); err != nil {
		return mapping.Mapping{}, err
	}

	// Slot conflict: another live mapping already owns one of the refs.
	for _, src := range record.Sources() {
		ref := m.Ref(src)
		if ref == nil {
			continue
		}
		ownerID, taken := r.refs[refKey(src, ref.ID)]
		if !taken || ownerID == m.ID {
			continue
		}
		owner := r.rows[ownerID]
		if owner.Verified || owner.Confidence >= m.Confidence {
			return mapping.Mapping{}, fmt.Errorf(
				"slot %s/%s owned by mapping %s: %w",
				src, ref.ID, ownerID, mapping.ErrLowerConfidence)
		}
		// Supersede: the prior owner loses this ref and reverts to a
		// single-source mapping (or an orphan, which we drop).
		r.unlink(owner, src)
	}

	if err := r.put(m); err != nil {
		return mapping.Mapping{}, err
	}
	return m, nil
}

func (r *MappingRepository) GetBySourceID(_ context.Context, src record.Source, sourceID string) (mapping.Mapping, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ownerID, ok := r.refs[refKey(src, sourceID)]
	if !ok {
		return mapping.Mapping{}, false, nil
	}
	m, ok := r.rows[ownerID]
	return m, ok, nil
}

func (r *MappingRepository) ListByCountry(_ context.Context, country string) ([]mapping.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mapping.Mapping, 0)
	for _, m := range r.rows {
		if strings.EqualFold(m.Country, country) {
			out = append(out, m)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *MappingRepository) List(_ context.Context) ([]mapping.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mapping.Mapping, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, m)
	}
	sortByID(out)
	return out, nil
}

func (r *MappingRepository) Retire(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("mapping %s not found", id)
	}
	if m.RetiredAt == nil {
		retiredAt := at
		m.RetiredAt = &retiredAt
		r.rows[id] = m
	}
	return nil
}

func (r *MappingRepository) Stats(_ context.Context) (mapping.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := mapping.Stats{ByCountry: make(map[string]int)}
	var confidenceSum float64
	for _, m := range r.rows {
		stats.Total++
		if m.Retired() {
			stats.Retired++
			continue
		}
		if m.HasBothSources() {
			stats.BothSources++
		}
		if m.Verified {
			stats.Verified++
		}
		if m.Country != "" {
			stats.ByCountry[m.Country]++
		}
		confidenceSum += m.Confidence
	}
	if live := stats.Total - stats.Retired; live > 0 {
		stats.AvgConfidence = confidenceSum / float64(live)
	}
	return stats, nil
}

// put stores the row and reindexes its refs. Caller holds the write lock.
func (r *MappingRepository) put(m mapping.Mapping) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("mapping id is required")
	}
	if prev, ok := r.rows[m.ID]; ok {
		for _, src := range record.Sources() {
			if ref := prev.Ref(src); ref != nil {
				delete(r.refs, refKey(src, ref.ID))
			}
		}
	}
	r.rows[m.ID] = m
	for _, src := range record.Sources() {
		if ref := m.Ref(src); ref != nil {
			r.refs[refKey(src, ref.ID)] = m.ID
		}
	}
	return nil
}

// unlink removes one source ref from a mapping that lost a slot conflict.
// A mapping with no refs left is dropped outright. Caller holds the lock.
func (r *MappingRepository) unlink(owner mapping.Mapping, src record.Source) {
	ref := owner.Ref(src)
	if ref == nil {
		return
	}
	delete(r.refs, refKey(src, ref.ID))
	owner.SetRef(src, nil)

	if owner.AllSports == nil && owner.APIFootball == nil {
		delete(r.rows, owner.ID)
		return
	}
	r.rows[owner.ID] = owner
}

func refKey(src record.Source, sourceID string) string {
	return string(src) + "|" + sourceID
}

func sortByID(rows []mapping.Mapping) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
}
