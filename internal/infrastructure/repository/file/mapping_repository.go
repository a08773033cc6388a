package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/infrastructure/repository/memory"
)

// document is the on-disk shape: one flat JSON object holding every
// mapping, loaded whole at startup and rewritten whole on flush.
type document struct {
	SavedAt  time.Time    `json:"saved_at"`
	Mappings []mappingRow `json:"mappings"`
}

type mappingRow struct {
	ID              string     `json:"id"`
	PrimaryName     string     `json:"primary_name"`
	AllSports       *sourceRow `json:"allsports,omitempty"`
	APIFootball     *sourceRow `json:"apifootball,omitempty"`
	Country         string     `json:"country,omitempty"`
	League          string     `json:"league,omitempty"`
	Variations      []string   `json:"variations,omitempty"`
	Confidence      float64    `json:"confidence"`
	Method          string     `json:"method,omitempty"`
	Verified        bool       `json:"verified"`
	AutoDiscovered  bool       `json:"auto_discovered"`
	CrossCountry    bool       `json:"cross_country,omitempty"`
	ConsecutiveHits int        `json:"consecutive_hits,omitempty"`
	LastSyncedAt    time.Time  `json:"last_synced_at"`
	RetiredAt       *time.Time `json:"retired_at,omitempty"`
}

type sourceRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MappingRepository is the durable mapping store: an in-memory repository
// checkpointed to one JSON document. Writes stay in memory until Flush,
// which the orchestrator calls after each committed partition.
type MappingRepository struct {
	path string
	mem  *memory.MappingRepository
}

func NewMappingRepository(path string) (*MappingRepository, error) {
	seed, err := load(path)
	if err != nil {
		return nil, err
	}
	mem, err := memory.NewMappingRepository(seed)
	if err != nil {
		return nil, fmt.Errorf("load mapping document %s: %w", path, err)
	}
	return &MappingRepository{path: path, mem: mem}, nil
}

func (r *MappingRepository) Upsert(ctx context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	return r.mem.Upsert(ctx, m)
}

func (r *MappingRepository) GetBySourceID(ctx context.Context, src record.Source, sourceID string) (mapping.Mapping, bool, error) {
	return r.mem.GetBySourceID(ctx, src, sourceID)
}

func (r *MappingRepository) ListByCountry(ctx context.Context, country string) ([]mapping.Mapping, error) {
	return r.mem.ListByCountry(ctx, country)
}

func (r *MappingRepository) List(ctx context.Context) ([]mapping.Mapping, error) {
	return r.mem.List(ctx)
}

func (r *MappingRepository) Retire(ctx context.Context, id string, at time.Time) error {
	return r.mem.Retire(ctx, id, at)
}

func (r *MappingRepository) Stats(ctx context.Context) (mapping.Stats, error) {
	return r.mem.Stats(ctx)
}

// Flush rewrites the whole document atomically: write a sibling temp file,
// then rename over the old one.
func (r *MappingRepository) Flush(ctx context.Context) error {
	rows, err := r.mem.List(ctx)
	if err != nil {
		return fmt.Errorf("snapshot mappings: %w", err)
	}

	doc := document{
		SavedAt:  time.Now().UTC(),
		Mappings: make([]mappingRow, 0, len(rows)),
	}
	for _, m := range rows {
		doc.Mappings = append(doc.Mappings, toRow(m))
	}

	raw, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode mapping document: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace mapping document: %w", err)
	}
	return nil
}

func load(path string) ([]mapping.Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mapping document %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var doc document
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode mapping document %s: %w", path, err)
	}

	out := make([]mapping.Mapping, 0, len(doc.Mappings))
	for _, row := range doc.Mappings {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func toRow(m mapping.Mapping) mappingRow {
	return mappingRow{
		ID:              m.ID,
		PrimaryName:     m.PrimaryName,
		AllSports:       toSourceRow(m.AllSports),
		APIFootball:     toSourceRow(m.APIFootball),
		Country:         m.Country,
		League:          m.League,
		Variations:      m.Variations,
		Confidence:      m.Confidence,
		Method:          m.Method,
		Verified:        m.Verified,
		AutoDiscovered:  m.AutoDiscovered,
		CrossCountry:    m.CrossCountry,
		ConsecutiveHits: m.ConsecutiveHits,
		LastSyncedAt:    m.LastSyncedAt,
		RetiredAt:       m.RetiredAt,
	}
}

func fromRow(row mappingRow) mapping.Mapping {
	return mapping.Mapping{
		ID:              row.ID,
		PrimaryName:     row.PrimaryName,
		AllSports:       fromSourceRow(row.AllSports),
		APIFootball:     fromSourceRow(row.APIFootball),
		Country:         row.Country,
		League:          row.League,
		Variations:      row.Variations,
		Confidence:      row.Confidence,
		Method:          row.Method,
		Verified:        row.Verified,
		AutoDiscovered:  row.AutoDiscovered,
		CrossCountry:    row.CrossCountry,
		ConsecutiveHits: row.ConsecutiveHits,
		LastSyncedAt:    row.LastSyncedAt,
		RetiredAt:       row.RetiredAt,
	}
}

func toSourceRow(ref *mapping.SourceRef) *sourceRow {
	if ref == nil {
		return nil
	}
	return &sourceRow{ID: ref.ID, Name: ref.Name}
}

func fromSourceRow(row *sourceRow) *mapping.SourceRef {
	if row == nil {
		return nil
	}
	return &mapping.SourceRef{ID: row.ID, Name: row.Name}
}
