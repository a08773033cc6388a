package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
)

const mappingColumns = `id, primary_name, allsports_id, allsports_name,
	apifootball_id, apifootball_name, country, league, variations,
	confidence, method, verified, auto_discovered, cross_country,
	consecutive_hits, last_synced_at, retired_at, created_at, updated_at`

// MappingRepository stores mappings in a team_mappings table. The slot
// conflict check runs inside one transaction with the contested rows
// locked, so concurrent upserts cannot violate source ref uniqueness.
type MappingRepository struct {
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) Upsert(ctx context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	if existing, found, err := getByID(ctx, tx, m.ID); err != nil {
		return mapping.Mapping{}, err
	} else if found {
		m = mapping.Merge(existing, m, false)
	}
	if err := m.Validate(); err != nil {
		return mapping.Mapping{}, err
	}

	for _, src := range record.Sources() {
		ref := m.Ref(src)
		if ref == nil {
			continue
		}
		owner, found, err := getBySourceIDLocked(ctx, tx, src, ref.ID)
		if err != nil {
			return mapping.Mapping{}, err
		}
		if !found || owner.ID == m.ID {
			continue
		}
		if owner.Verified || owner.Confidence >= m.Confidence {
			return mapping.Mapping{}, fmt.Errorf(
				"slot %s/%s owned by mapping %s: %w",
				src, ref.ID, owner.ID, mapping.ErrLowerConfidence)
		}
		if err := unlink(ctx, tx, owner, src); err != nil {
			return mapping.Mapping{}, err
		}
	}

	row, err := toTableModel(m, time.Now().UTC())
	if err != nil {
		return mapping.Mapping{}, err
	}
	const upsertQuery = `
		INSERT INTO team_mappings (
			id, primary_name, allsports_id, allsports_name,
			apifootball_id, apifootball_name, country, league, variations,
			confidence, method, verified, auto_discovered, cross_country,
			consecutive_hits, last_synced_at, retired_at, created_at, updated_at
		) VALUES (
			:id, :primary_name, :allsports_id, :allsports_name,
			:apifootball_id, :apifootball_name, :country, :league, :variations,
			:confidence, :method, :verified, :auto_discovered, :cross_country,
			:consecutive_hits, :last_synced_at, :retired_at, :updated_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			primary_name = EXCLUDED.primary_name,
			allsports_id = EXCLUDED.allsports_id,
			allsports_name = EXCLUDED.allsports_name,
			apifootball_id = EXCLUDED.apifootball_id,
			apifootball_name = EXCLUDED.apifootball_name,
			country = EXCLUDED.country,
			league = EXCLUDED.league,
			variations = EXCLUDED.variations,
			confidence = EXCLUDED.confidence,
			method = EXCLUDED.method,
			verified = EXCLUDED.verified,
			auto_discovered = EXCLUDED.auto_discovered,
			cross_country = EXCLUDED.cross_country,
			consecutive_hits = EXCLUDED.consecutive_hits,
			last_synced_at = EXCLUDED.last_synced_at,
			retired_at = EXCLUDED.retired_at,
			updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsertQuery, row); err != nil {
		return mapping.Mapping{}, fmt.Errorf("upsert mapping %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return mapping.Mapping{}, fmt.Errorf("commit upsert tx: %w", err)
	}
	return m, nil
}

func (r *MappingRepository) GetBySourceID(ctx context.Context, src record.Source, sourceID string) (mapping.Mapping, bool, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM team_mappings WHERE %s = $1`,
		mappingColumns, refColumn(src))

	var row mappingTableModel
	if err := r.db.GetContext(ctx, &row, query, sourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapping.Mapping{}, false, nil
		}
		return mapping.Mapping{}, false, fmt.Errorf("select mapping by %s ref: %w", src, err)
	}
	m, err := fromTableModel(row)
	if err != nil {
		return mapping.Mapping{}, false, err
	}
	return m, true, nil
}

func (r *MappingRepository) ListByCountry(ctx context.Context, country string) ([]mapping.Mapping, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM team_mappings WHERE LOWER(country) = LOWER($1) ORDER BY id`,
		mappingColumns)
	return r.list(ctx, query, country)
}

func (r *MappingRepository) List(ctx context.Context) ([]mapping.Mapping, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_mappings ORDER BY id`, mappingColumns)
	return r.list(ctx, query)
}

func (r *MappingRepository) Retire(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE team_mappings
		SET retired_at = $2, updated_at = $2
		WHERE id = $1 AND retired_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("retire mapping %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("retire mapping %s rows affected: %w", id, err)
	}
	if affected == 0 {
		// Either unknown or already retired; only the former is an error.
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM team_mappings WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("check mapping %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("mapping %s not found", id)
		}
	}
	return nil
}

func (r *MappingRepository) Stats(ctx context.Context) (mapping.Stats, error) {
	const query = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE retired_at IS NOT NULL) AS retired,
			COUNT(*) FILTER (WHERE retired_at IS NULL
				AND allsports_id IS NOT NULL
				AND apifootball_id IS NOT NULL) AS both_sources,
			COUNT(*) FILTER (WHERE retired_at IS NULL AND verified) AS verified,
			COALESCE(AVG(confidence) FILTER (WHERE retired_at IS NULL), 0) AS avg_confidence
		FROM team_mappings`

	var agg struct {
		Total         int     `db:"total"`
		Retired       int     `db:"retired"`
		BothSources   int     `db:"both_sources"`
		Verified      int     `db:"verified"`
		AvgConfidence float64 `db:"avg_confidence"`
	}
	if err := r.db.GetContext(ctx, &agg, query); err != nil {
		return mapping.Stats{}, fmt.Errorf("aggregate mapping stats: %w", err)
	}

	stats := mapping.Stats{
		Total:         agg.Total,
		Retired:       agg.Retired,
		BothSources:   agg.BothSources,
		Verified:      agg.Verified,
		AvgConfidence: agg.AvgConfidence,
		ByCountry:     make(map[string]int),
	}

	const byCountryQuery = `
		SELECT country, COUNT(*) AS n
		FROM team_mappings
		WHERE retired_at IS NULL AND country IS NOT NULL
		GROUP BY country`
	rows, err := r.db.QueryxContext(ctx, byCountryQuery)
	if err != nil {
		return mapping.Stats{}, fmt.Errorf("aggregate mappings by country: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			country string
			n       int
		)
		if err := rows.Scan(&country, &n); err != nil {
			return mapping.Stats{}, fmt.Errorf("scan country aggregate: %w", err)
		}
		stats.ByCountry[country] = n
	}
	if err := rows.Err(); err != nil {
		return mapping.Stats{}, fmt.Errorf("iterate country aggregates: %w", err)
	}
	return stats, nil
}

func (r *MappingRepository) list(ctx context.Context, query string, args ...any) ([]mapping.Mapping, error) {
	var rows []mappingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select mappings: %w", err)
	}
	out := make([]mapping.Mapping, 0, len(rows))
	for _, row := range rows {
		m, err := fromTableModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func getByID(ctx context.Context, tx *sqlx.Tx, id string) (mapping.Mapping, bool, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM team_mappings WHERE id = $1 FOR UPDATE`, mappingColumns)

	var row mappingTableModel
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapping.Mapping{}, false, nil
		}
		return mapping.Mapping{}, false, fmt.Errorf("select mapping %s: %w", id, err)
	}
	m, err := fromTableModel(row)
	if err != nil {
		return mapping.Mapping{}, false, err
	}
	return m, true, nil
}

func getBySourceIDLocked(ctx context.Context, tx *sqlx.Tx, src record.Source, sourceID string) (mapping.Mapping, bool, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM team_mappings WHERE %s = $1 FOR UPDATE`,
		mappingColumns, refColumn(src))

	var row mappingTableModel
	if err := tx.GetContext(ctx, &row, query, sourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapping.Mapping{}, false, nil
		}
		return mapping.Mapping{}, false, fmt.Errorf("select mapping by %s ref: %w", src, err)
	}
	m, err := fromTableModel(row)
	if err != nil {
		return mapping.Mapping{}, false, err
	}
	return m, true, nil
}

// unlink strips one source ref from a superseded mapping; a mapping with
// no refs left is removed.
func unlink(ctx context.Context, tx *sqlx.Tx, owner mapping.Mapping, src record.Source) error {
	owner.SetRef(src, nil)
	if owner.AllSports == nil && owner.APIFootball == nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM team_mappings WHERE id = $1`, owner.ID); err != nil {
			return fmt.Errorf("drop orphaned mapping %s: %w", owner.ID, err)
		}
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE team_mappings
		SET %s = NULL, %s = NULL, updated_at = $2
		WHERE id = $1`, refColumn(src), refNameColumn(src))
	if _, err := tx.ExecContext(ctx, query, owner.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("unlink %s ref from mapping %s: %w", src, owner.ID, err)
	}
	return nil
}

func refColumn(src record.Source) string {
	if src == record.SourceAPIFootball {
		return "apifootball_id"
	}
	return "allsports_id"
}

func refNameColumn(src record.Source) string {
	if src == record.SourceAPIFootball {
		return "apifootball_name"
	}
	return "allsports_name"
}
