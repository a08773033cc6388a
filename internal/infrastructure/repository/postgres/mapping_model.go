package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/matchscope/team-identity/internal/domain/mapping"
)

type mappingTableModel struct {
	ID              string         `db:"id"`
	PrimaryName     string         `db:"primary_name"`
	AllSportsID     sql.NullString `db:"allsports_id"`
	AllSportsName   sql.NullString `db:"allsports_name"`
	APIFootballID   sql.NullString `db:"apifootball_id"`
	APIFootballName sql.NullString `db:"apifootball_name"`
	Country         sql.NullString `db:"country"`
	League          sql.NullString `db:"league"`
	Variations      []byte         `db:"variations"`
	Confidence      float64        `db:"confidence"`
	Method          sql.NullString `db:"method"`
	Verified        bool           `db:"verified"`
	AutoDiscovered  bool           `db:"auto_discovered"`
	CrossCountry    bool           `db:"cross_country"`
	ConsecutiveHits int            `db:"consecutive_hits"`
	LastSyncedAt    time.Time      `db:"last_synced_at"`
	RetiredAt       sql.NullTime   `db:"retired_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func toTableModel(m mapping.Mapping, now time.Time) (mappingTableModel, error) {
	variations, err := sonic.Marshal(m.Variations)
	if err != nil {
		return mappingTableModel{}, fmt.Errorf("encode variations: %w", err)
	}

	row := mappingTableModel{
		ID:              m.ID,
		PrimaryName:     m.PrimaryName,
		Country:         toNullString(m.Country),
		League:          toNullString(m.League),
		Variations:      variations,
		Confidence:      m.Confidence,
		Method:          toNullString(m.Method),
		Verified:        m.Verified,
		AutoDiscovered:  m.AutoDiscovered,
		CrossCountry:    m.CrossCountry,
		ConsecutiveHits: m.ConsecutiveHits,
		LastSyncedAt:    m.LastSyncedAt,
		UpdatedAt:       now,
	}
	if m.AllSports != nil {
		row.AllSportsID = toNullString(m.AllSports.ID)
		row.AllSportsName = toNullString(m.AllSports.Name)
	}
	if m.APIFootball != nil {
		row.APIFootballID = toNullString(m.APIFootball.ID)
		row.APIFootballName = toNullString(m.APIFootball.Name)
	}
	if m.RetiredAt != nil {
		row.RetiredAt = sql.NullTime{Time: *m.RetiredAt, Valid: true}
	}
	return row, nil
}

func fromTableModel(row mappingTableModel) (mapping.Mapping, error) {
	var variations []string
	if len(row.Variations) > 0 {
		if err := sonic.Unmarshal(row.Variations, &variations); err != nil {
			return mapping.Mapping{}, fmt.Errorf("decode variations for %s: %w", row.ID, err)
		}
	}

	m := mapping.Mapping{
		ID:              row.ID,
		PrimaryName:     row.PrimaryName,
		Country:         row.Country.String,
		League:          row.League.String,
		Variations:      variations,
		Confidence:      row.Confidence,
		Method:          row.Method.String,
		Verified:        row.Verified,
		AutoDiscovered:  row.AutoDiscovered,
		CrossCountry:    row.CrossCountry,
		ConsecutiveHits: row.ConsecutiveHits,
		LastSyncedAt:    row.LastSyncedAt,
	}
	if row.AllSportsID.Valid {
		m.AllSports = &mapping.SourceRef{ID: row.AllSportsID.String, Name: row.AllSportsName.String}
	}
	if row.APIFootballID.Valid {
		m.APIFootball = &mapping.SourceRef{ID: row.APIFootballID.String, Name: row.APIFootballName.String}
	}
	if row.RetiredAt.Valid {
		retiredAt := row.RetiredAt.Time
		m.RetiredAt = &retiredAt
	}
	return m, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
