package mapping

import (
	"fmt"
	"strings"
	"time"

	"github.com/matchscope/team-identity/internal/domain/record"
)

// SourceRef pins a mapping to one provider's identifier for the team.
type SourceRef struct {
	ID   string
	Name string
}

// Mapping is the canonical identity record linking one real-world team
// across both provider ID spaces.
type Mapping struct {
	ID          string
	PrimaryName string
	AllSports   *SourceRef
	APIFootball *SourceRef
	Country     string
	League      string
	// Variations collects every raw spelling ever observed for this team.
	Variations     []string
	Confidence     float64
	Method         string
	Verified       bool
	AutoDiscovered bool
	// CrossCountry records that the mapping was created with the explicit
	// cross-border override, so country agreement is not enforced on it.
	CrossCountry bool
	// ConsecutiveHits counts back-to-back high-confidence re-syncs and
	// drives automatic promotion to Verified.
	ConsecutiveHits int
	LastSyncedAt    time.Time
	RetiredAt       *time.Time
}

func (m Mapping) Validate() error {
	if strings.TrimSpace(m.PrimaryName) == "" {
		return fmt.Errorf("mapping primary name is required")
	}
	if m.AllSports == nil && m.APIFootball == nil {
		return fmt.Errorf("mapping needs at least one source reference")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("mapping confidence %.3f is outside [0,1]", m.Confidence)
	}
	if m.AllSports != nil && m.AllSports.ID == "" {
		return fmt.Errorf("mapping allsports ref id is required")
	}
	if m.APIFootball != nil && m.APIFootball.ID == "" {
		return fmt.Errorf("mapping apifootball ref id is required")
	}

	return nil
}

// Ref returns the reference for one provider, nil when unlinked.
func (m Mapping) Ref(src record.Source) *SourceRef {
	switch src {
	case record.SourceAllSports:
		return m.AllSports
	case record.SourceAPIFootball:
		return m.APIFootball
	default:
		return nil
	}
}

func (m *Mapping) SetRef(src record.Source, ref *SourceRef) {
	switch src {
	case record.SourceAllSports:
		m.AllSports = ref
	case record.SourceAPIFootball:
		m.APIFootball = ref
	}
}

func (m Mapping) HasBothSources() bool {
	return m.AllSports != nil && m.APIFootball != nil
}

func (m Mapping) Retired() bool {
	return m.RetiredAt != nil
}

// AddVariation records a raw spelling if it was not seen before.
func (m *Mapping) AddVariation(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	for _, existing := range m.Variations {
		if strings.EqualFold(existing, raw) {
			return
		}
	}
	m.Variations = append(m.Variations, raw)
}

// Merge folds an incoming resolution into an existing mapping.
//
// Rules: variations are unioned; the higher-confidence side supplies the
// primary name, method and confidence, except that a verified mapping is
// never demoted by an unverified incoming write unless manual is set.
// Missing source refs are filled from the incoming side.
func Merge(existing, incoming Mapping, manual bool) Mapping {
	out := existing

	for _, v := range incoming.Variations {
		out.AddVariation(v)
	}
	if incoming.LastSyncedAt.After(out.LastSyncedAt) {
		out.LastSyncedAt = incoming.LastSyncedAt
	}
	if incoming.RetiredAt == nil {
		// A live write revives a retired mapping.
		out.RetiredAt = nil
	}

	if existing.Verified && !manual {
		// Automatic syncs may only enrich a verified mapping, never
		// rewrite its identity.
		if out.AllSports == nil {
			out.AllSports = incoming.AllSports
		}
		if out.APIFootball == nil {
			out.APIFootball = incoming.APIFootball
		}
		if out.League == "" {
			out.League = incoming.League
		}
		return out
	}

	promote := incoming.Confidence > existing.Confidence ||
		(incoming.Verified && !existing.Verified) || manual
	if promote {
		out.PrimaryName = incoming.PrimaryName
		out.Confidence = incoming.Confidence
		out.Method = incoming.Method
		out.Verified = incoming.Verified
		out.CrossCountry = incoming.CrossCountry
		out.ConsecutiveHits = incoming.ConsecutiveHits
		if incoming.Country != "" {
			out.Country = incoming.Country
		}
		if incoming.League != "" {
			out.League = incoming.League
		}
	}

	if out.AllSports == nil {
		out.AllSports = incoming.AllSports
	}
	if out.APIFootball == nil {
		out.APIFootball = incoming.APIFootball
	}
	if out.Country == "" {
		out.Country = incoming.Country
	}
	if out.League == "" {
		out.League = incoming.League
	}

	return out
}
