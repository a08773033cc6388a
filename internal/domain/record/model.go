package record

import "fmt"

// Source identifies which upstream data provider a team record came from.
type Source string

const (
	SourceAllSports   Source = "allsports"
	SourceAPIFootball Source = "apifootball"
)

// Sources lists every provider the engine reconciles, in sync order.
func Sources() []Source {
	return []Source{SourceAllSports, SourceAPIFootball}
}

// Other returns the opposing provider for a two-source reconciliation.
func (s Source) Other() Source {
	if s == SourceAllSports {
		return SourceAPIFootball
	}
	return SourceAllSports
}

func (s Source) Valid() bool {
	return s == SourceAllSports || s == SourceAPIFootball
}

// TeamRecord is an immutable snapshot of a team as one provider reports it.
// It is never persisted; adapters produce it, the resolver consumes it.
type TeamRecord struct {
	Source   Source
	SourceID string
	RawName  string
	Country  string
	League   string
}

func (t TeamRecord) Validate() error {
	if !t.Source.Valid() {
		return fmt.Errorf("team record source %q is unknown", t.Source)
	}
	if t.SourceID == "" {
		return fmt.Errorf("team record source id is required")
	}
	if t.RawName == "" {
		return fmt.Errorf("team record raw name is required")
	}

	return nil
}
