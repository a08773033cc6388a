package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/matchscope/team-identity/internal/domain/record"
)

// RecordSource is an in-memory record provider, used for seeding and as a
// test double for the real feed clients.
type RecordSource struct {
	mu    sync.RWMutex
	teams map[string][]record.TeamRecord
	errs  map[string]error

	countriesErr error
}

func NewRecordSource(teams ...record.TeamRecord) *RecordSource {
	s := &RecordSource{
		teams: make(map[string][]record.TeamRecord),
		errs:  make(map[string]error),
	}
	s.Add(teams...)
	return s
}

func (s *RecordSource) Add(teams ...record.TeamRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range teams {
		key := sourceKey(t.Source, t.Country)
		s.teams[key] = append(s.teams[key], t)
	}
}

// FailTeams makes one (source, country) fetch return err until cleared
// with a nil err.
func (s *RecordSource) FailTeams(src record.Source, country string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sourceKey(src, country)
	if err == nil {
		delete(s.errs, key)
		return
	}
	s.errs[key] = err
}

func (s *RecordSource) FailCountries(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countriesErr = err
}

// Remove drops one team, simulating a source that stopped reporting it.
func (s *RecordSource) Remove(src record.Source, sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rows := range s.teams {
		kept := rows[:0]
		for _, t := range rows {
			if t.Source == src && t.SourceID == sourceID {
				continue
			}
			kept = append(kept, t)
		}
		s.teams[key] = kept
	}
}

func (s *RecordSource) Countries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.countriesErr != nil {
		return nil, s.countriesErr
	}

	set := make(map[string]struct{})
	for _, rows := range s.teams {
		for _, t := range rows {
			if t.Country != "" {
				set[t.Country] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *RecordSource) TeamsByCountry(_ context.Context, src record.Source, country string) ([]record.TeamRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := sourceKey(src, country)
	if err := s.errs[key]; err != nil {
		return nil, err
	}
	rows := s.teams[key]
	out := make([]record.TeamRecord, 0, len(rows))
	out = append(out, rows...)
	return out, nil
}

func sourceKey(src record.Source, country string) string {
	return string(src) + "|" + strings.ToLower(strings.TrimSpace(country))
}
