package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/platform/id"
	"github.com/matchscope/team-identity/internal/platform/logging"
)

// Checkpoint tracks which countries already committed in the current sync
// cycle, so a restarted SyncAll skips them instead of redoing the work.
type Checkpoint interface {
	Done(country string) bool
	Mark(ctx context.Context, country string) error
	Reset(ctx context.Context) error
}

// nopCheckpoint is used when no checkpoint path is configured.
type nopCheckpoint struct{}

func (nopCheckpoint) Done(string) bool                   { return false }
func (nopCheckpoint) Mark(context.Context, string) error { return nil }
func (nopCheckpoint) Reset(context.Context) error        { return nil }

type SyncConfig struct {
	// MaxWorkers bounds concurrent country partitions.
	MaxWorkers int
	// VerifyAfter promotes a mapping to verified once this many
	// consecutive sync cycles re-confirmed it at auto-verify confidence.
	VerifyAfter int
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{MaxWorkers: 4, VerifyAfter: 3}
}

func (c SyncConfig) Validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: max workers must be at least 1", ErrInvalidInput)
	}
	if c.VerifyAfter < 1 {
		return fmt.Errorf("%w: verify after must be at least 1", ErrInvalidInput)
	}
	return nil
}

// PartitionReport accumulates per-country outcome counts for one sync pass.
type PartitionReport struct {
	Country       string        `json:"country"`
	Processed     int           `json:"processed"`
	AutoVerified  int           `json:"auto_verified"`
	Accepted      int           `json:"accepted"`
	Unchanged     int           `json:"unchanged"`
	ManualReview  int           `json:"manual_review"`
	Ambiguous     int           `json:"ambiguous"`
	Rejected      int           `json:"rejected"`
	Alternates    int           `json:"alternates"`
	NewlyVerified int           `json:"newly_verified"`
	Skipped       int           `json:"skipped"`
	Failed        bool          `json:"failed"`
	Err           string        `json:"err,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// SyncService drives bulk resolution over country partitions. Scoring runs
// concurrently across partitions; store writes go through a single mutex
// because the slot conflict check is a check-then-write.
type SyncService struct {
	cfg        SyncConfig
	provider   record.Provider
	store      mapping.Store
	resolver   *ResolverService
	checkpoint Checkpoint
	idgen      id.Generator
	logger     *logging.Logger

	writeMu sync.Mutex

	// seen collects every (source, source id) pair observed in the current
	// full cycle; the retirement sweep runs against it.
	seenMu sync.Mutex
	seen   map[string]struct{}
}

func NewSyncService(
	cfg SyncConfig,
	provider record.Provider,
	store mapping.Store,
	resolver *ResolverService,
	checkpoint Checkpoint,
	idgen id.Generator,
	logger *logging.Logger,
) (*SyncService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil || store == nil || resolver == nil {
		return nil, fmt.Errorf("%w: provider, store and resolver are required", ErrInvalidInput)
	}
	if checkpoint == nil {
		checkpoint = nopCheckpoint{}
	}
	if idgen == nil {
		idgen = id.NewRandomGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &SyncService{
		cfg:        cfg,
		provider:   provider,
		store:      store,
		resolver:   resolver,
		checkpoint: checkpoint,
		idgen:      idgen,
		logger:     logger,
		seen:       make(map[string]struct{}),
	}, nil
}

// SyncPartition resolves every unmatched team of one country. Provider
// failures skip the partition without touching the store; the teams stay
// unresolved until the next cycle.
func (s *SyncService) SyncPartition(ctx context.Context, country string) (PartitionReport, error) {
	ctx, span := startUsecaseSpan(ctx, "SyncService.SyncPartition")
	defer span.End()

	start := time.Now()
	report := PartitionReport{Country: country}

	country = strings.TrimSpace(country)
	if country == "" {
		report.Failed = true
		report.Err = "country is required"
		return report, fmt.Errorf("%w: country is required", ErrInvalidInput)
	}

	primary, candidates, err := s.fetchBothSources(ctx, country)
	if err != nil {
		report.Failed = true
		report.Err = err.Error()
		report.Duration = time.Since(start)
		s.logger.WarnContext(ctx, "partition fetch failed, skipping this cycle",
			"country", country, "error", err)
		return report, errors.Mark(err, ErrSourceUnavailable)
	}

	s.markSeen(primary)
	s.markSeen(candidates)

	for _, team := range primary {
		if err := ctx.Err(); err != nil {
			report.Failed = true
			report.Err = err.Error()
			report.Duration = time.Since(start)
			return report, err
		}
		report.Processed++
		s.syncTeam(ctx, team, candidates, &report)
	}

	if err := s.flush(ctx); err != nil {
		report.Failed = true
		report.Err = err.Error()
		report.Duration = time.Since(start)
		return report, err
	}

	report.Duration = time.Since(start)
	s.logger.InfoContext(ctx, "partition synced",
		"country", country,
		"processed", report.Processed,
		"auto_verified", report.AutoVerified,
		"accepted", report.Accepted,
		"unchanged", report.Unchanged,
		"ambiguous", report.Ambiguous,
		"rejected", report.Rejected,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// SyncAll runs every country partition on a bounded worker pool. One
// partition's failure is recorded in its report and never aborts the rest.
// Cancellation is honored between partition submissions, and the checkpoint
// makes an interrupted cycle resumable.
func (s *SyncService) SyncAll(ctx context.Context) ([]PartitionReport, error) {
	ctx, span := startUsecaseSpan(ctx, "SyncService.SyncAll")
	defer span.End()

	countries, err := s.provider.Countries(ctx)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("list countries: %w", err), ErrSourceUnavailable)
	}

	s.resetSeen()

	workers, err := ants.NewPool(s.cfg.MaxWorkers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	var (
		wg        sync.WaitGroup
		reportsMu sync.Mutex
		reports   = make([]PartitionReport, 0, len(countries))
		cancelled bool
	)

	for _, country := range countries {
		if err := ctx.Err(); err != nil {
			cancelled = true
			break
		}
		if s.checkpoint.Done(country) {
			s.logger.InfoContext(ctx, "partition already committed this cycle, skipping",
				"country", country)
			continue
		}

		country := country
		wg.Add(1)
		submitErr := workers.Submit(func() {
			defer wg.Done()

			report, err := s.SyncPartition(ctx, country)
			if err == nil {
				if markErr := s.checkpoint.Mark(ctx, country); markErr != nil {
					s.logger.ErrorContext(ctx, "checkpoint write failed",
						"country", country, "error", markErr)
				}
			}

			reportsMu.Lock()
			reports = append(reports, report)
			reportsMu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			reportsMu.Lock()
			reports = append(reports, PartitionReport{
				Country: country,
				Failed:  true,
				Err:     submitErr.Error(),
			})
			reportsMu.Unlock()
		}
	}

	wg.Wait()

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Country < reports[j].Country
	})

	if cancelled {
		return reports, ctx.Err()
	}

	allClean := len(reports) > 0
	for _, r := range reports {
		if r.Failed {
			allClean = false
			break
		}
	}
	if allClean {
		retired, err := s.retireUnseen(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "retirement sweep failed", "error", err)
		} else if retired > 0 {
			s.logger.InfoContext(ctx, "retired mappings no source reports anymore",
				"count", retired)
		}
		if err := s.checkpoint.Reset(ctx); err != nil {
			s.logger.ErrorContext(ctx, "checkpoint reset failed", "error", err)
		}
		if err := s.flush(ctx); err != nil {
			s.logger.ErrorContext(ctx, "store flush failed after sweep", "error", err)
		}
	}

	return reports, nil
}

// fetchBothSources loads one country's teams from both providers
// concurrently. A failure on either side fails the whole fetch.
func (s *SyncService) fetchBothSources(ctx context.Context, country string) (primary, secondary []record.TeamRecord, err error) {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		teams, err := s.provider.TeamsByCountry(ctx, record.SourceAllSports, country)
		if err != nil {
			return fmt.Errorf("fetch %s teams: %w", record.SourceAllSports, err)
		}
		primary = teams
		return nil
	})
	p.Go(func(ctx context.Context) error {
		teams, err := s.provider.TeamsByCountry(ctx, record.SourceAPIFootball, country)
		if err != nil {
			return fmt.Errorf("fetch %s teams: %w", record.SourceAPIFootball, err)
		}
		secondary = teams
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return primary, secondary, nil
}

// syncTeam resolves one primary-source team and persists the outcome.
// Scoring runs outside writeMu so partitions overlap on the expensive part;
// only the check-then-write against the store is serialized, and the
// mapping is re-read under the lock.
func (s *SyncService) syncTeam(ctx context.Context, team record.TeamRecord, candidates []record.TeamRecord, report *PartitionReport) {
	existing, found, err := s.store.GetBySourceID(ctx, team.Source, team.SourceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "store lookup failed",
			"source", team.Source, "source_id", team.SourceID, "error", err)
		report.Failed = true
		report.Err = err.Error()
		return
	}

	var outcome MatchOutcome
	scored := !found || !s.settled(existing)
	if scored {
		outcome = s.resolver.Resolve(team, candidates)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()

	// Re-read under the lock: another partition's write may have settled or
	// re-linked this team after the unlocked read.
	existing, found, err = s.store.GetBySourceID(ctx, team.Source, team.SourceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "store lookup failed",
			"source", team.Source, "source_id", team.SourceID, "error", err)
		report.Failed = true
		report.Err = err.Error()
		return
	}
	if found && s.settled(existing) {
		s.refresh(ctx, existing, team, now, report)
		report.Skipped++
		return
	}
	if !scored {
		// Settled at the pre-read but not anymore (superseded since).
		outcome = s.resolver.Resolve(team, candidates)
	}

	switch outcome.Outcome {
	case OutcomeAutoVerified, OutcomeAccepted:
		s.persistMatch(ctx, outcome, existing, found, now, report)
	case OutcomeManualReview:
		report.ManualReview++
		s.logger.InfoContext(ctx, "match needs manual review",
			"team", team.RawName,
			"candidate", outcome.Best.Record.RawName,
			"confidence", outcome.Confidence(),
		)
	case OutcomeAmbiguous:
		report.Ambiguous++
	case OutcomeRejected:
		report.Rejected++
		s.persistStub(ctx, team, existing, found, now, report)
	}
}

// settled mappings are not re-resolved: verified ones are immutable to the
// sync, and auto-verify-confidence ones only get a freshness touch.
func (s *SyncService) settled(m mapping.Mapping) bool {
	if m.Retired() {
		return false
	}
	return m.Verified ||
		(m.HasBothSources() && m.Confidence >= s.resolver.Config().AutoVerifyThreshold)
}

// refresh touches an already-settled mapping: records the spelling, bumps
// the sync timestamp and advances the verification streak.
func (s *SyncService) refresh(ctx context.Context, m mapping.Mapping, team record.TeamRecord, now time.Time, report *PartitionReport) {
	m.AddVariation(team.RawName)
	m.LastSyncedAt = now
	if !m.Verified {
		m.ConsecutiveHits++
		if m.ConsecutiveHits >= s.cfg.VerifyAfter {
			m.Verified = true
			report.NewlyVerified++
		}
	}
	if _, err := s.store.Upsert(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "refresh upsert failed",
			"mapping_id", m.ID, "error", err)
	}
}

// persistMatch writes an accepted resolution, leaving slot conflicts to the
// store: a losing write surfaces as ErrLowerConfidence and is counted as an
// alternate rather than an error.
func (s *SyncService) persistMatch(ctx context.Context, outcome MatchOutcome, existing mapping.Mapping, found bool, now time.Time, report *PartitionReport) {
	team := outcome.Team
	best := outcome.Best

	m := mapping.Mapping{
		PrimaryName:    team.RawName,
		Country:        team.Country,
		League:         team.League,
		Confidence:     best.Score.Value,
		Method:         string(best.Score.Method),
		AutoDiscovered: true,
		CrossCountry:   outcome.CrossCountry,
		LastSyncedAt:   now,
	}
	m.SetRef(team.Source, &mapping.SourceRef{ID: team.SourceID, Name: team.RawName})
	m.SetRef(best.Record.Source, &mapping.SourceRef{ID: best.Record.SourceID, Name: best.Record.RawName})
	m.AddVariation(team.RawName)
	m.AddVariation(best.Record.RawName)
	if m.Country == "" {
		m.Country = best.Record.Country
	}
	if m.League == "" {
		m.League = best.Record.League
	}

	unchanged := false
	if found {
		m.ID = existing.ID
		unchanged = samePairing(existing, m) && best.Score.Value <= existing.Confidence
		if unchanged {
			m.ConsecutiveHits = existing.ConsecutiveHits
		}
	} else {
		newID, err := s.idgen.NewID()
		if err != nil {
			s.logger.ErrorContext(ctx, "id generation failed", "error", err)
			report.Failed = true
			report.Err = err.Error()
			return
		}
		m.ID = newID
	}

	if best.Score.Value >= s.resolver.Config().AutoVerifyThreshold {
		m.ConsecutiveHits++
	} else {
		m.ConsecutiveHits = 0
	}
	if !existing.Verified && m.ConsecutiveHits >= s.cfg.VerifyAfter {
		m.Verified = true
	}

	stored, err := s.store.Upsert(ctx, m)
	if err != nil {
		if errors.Is(err, mapping.ErrLowerConfidence) {
			report.Alternates++
			s.logger.InfoContext(ctx, "resolution lost slot conflict, kept as alternate",
				"team", team.RawName,
				"candidate", best.Record.RawName,
				"confidence", best.Score.Value,
			)
			return
		}
		s.logger.ErrorContext(ctx, "mapping upsert failed",
			"team", team.RawName, "error", err)
		report.Failed = true
		report.Err = err.Error()
		return
	}

	if stored.Verified && !existing.Verified {
		report.NewlyVerified++
	}
	switch {
	case unchanged:
		report.Unchanged++
	case outcome.Outcome == OutcomeAutoVerified:
		report.AutoVerified++
	default:
		report.Accepted++
	}
}

// persistStub keeps an unmatched team findable by name: a single-source
// mapping of the team to itself. The identity is exact, so the confidence
// floor invariant holds.
func (s *SyncService) persistStub(ctx context.Context, team record.TeamRecord, existing mapping.Mapping, found bool, now time.Time, report *PartitionReport) {
	if found {
		if existing.HasBothSources() {
			// A prior cross-source pairing exists; a rejected re-resolution
			// never tears it down.
			return
		}
		existing.AddVariation(team.RawName)
		existing.LastSyncedAt = now
		if _, err := s.store.Upsert(ctx, existing); err != nil {
			s.logger.ErrorContext(ctx, "stub refresh failed",
				"mapping_id", existing.ID, "error", err)
		}
		return
	}

	newID, err := s.idgen.NewID()
	if err != nil {
		s.logger.ErrorContext(ctx, "id generation failed", "error", err)
		return
	}
	m := mapping.Mapping{
		ID:             newID,
		PrimaryName:    team.RawName,
		Country:        team.Country,
		League:         team.League,
		Confidence:     1.0,
		Method:         "exact",
		AutoDiscovered: true,
		LastSyncedAt:   now,
	}
	m.SetRef(team.Source, &mapping.SourceRef{ID: team.SourceID, Name: team.RawName})
	m.AddVariation(team.RawName)

	if _, err := s.store.Upsert(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "stub upsert failed",
			"team", team.RawName, "error", err)
	}
}

func samePairing(a, b mapping.Mapping) bool {
	return sameRef(a.AllSports, b.AllSports) && sameRef(a.APIFootball, b.APIFootball)
}

func sameRef(a, b *mapping.SourceRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

func (s *SyncService) markSeen(teams []record.TeamRecord) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	for _, t := range teams {
		s.seen[seenKey(t.Source, t.SourceID)] = struct{}{}
	}
}

func (s *SyncService) resetSeen() {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	s.seen = make(map[string]struct{})
}

func seenKey(src record.Source, sourceID string) string {
	return string(src) + "|" + sourceID
}

// retireUnseen soft-deletes mappings whose every source ref went
// unreported for the whole cycle. Runs only after a fully clean SyncAll so
// a skipped partition can never retire its teams.
func (s *SyncService) retireUnseen(ctx context.Context) (int, error) {
	s.seenMu.Lock()
	seen := s.seen
	s.seenMu.Unlock()

	all, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mappings: %w", err)
	}

	now := time.Now().UTC()
	retired := 0
	for _, m := range all {
		if m.Retired() {
			continue
		}
		reported := false
		for _, src := range record.Sources() {
			ref := m.Ref(src)
			if ref == nil {
				continue
			}
			if _, ok := seen[seenKey(src, ref.ID)]; ok {
				reported = true
				break
			}
		}
		if reported {
			continue
		}
		if err := s.store.Retire(ctx, m.ID, now); err != nil {
			return retired, fmt.Errorf("retire mapping %s: %w", m.ID, err)
		}
		retired++
	}

	return retired, nil
}

func (s *SyncService) flush(ctx context.Context) error {
	f, ok := s.store.(mapping.Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(ctx); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}
