package usecase

import (
	"fmt"
	"strings"

	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/platform/logging"
	"github.com/matchscope/team-identity/internal/similarity"
)

// Outcome classifies one resolution attempt.
type Outcome string

const (
	OutcomeAutoVerified Outcome = "auto_verified"
	OutcomeAccepted     Outcome = "accepted"
	OutcomeManualReview Outcome = "manual_review"
	OutcomeAmbiguous    Outcome = "ambiguous"
	OutcomeRejected     Outcome = "rejected"
)

// ResolverConfig carries the tunable confidence thresholds. The values are
// configuration, not invariants; defaults follow DefaultResolverConfig.
type ResolverConfig struct {
	AutoVerifyThreshold float64
	AcceptThreshold     float64
	ReviewThreshold     float64
	AmbiguityMargin     float64
	// AllowCrossCountry opts in to matching across country borders, for
	// multinational competitions. Off by default.
	AllowCrossCountry bool
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		AutoVerifyThreshold: 0.95,
		AcceptThreshold:     0.80,
		ReviewThreshold:     0.70,
		AmbiguityMargin:     0.05,
	}
}

func (c ResolverConfig) Validate() error {
	for name, v := range map[string]float64{
		"auto verify": c.AutoVerifyThreshold,
		"accept":      c.AcceptThreshold,
		"review":      c.ReviewThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s threshold %.3f is outside [0,1]", ErrInvalidInput, name, v)
		}
	}
	if c.ReviewThreshold > c.AcceptThreshold || c.AcceptThreshold > c.AutoVerifyThreshold {
		return fmt.Errorf("%w: thresholds must be ordered review <= accept <= auto verify", ErrInvalidInput)
	}
	if c.AmbiguityMargin < 0 || c.AmbiguityMargin > 1 {
		return fmt.Errorf("%w: ambiguity margin %.3f is outside [0,1]", ErrInvalidInput, c.AmbiguityMargin)
	}

	return nil
}

// Candidate is one scored entry from the candidate pool.
type Candidate struct {
	Record record.TeamRecord
	Score  similarity.Score
}

// MatchOutcome is the side-effect-free result of resolving one team
// against a candidate pool; the orchestrator decides what to persist.
type MatchOutcome struct {
	Team       record.TeamRecord
	Outcome    Outcome
	Best       *Candidate
	SecondBest *Candidate
	// CrossCountry is set when the winning candidate sits in another
	// country and the override made that acceptable.
	CrossCountry bool
}

// Confidence is the best candidate's score, 0 when the pool was empty.
func (o MatchOutcome) Confidence() float64 {
	if o.Best == nil {
		return 0
	}
	return o.Best.Score.Value
}

// ResolverService applies the scorer to a pre-filtered candidate pool and
// classifies the result. It never touches the store.
type ResolverService struct {
	cfg    ResolverConfig
	logger *logging.Logger
}

func NewResolverService(cfg ResolverConfig, logger *logging.Logger) (*ResolverService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ResolverService{cfg: cfg, logger: logger}, nil
}

func (s *ResolverService) Config() ResolverConfig {
	return s.cfg
}

// Resolve scores team against every candidate and classifies the best
// match. Callers are expected to pre-filter candidates by country; the
// resolver only vetoes a cross-country winner when the override is off.
func (s *ResolverService) Resolve(team record.TeamRecord, candidates []record.TeamRecord) MatchOutcome {
	out := MatchOutcome{Team: team, Outcome: OutcomeRejected}

	normalized := similarity.Normalize(team.RawName)
	if normalized == "" || len(candidates) == 0 {
		return out
	}

	for _, cand := range candidates {
		score := similarity.Compare(normalized, similarity.Normalize(cand.RawName))
		entry := Candidate{Record: cand, Score: score}
		switch {
		case out.Best == nil || score.Value > out.Best.Score.Value:
			out.SecondBest = out.Best
			best := entry
			out.Best = &best
		case out.SecondBest == nil || score.Value > out.SecondBest.Score.Value:
			second := entry
			out.SecondBest = &second
		}
	}

	best := out.Best
	if best == nil || best.Score.Value < s.cfg.ReviewThreshold {
		out.Outcome = OutcomeRejected
		return out
	}

	if crossesCountry(team, best.Record) {
		if !s.cfg.AllowCrossCountry {
			s.logger.Debug("rejected cross-country best match",
				"team", team.RawName,
				"team_country", team.Country,
				"candidate", best.Record.RawName,
				"candidate_country", best.Record.Country,
			)
			out.Outcome = OutcomeRejected
			return out
		}
		out.CrossCountry = true
	}

	if second := out.SecondBest; second != nil &&
		best.Score.Value-second.Score.Value < s.cfg.AmbiguityMargin &&
		second.Score.Value >= s.cfg.AcceptThreshold {
		s.logger.Warn("ambiguous match needs manual resolution",
			"team", team.RawName,
			"best", best.Record.RawName,
			"best_score", best.Score.Value,
			"second", second.Record.RawName,
			"second_score", second.Score.Value,
		)
		out.Outcome = OutcomeAmbiguous
		return out
	}

	switch {
	case best.Score.Value >= s.cfg.AutoVerifyThreshold:
		out.Outcome = OutcomeAutoVerified
	case best.Score.Value >= s.cfg.AcceptThreshold:
		out.Outcome = OutcomeAccepted
	default:
		out.Outcome = OutcomeManualReview
	}

	return out
}

func crossesCountry(a, b record.TeamRecord) bool {
	if a.Country == "" || b.Country == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(a.Country), strings.TrimSpace(b.Country))
}
