package usecase

import (
	"testing"

	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/platform/logging"
)

func newTestResolver(t *testing.T, mutate func(*ResolverConfig)) *ResolverService {
	t.Helper()

	cfg := DefaultResolverConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewResolverService(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewResolverService: %v", err)
	}
	return svc
}

func apiTeam(id, name, country string) record.TeamRecord {
	return record.TeamRecord{
		Source:   record.SourceAPIFootball,
		SourceID: id,
		RawName:  name,
		Country:  country,
	}
}

func TestResolverConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultResolverConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := DefaultResolverConfig()
	bad.AcceptThreshold = 0.99
	if err := bad.Validate(); err == nil {
		t.Fatal("accept above auto verify should fail validation")
	}

	bad = DefaultResolverConfig()
	bad.ReviewThreshold = -0.1
	if err := bad.Validate(); err == nil {
		t.Fatal("negative threshold should fail validation")
	}
}

func TestResolveOutcomes(t *testing.T) {
	t.Parallel()

	svc := newTestResolver(t, nil)
	team := record.TeamRecord{
		Source:   record.SourceAllSports,
		SourceID: "100",
		RawName:  "FC Barcelona",
		Country:  "Spain",
	}

	cases := []struct {
		name       string
		candidates []record.TeamRecord
		want       Outcome
	}{
		{
			name:       "identical normalized name auto verifies",
			candidates: []record.TeamRecord{apiTeam("7", "Barcelona", "Spain")},
			want:       OutcomeAutoVerified,
		},
		{
			name:       "unrelated club is rejected",
			candidates: []record.TeamRecord{apiTeam("8", "Real Sociedad", "Spain")},
			want:       OutcomeRejected,
		},
		{
			name:       "empty pool is rejected",
			candidates: nil,
			want:       OutcomeRejected,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := svc.Resolve(team, tc.candidates)
			if got.Outcome != tc.want {
				t.Fatalf("outcome=%s confidence=%.4f, want %s", got.Outcome, got.Confidence(), tc.want)
			}
		})
	}
}

func TestResolvePicksBestCandidate(t *testing.T) {
	t.Parallel()

	svc := newTestResolver(t, nil)
	team := record.TeamRecord{
		Source:   record.SourceAllSports,
		SourceID: "55",
		RawName:  "Bayern München",
		Country:  "Germany",
	}
	out := svc.Resolve(team, []record.TeamRecord{
		apiTeam("1", "Borussia Dortmund", "Germany"),
		apiTeam("2", "Bayern Munich", "Germany"),
		apiTeam("3", "Hertha Berlin", "Germany"),
	})

	if out.Best == nil || out.Best.Record.SourceID != "2" {
		t.Fatalf("best candidate=%+v, want source id 2", out.Best)
	}
	if out.Outcome != OutcomeAutoVerified && out.Outcome != OutcomeAccepted {
		t.Fatalf("outcome=%s (%.4f), want a positive match", out.Outcome, out.Confidence())
	}
	if out.SecondBest == nil {
		t.Fatal("expected a second-best candidate to be tracked")
	}
}

func TestResolveAmbiguousMargin(t *testing.T) {
	t.Parallel()

	svc := newTestResolver(t, nil)
	// Both candidates normalize within the ambiguity margin of each other
	// and above the accept threshold.
	team := record.TeamRecord{
		Source:   record.SourceAllSports,
		SourceID: "9",
		RawName:  "United FC",
		Country:  "England",
	}
	out := svc.Resolve(team, []record.TeamRecord{
		apiTeam("1", "United", "England"),
		apiTeam("2", "United CF", "England"),
	})

	if out.Outcome != OutcomeAmbiguous {
		t.Fatalf("outcome=%s best=%.4f second=%.4f, want ambiguous",
			out.Outcome, out.Best.Score.Value, out.SecondBest.Score.Value)
	}
}

func TestResolveClearWinnerNotAmbiguous(t *testing.T) {
	t.Parallel()

	svc := newTestResolver(t, nil)
	team := record.TeamRecord{
		Source:   record.SourceAllSports,
		SourceID: "9",
		RawName:  "Arsenal",
		Country:  "England",
	}
	out := svc.Resolve(team, []record.TeamRecord{
		apiTeam("1", "Arsenal FC", "England"),
		apiTeam("2", "Aston Villa", "England"),
	})

	if out.Outcome != OutcomeAutoVerified {
		t.Fatalf("outcome=%s, want auto_verified despite a weak runner-up", out.Outcome)
	}
}

func TestResolveCrossCountry(t *testing.T) {
	t.Parallel()

	team := record.TeamRecord{
		Source:   record.SourceAllSports,
		SourceID: "77",
		RawName:  "Barcelona",
		Country:  "Spain",
	}
	foreign := []record.TeamRecord{apiTeam("5", "Barcelona", "Ecuador")}

	strict := newTestResolver(t, nil)
	if out := strict.Resolve(team, foreign); out.Outcome != OutcomeRejected {
		t.Fatalf("outcome=%s, want rejected without the cross-country override", out.Outcome)
	}

	relaxed := newTestResolver(t, func(c *ResolverConfig) { c.AllowCrossCountry = true })
	out := relaxed.Resolve(team, foreign)
	if out.Outcome == OutcomeRejected {
		t.Fatalf("outcome=%s, want a match with the override on", out.Outcome)
	}
	if !out.CrossCountry {
		t.Fatal("CrossCountry flag should be set on an override match")
	}
}

func TestResolveMissingCountryNeverCross(t *testing.T) {
	t.Parallel()

	svc := newTestResolver(t, nil)
	team := record.TeamRecord{
		Source:   record.SourceAllSports,
		SourceID: "3",
		RawName:  "Santos",
	}
	out := svc.Resolve(team, []record.TeamRecord{apiTeam("4", "Santos FC", "Brazil")})

	if out.Outcome == OutcomeRejected {
		t.Fatalf("outcome=%s, missing country must not trigger the cross-country veto", out.Outcome)
	}
	if out.CrossCountry {
		t.Fatal("CrossCountry must stay false when either country is unknown")
	}
}
