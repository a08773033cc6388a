package record

import "context"

// Provider describes what the sync orchestrator needs from an upstream
// team source. Adapters translating provider wire formats into TeamRecord
// live outside the core.
type Provider interface {
	// Countries returns the partition keys of the team universe.
	Countries(ctx context.Context) ([]string, error)
	// TeamsByCountry returns one source's records for a single country.
	TeamsByCountry(ctx context.Context, source Source, country string) ([]TeamRecord, error)
}
