package usecase

import (
	"context"
	"time"
)

// Endpoint names stamped on payloads and ledger rows.
const (
	EndpointResultsArchive    = "atp_results_archive"
	EndpointTournaments       = "atp_tournaments"
	EndpointTournamentResults = "atp_tournament_results"
	EndpointMatchStats        = "match_stats"
)

// StatTypeMatchInfo is the one per-match document served as plain JSON; the
// remaining stat types arrive as encrypted envelopes.
const StatTypeMatchInfo = "match-info"

// Fetcher is the slice of the ATP client the services depend on.
type Fetcher interface {
	FetchArchive(ctx context.Context, year int) ([]byte, error)
	FetchCalendarAPI(ctx context.Context) ([]byte, error)
	FetchResults(ctx context.Context, resultsURL, matchType string) ([]byte, error)
	FetchMatchInfo(ctx context.Context, year int, tournID, matchID string) ([]byte, error)
	FetchStats(ctx context.Context, statType string, year int, tournID, matchID string) ([]byte, error)
}

// Decoder decrypts an encrypted statistics endpoint body into plain JSON.
type Decoder interface {
	DecodeRaw(body []byte) ([]byte, error)
}

// FileLoader materializes one staged file into a warehouse table.
type FileLoader interface {
	Load(ctx context.Context, sourceURI, endpoint, targetTable string) (int, error)
}

// StagedFile points at one payload written to staging during a run.
type StagedFile struct {
	URI      string
	Endpoint string
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
