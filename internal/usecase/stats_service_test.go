package usecase

import (
	"context"
	"sync/atomic"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/courtsight/atp-ingest/internal/domain/match"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

func testMatches(n int) []match.Record {
	out := make([]match.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, match.Record{
			Round:          "Quarterfinals",
			Player1Name:    "N. Djokovic",
			Player2Name:    "D. Medvedev",
			MatchID:        "ms00" + string(rune('1'+i)),
			Year:           2023,
			TournamentName: "Adelaide International 1",
			TournamentID:   "8998",
		})
	}
	return out
}

func TestStatsService_IngestMatchStats(t *testing.T) {
	t.Parallel()

	var infoCalls, statCalls, decodeCalls atomic.Int32
	fetcher := &stubFetcher{
		matchInfoFn: func(context.Context, int, string, string) ([]byte, error) {
			infoCalls.Add(1)
			return []byte(`{"teams":[]}`), nil
		},
		matchStatsFn: func(_ context.Context, statType string, _ int, _, _ string) ([]byte, error) {
			statCalls.Add(1)
			return []byte(`{"lastModified":1,"response":"` + statType + `"}`), nil
		},
	}
	decoder := &stubDecoder{
		decodeFn: func([]byte) ([]byte, error) {
			decodeCalls.Add(1)
			return []byte(`{"decoded":true}`), nil
		},
	}
	stager := &stubStager{}

	svc := NewStatsService(fetcher, decoder, stager, []string{"key-stats", "court-vision"}, 3, logging.NewNop())
	report, err := svc.IngestMatchStats(context.Background(), testMatches(2))
	require.NoError(t, err)

	// 2 matches x (match-info + 2 encrypted types)
	require.Equal(t, 6, report.Succeeded)
	require.Zero(t, report.Failed)
	require.Len(t, report.Staged, 6)
	require.EqualValues(t, 2, infoCalls.Load())
	require.EqualValues(t, 4, statCalls.Load())
	require.EqualValues(t, 4, decodeCalls.Load(), "only encrypted types are decoded")
	require.Equal(t, 6, stager.count())

	for _, p := range stager.payloads {
		require.Equal(t, EndpointMatchStats, p.Endpoint)
		require.NotNil(t, p.Stats)
		require.Equal(t, "8998", p.Stats.TournamentID)
	}
}

func TestStatsService_SkipsMatchesWithoutIDs(t *testing.T) {
	t.Parallel()

	svc := NewStatsService(&stubFetcher{}, &stubDecoder{}, &stubStager{}, []string{"key-stats"}, 2, logging.NewNop())
	report, err := svc.IngestMatchStats(context.Background(), []match.Record{
		{Round: "Final", Player1Name: "A", Player2Name: "B", Year: 2023, TournamentID: "8998"},
		{Round: "Final", Player1Name: "A", Player2Name: "B", Year: 2023, MatchID: "ms001"},
	})
	require.NoError(t, err)
	require.Zero(t, report.Succeeded)
	require.Zero(t, report.Failed)
	require.Empty(t, report.Staged)
}

func TestStatsService_CountsFailuresWithoutStopping(t *testing.T) {
	t.Parallel()

	boom := crerr.New("decode drift")
	fetcher := &stubFetcher{
		matchInfoFn: func(context.Context, int, string, string) ([]byte, error) {
			return []byte(`{}`), nil
		},
		matchStatsFn: func(context.Context, string, int, string, string) ([]byte, error) {
			return []byte(`{}`), nil
		},
	}
	decoder := &stubDecoder{
		decodeFn: func([]byte) ([]byte, error) { return nil, boom },
	}
	stager := &stubStager{}

	svc := NewStatsService(fetcher, decoder, stager, []string{"key-stats"}, 2, logging.NewNop())
	report, err := svc.IngestMatchStats(context.Background(), testMatches(3))
	require.NoError(t, err)

	require.Equal(t, 3, report.Succeeded, "match-info tasks still succeed")
	require.Equal(t, 3, report.Failed, "every encrypted decode failed")
	require.Len(t, report.Staged, 3)
}

func TestStatsService_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewStatsService(&stubFetcher{}, &stubDecoder{}, &stubStager{}, []string{"key-stats"}, 2, logging.NewNop())
	report, err := svc.IngestMatchStats(ctx, testMatches(2))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 4, report.Cancelled)
	require.Zero(t, report.Succeeded)
}
