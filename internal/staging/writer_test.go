package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/courtsight/atp-ingest/internal/domain/rawpayload"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

func TestFilesystemWriter_Put(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := NewFilesystemWriter(root, logging.NewNop())
	require.NoError(t, err)

	retrieved := time.Date(2023, 1, 8, 12, 30, 45, 0, time.UTC)
	uri, err := w.Put(context.Background(), rawpayload.Payload{
		Endpoint:    "atp_results_archive",
		Year:        2023,
		RetrievedAt: retrieved,
		RecordCount: 2,
		SourceURL:   "https://www.atptour.com/en/scores/results-archive?year=2023",
		Data:        []byte(`[{"tournament":"Adelaide International 1"},{"tournament":"United Cup"}]`),
	})
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(uri))
	require.Equal(t,
		filepath.Join(root, "raw", "atp_results_archive", "year=2023", "month=01", "20230108123045.json"),
		uri,
	)

	raw, err := os.ReadFile(uri)
	require.NoError(t, err)

	var doc struct {
		Metadata rawpayload.Metadata `json:"metadata"`
		Data     []map[string]any    `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(raw, &doc))
	require.Equal(t, "atp_results_archive", doc.Metadata.Endpoint)
	require.Equal(t, 2, doc.Metadata.RecordCount)
	require.Equal(t, "2023-01-08T12:30:45Z", doc.Metadata.RetrievedAt)
	require.Len(t, doc.Data, 2)

	entries, err := os.ReadDir(filepath.Dir(uri))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestFilesystemWriter_RejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	w, err := NewFilesystemWriter(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = w.Put(context.Background(), rawpayload.Payload{Endpoint: "atp_tournaments"})
	require.Error(t, err)
}

func TestFilesystemWriter_CancelledContext(t *testing.T) {
	t.Parallel()

	w, err := NewFilesystemWriter(t.TempDir(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Put(ctx, rawpayload.Payload{Endpoint: "atp_tournaments", Data: []byte("{}")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestObjectKey_MatchStats(t *testing.T) {
	t.Parallel()

	key := ObjectKey(rawpayload.Payload{
		Endpoint:    "match_stats",
		Year:        2023,
		RetrievedAt: time.Date(2023, 1, 8, 6, 0, 0, 0, time.UTC),
		Stats: &rawpayload.StatsMeta{
			TournamentID: "8998",
			MatchID:      "ms001",
			StatType:     "key-stats",
			Round:        "Quarterfinals",
			Player1Name:  "N. Djokovic",
			Player2Name:  "D. Medvedev",
		},
	})
	require.Equal(t,
		"raw/match_stats/year=2023/tourn_id=8998/8998_QF_Djokovic-vs-Medvedev_2023_ms001_key-stats_20230108060000.json",
		key,
	)
}

func TestSurname(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"N. Djokovic", "Djokovic"},
		{"Juan Martin del Potro", "Potro"},
		{"", "unknown"},
		{"A/B", "AB"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, surname(tc.in), tc.in)
	}
}
