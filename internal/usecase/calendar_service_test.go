package usecase

import (
	"context"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/courtsight/atp-ingest/internal/extract"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

const archiveFixture = `
<ul class="events">
  <li>
    <a class="tournament__profile" href="/en/tournaments/adelaide/8998/overview">
      <span class="name">Adelaide International 1</span>
    </a>
    <span class="venue">Adelaide, Australia</span>
    <div class="non-live-cta">
      <a class="results" href="/en/scores/archive/adelaide/8998/2023/results">Results</a>
    </div>
  </li>
  <li><span class="venue">Broken, Item</span></li>
</ul>`

func newCalendarService(fetcher Fetcher, stager *stubStager) *CalendarService {
	return NewCalendarService(
		fetcher,
		extract.NewCalendarExtractor(logging.NewNop()),
		stager,
		"https://www.atptour.com",
		logging.NewNop(),
	)
}

func TestCalendarService_IngestYear(t *testing.T) {
	t.Parallel()

	stager := &stubStager{}
	fetcher := &stubFetcher{
		archiveFn: func(_ context.Context, year int) ([]byte, error) {
			require.Equal(t, 2023, year)
			return []byte(archiveFixture), nil
		},
	}

	got, err := newCalendarService(fetcher, stager).IngestYear(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, got.Tournaments, 1)
	require.Equal(t, 1, got.Skipped)
	require.Equal(t, EndpointResultsArchive, got.Staged.Endpoint)
	require.Equal(t, 1, stager.count())
	require.Equal(t, 1, stager.payloads[0].RecordCount)
}

func TestCalendarService_IngestYear_InvalidYear(t *testing.T) {
	t.Parallel()

	svc := newCalendarService(&stubFetcher{}, &stubStager{})
	_, err := svc.IngestYear(context.Background(), 1900)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalendarService_IngestYear_EmptyArchive(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		archiveFn: func(context.Context, int) ([]byte, error) {
			return []byte("<html><body></body></html>"), nil
		},
	}
	_, err := newCalendarService(fetcher, &stubStager{}).IngestYear(context.Background(), 2023)
	require.ErrorIs(t, err, ErrNoData)
}

func TestCalendarService_IngestYear_FetchFailure(t *testing.T) {
	t.Parallel()

	boom := crerr.New("upstream down")
	fetcher := &stubFetcher{
		archiveFn: func(context.Context, int) ([]byte, error) { return nil, boom },
	}
	_, err := newCalendarService(fetcher, &stubStager{}).IngestYear(context.Background(), 2023)
	require.ErrorIs(t, err, boom)
}

func TestCalendarService_IngestCalendarAPI(t *testing.T) {
	t.Parallel()

	stager := &stubStager{}
	fetcher := &stubFetcher{
		calendarFn: func(context.Context) ([]byte, error) {
			return []byte(`[{"name":"Adelaide"},{"name":"Auckland"}]`), nil
		},
	}

	file, err := newCalendarService(fetcher, stager).IngestCalendarAPI(context.Background(), 2023)
	require.NoError(t, err)
	require.Equal(t, EndpointTournaments, file.Endpoint)
	require.Equal(t, 2, stager.payloads[0].RecordCount)
}

func TestCalendarService_IngestCalendarAPI_InvalidJSON(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		calendarFn: func(context.Context) ([]byte, error) { return []byte("<html>oops</html>"), nil },
	}
	_, err := newCalendarService(fetcher, &stubStager{}).IngestCalendarAPI(context.Background(), 2023)
	require.Error(t, err)
}
