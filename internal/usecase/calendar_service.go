// Package usecase wires the fetchers, extractors, decoder, staging writer,
// and loader into the operations a pipeline run invokes.
package usecase

import (
	"context"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/domain/rawpayload"
	"github.com/courtsight/atp-ingest/internal/domain/tournament"
	"github.com/courtsight/atp-ingest/internal/extract"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
	"github.com/courtsight/atp-ingest/internal/staging"
)

// firstATPSeason bounds the year argument; the open era starts in 1968.
const firstATPSeason = 1968

// CalendarIngest reports one archive scrape: what was extracted, what was
// skipped, and where the payload was staged.
type CalendarIngest struct {
	Tournaments []tournament.Summary
	Skipped     int
	Staged      StagedFile
}

type CalendarService struct {
	fetcher   Fetcher
	extractor *extract.CalendarExtractor
	stager    staging.Writer
	rootURL   string
	logger    *logging.Logger
}

func NewCalendarService(
	fetcher Fetcher,
	extractor *extract.CalendarExtractor,
	stager staging.Writer,
	rootURL string,
	logger *logging.Logger,
) *CalendarService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarService{
		fetcher:   fetcher,
		extractor: extractor,
		stager:    stager,
		rootURL:   rootURL,
		logger:    logger,
	}
}

// IngestYear scrapes the results archive for a season and stages the
// extracted tournament summaries as one JSON document.
func (s *CalendarService) IngestYear(ctx context.Context, year int) (CalendarIngest, error) {
	if year < firstATPSeason {
		return CalendarIngest{}, crerr.Wrapf(ErrInvalidInput, "year %d", year)
	}

	html, err := s.fetcher.FetchArchive(ctx, year)
	if err != nil {
		return CalendarIngest{}, crerr.Wrapf(err, "fetch archive for %d", year)
	}

	batch, err := s.extractor.Parse(html, year, s.rootURL)
	if err != nil {
		return CalendarIngest{}, err
	}
	if len(batch.Tournaments) == 0 {
		return CalendarIngest{}, crerr.Wrapf(ErrNoData, "archive for %d", year)
	}

	data, err := sonic.Marshal(batch.Tournaments)
	if err != nil {
		return CalendarIngest{}, crerr.Wrap(err, "serialize tournament summaries")
	}

	uri, err := s.stager.Put(ctx, rawpayload.Payload{
		Endpoint:    EndpointResultsArchive,
		Year:        year,
		RetrievedAt: batch.RetrievedAt,
		RecordCount: len(batch.Tournaments),
		Data:        data,
	})
	if err != nil {
		return CalendarIngest{}, err
	}

	s.logger.InfoContext(ctx, "ingested results archive",
		"year", year,
		"tournaments", len(batch.Tournaments),
		"skipped", batch.Skipped,
		"uri", uri,
	)
	return CalendarIngest{
		Tournaments: batch.Tournaments,
		Skipped:     batch.Skipped,
		Staged:      StagedFile{URI: uri, Endpoint: EndpointResultsArchive},
	}, nil
}

// IngestCalendarAPI fetches the tournament-calendar JSON document and stages
// it verbatim.
func (s *CalendarService) IngestCalendarAPI(ctx context.Context, year int) (StagedFile, error) {
	body, err := s.fetcher.FetchCalendarAPI(ctx)
	if err != nil {
		return StagedFile{}, crerr.Wrap(err, "fetch calendar API")
	}

	var doc any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return StagedFile{}, crerr.Wrap(err, "calendar API returned invalid JSON")
	}
	count := 1
	if items, ok := doc.([]any); ok {
		count = len(items)
	}

	uri, err := s.stager.Put(ctx, rawpayload.Payload{
		Endpoint:    EndpointTournaments,
		Year:        year,
		RetrievedAt: nowUTC(),
		RecordCount: count,
		Data:        body,
	})
	if err != nil {
		return StagedFile{}, err
	}

	s.logger.InfoContext(ctx, "ingested calendar API", "records", count, "uri", uri)
	return StagedFile{URI: uri, Endpoint: EndpointTournaments}, nil
}
