package usecase

import (
	"context"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/domain/match"
	"github.com/courtsight/atp-ingest/internal/domain/rawpayload"
	"github.com/courtsight/atp-ingest/internal/domain/tournament"
	"github.com/courtsight/atp-ingest/internal/extract"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
	"github.com/courtsight/atp-ingest/internal/staging"
)

// ResultsIngest reports one tournament results scrape. Staged is nil when the
// page yielded no matches and nothing was written.
type ResultsIngest struct {
	Matches []match.Record
	Skipped int
	Staged  *StagedFile
}

type TournamentService struct {
	fetcher   Fetcher
	extractor *extract.MatchExtractor
	stager    staging.Writer
	rootURL   string
	logger    *logging.Logger
}

func NewTournamentService(
	fetcher Fetcher,
	extractor *extract.MatchExtractor,
	stager staging.Writer,
	rootURL string,
	logger *logging.Logger,
) *TournamentService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TournamentService{
		fetcher:   fetcher,
		extractor: extractor,
		stager:    stager,
		rootURL:   rootURL,
		logger:    logger,
	}
}

// IngestResults scrapes one tournament's results page and stages the
// extracted match records. Tournaments are processed one at a time; request
// spacing is the fetcher's concern.
func (s *TournamentService) IngestResults(ctx context.Context, summary tournament.Summary, matchType string) (ResultsIngest, error) {
	if summary.ResultsURL == nil || *summary.ResultsURL == "" {
		return ResultsIngest{}, crerr.Wrapf(ErrInvalidInput, "tournament %q has no results URL", summary.Name)
	}

	html, err := s.fetcher.FetchResults(ctx, *summary.ResultsURL, matchType)
	if err != nil {
		return ResultsIngest{}, crerr.Wrapf(err, "fetch results for %q", summary.Name)
	}

	tournID := ""
	if summary.TournamentID != nil {
		tournID = *summary.TournamentID
	}
	batch, err := s.extractor.Parse(html, extract.ResultsContext{
		Year:           summary.Year,
		TournamentName: summary.Name,
		TournamentID:   tournID,
		RootURL:        s.rootURL,
	})
	if err != nil {
		return ResultsIngest{}, err
	}

	result := ResultsIngest{Matches: batch.Matches, Skipped: batch.Skipped}
	if len(batch.Matches) == 0 {
		s.logger.WarnContext(ctx, "results page yielded no matches",
			"tournament", summary.Name,
			"year", summary.Year,
			"skipped", batch.Skipped,
		)
		return result, nil
	}

	data, err := sonic.Marshal(batch.Matches)
	if err != nil {
		return ResultsIngest{}, crerr.Wrap(err, "serialize match records")
	}

	uri, err := s.stager.Put(ctx, rawpayload.Payload{
		Endpoint:    EndpointTournamentResults,
		Year:        summary.Year,
		RetrievedAt: batch.RetrievedAt,
		RecordCount: len(batch.Matches),
		SourceURL:   *summary.ResultsURL,
		Data:        data,
	})
	if err != nil {
		return ResultsIngest{}, err
	}

	s.logger.InfoContext(ctx, "ingested tournament results",
		"tournament", summary.Name,
		"year", summary.Year,
		"matches", len(batch.Matches),
		"skipped", batch.Skipped,
		"uri", uri,
	)
	result.Staged = &StagedFile{URI: uri, Endpoint: EndpointTournamentResults}
	return result, nil
}
