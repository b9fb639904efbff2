package usecase

import (
	"context"
	"time"

	"github.com/courtsight/atp-ingest/internal/domain/match"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

// RunReport is what one pipeline run hands back to the caller.
type RunReport struct {
	Year               int
	TournamentsFound   int
	TournamentsSkipped int
	TournamentsFetched int
	TournamentsFailed  int
	MatchesExtracted   int
	MatchesSkipped     int
	StatsSucceeded     int
	StatsFailed        int
	Load               LoadReport
	Duration           time.Duration
}

type Pipeline struct {
	calendar    *CalendarService
	tournaments *TournamentService
	stats       *StatsService
	loads       *LoadService
	matchTypes  []string
	runTimeout  time.Duration
	logger      *logging.Logger
}

func NewPipeline(
	calendar *CalendarService,
	tournaments *TournamentService,
	stats *StatsService,
	loads *LoadService,
	matchTypes []string,
	runTimeout time.Duration,
	logger *logging.Logger,
) *Pipeline {
	if len(matchTypes) == 0 {
		matchTypes = []string{"singles"}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		calendar:    calendar,
		tournaments: tournaments,
		stats:       stats,
		loads:       loads,
		matchTypes:  matchTypes,
		runTimeout:  runTimeout,
		logger:      logger,
	}
}

// RunYear executes one full ingestion run for a season: archive scrape,
// per-tournament results, per-match statistics, then warehouse loads. Each
// stage feeds staged files into the final load step; per-tournament and
// per-stat failures are counted, not fatal.
func (p *Pipeline) RunYear(ctx context.Context, year int) (RunReport, error) {
	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	start := time.Now()
	report := RunReport{Year: year}

	calendar, err := p.calendar.IngestYear(ctx, year)
	if err != nil {
		return report, err
	}
	report.TournamentsFound = len(calendar.Tournaments)
	report.TournamentsSkipped = calendar.Skipped

	staged := []StagedFile{calendar.Staged}
	if apiFile, err := p.calendar.IngestCalendarAPI(ctx, year); err != nil {
		p.logger.WarnContext(ctx, "calendar API ingest failed", "error", err)
	} else {
		staged = append(staged, apiFile)
	}

	var allMatches []match.Record
	for _, summary := range calendar.Tournaments {
		if summary.ResultsURL == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		for _, matchType := range p.matchTypes {
			ingest, err := p.tournaments.IngestResults(ctx, summary, matchType)
			if err != nil {
				report.TournamentsFailed++
				p.logger.WarnContext(ctx, "tournament ingest failed",
					"tournament", summary.Name,
					"match_type", matchType,
					"error", err,
				)
				continue
			}
			report.TournamentsFetched++
			report.MatchesExtracted += len(ingest.Matches)
			report.MatchesSkipped += ingest.Skipped
			allMatches = append(allMatches, ingest.Matches...)
			if ingest.Staged != nil {
				staged = append(staged, *ingest.Staged)
			}
		}
	}

	statsReport, err := p.stats.IngestMatchStats(ctx, allMatches)
	report.StatsSucceeded = statsReport.Succeeded
	report.StatsFailed = statsReport.Failed
	staged = append(staged, statsReport.Staged...)
	if err != nil {
		return report, err
	}

	report.Load, err = p.loads.LoadBatch(ctx, staged)
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	p.logger.InfoContext(ctx, "run complete",
		"year", year,
		"tournaments", report.TournamentsFetched,
		"matches", report.MatchesExtracted,
		"stats_ok", report.StatsSucceeded,
		"stats_failed", report.StatsFailed,
		"fresh_loads", report.Load.Fresh,
		"noop_loads", report.Load.NoOps,
		"failed_loads", report.Load.Fails,
		"rows", report.Load.Rows,
		"duration", report.Duration,
	)
	return report, nil
}
