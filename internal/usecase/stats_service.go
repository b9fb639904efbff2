package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/courtsight/atp-ingest/internal/domain/match"
	"github.com/courtsight/atp-ingest/internal/domain/rawpayload"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
	"github.com/courtsight/atp-ingest/internal/staging"
)

// StatsIngest aggregates one stats fan-out: how many fetch+decode+stage tasks
// succeeded, failed, or were cancelled, and every file that was staged.
type StatsIngest struct {
	Staged    []StagedFile
	Succeeded int
	Failed    int
	Cancelled int
}

type StatsService struct {
	fetcher   Fetcher
	decoder   Decoder
	stager    staging.Writer
	statTypes []string
	workers   int
	logger    *logging.Logger
}

// NewStatsService builds the fan-out service. statTypes lists the encrypted
// endpoints to pull per match; the plain match-info document is always pulled.
func NewStatsService(
	fetcher Fetcher,
	decoder Decoder,
	stager staging.Writer,
	statTypes []string,
	workers int,
	logger *logging.Logger,
) *StatsService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsService{
		fetcher:   fetcher,
		decoder:   decoder,
		stager:    stager,
		statTypes: statTypes,
		workers:   workers,
		logger:    logger,
	}
}

type statsTask struct {
	rec      match.Record
	statType string
}

// IngestMatchStats fetches, decodes, and stages statistics for every match
// that carries a match id, fanning out across a bounded worker pool. Each
// fetch+decode is independent; one failure never stops the rest. On context
// cancellation in-flight tasks finish and queued ones are counted cancelled.
func (s *StatsService) IngestMatchStats(ctx context.Context, matches []match.Record) (StatsIngest, error) {
	var tasks []statsTask
	for _, rec := range matches {
		if rec.MatchID == "" || rec.TournamentID == "" {
			continue
		}
		tasks = append(tasks, statsTask{rec: rec, statType: StatTypeMatchInfo})
		for _, statType := range s.statTypes {
			tasks = append(tasks, statsTask{rec: rec, statType: statType})
		}
	}
	if len(tasks) == 0 {
		return StatsIngest{}, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return StatsIngest{}, crerr.Wrap(err, "create stats worker pool")
	}
	defer pool.Release()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		staged    []StagedFile
		succeeded atomic.Int64
		failed    atomic.Int64
		cancelled atomic.Int64
	)

	for _, task := range tasks {
		task := task
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			if ctx.Err() != nil {
				cancelled.Add(1)
				return
			}

			file, err := s.ingestOne(ctx, task)
			if err != nil {
				if crerr.Is(err, context.Canceled) || crerr.Is(err, context.DeadlineExceeded) {
					cancelled.Add(1)
					return
				}
				failed.Add(1)
				s.logger.WarnContext(ctx, "stats task failed",
					"match_id", task.rec.MatchID,
					"tournament_id", task.rec.TournamentID,
					"stat_type", task.statType,
					"error", err,
				)
				return
			}

			succeeded.Add(1)
			mu.Lock()
			staged = append(staged, file)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
		}
	}

	wg.Wait()

	report := StatsIngest{
		Staged:    staged,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Cancelled: int(cancelled.Load()),
	}
	s.logger.InfoContext(ctx, "stats fan-out complete",
		"tasks", len(tasks),
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
	)
	return report, ctx.Err()
}

func (s *StatsService) ingestOne(ctx context.Context, task statsTask) (StagedFile, error) {
	rec := task.rec

	var (
		body []byte
		err  error
	)
	if task.statType == StatTypeMatchInfo {
		body, err = s.fetcher.FetchMatchInfo(ctx, rec.Year, rec.TournamentID, rec.MatchID)
	} else {
		body, err = s.fetcher.FetchStats(ctx, task.statType, rec.Year, rec.TournamentID, rec.MatchID)
		if err == nil {
			body, err = s.decoder.DecodeRaw(body)
		}
	}
	if err != nil {
		return StagedFile{}, err
	}

	uri, err := s.stager.Put(ctx, rawpayload.Payload{
		Endpoint:    EndpointMatchStats,
		Year:        rec.Year,
		RetrievedAt: nowUTC(),
		RecordCount: 1,
		SourceURL:   rec.StatsURL,
		Data:        body,
		Stats: &rawpayload.StatsMeta{
			TournamentID: rec.TournamentID,
			MatchID:      rec.MatchID,
			StatType:     task.statType,
			Round:        rec.Round,
			Player1Name:  rec.Player1Name,
			Player2Name:  rec.Player2Name,
		},
	})
	if err != nil {
		return StagedFile{}, err
	}
	return StagedFile{URI: uri, Endpoint: EndpointMatchStats}, nil
}
