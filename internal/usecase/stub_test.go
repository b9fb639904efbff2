package usecase

import (
	"context"
	"sync"

	"github.com/courtsight/atp-ingest/internal/domain/rawpayload"
)

type stubFetcher struct {
	archiveFn    func(ctx context.Context, year int) ([]byte, error)
	calendarFn   func(ctx context.Context) ([]byte, error)
	resultsFn    func(ctx context.Context, resultsURL, matchType string) ([]byte, error)
	matchInfoFn  func(ctx context.Context, year int, tournID, matchID string) ([]byte, error)
	matchStatsFn func(ctx context.Context, statType string, year int, tournID, matchID string) ([]byte, error)
}

func (s *stubFetcher) FetchArchive(ctx context.Context, year int) ([]byte, error) {
	return s.archiveFn(ctx, year)
}

func (s *stubFetcher) FetchCalendarAPI(ctx context.Context) ([]byte, error) {
	return s.calendarFn(ctx)
}

func (s *stubFetcher) FetchResults(ctx context.Context, resultsURL, matchType string) ([]byte, error) {
	return s.resultsFn(ctx, resultsURL, matchType)
}

func (s *stubFetcher) FetchMatchInfo(ctx context.Context, year int, tournID, matchID string) ([]byte, error) {
	return s.matchInfoFn(ctx, year, tournID, matchID)
}

func (s *stubFetcher) FetchStats(ctx context.Context, statType string, year int, tournID, matchID string) ([]byte, error) {
	return s.matchStatsFn(ctx, statType, year, tournID, matchID)
}

type stubDecoder struct {
	decodeFn func(body []byte) ([]byte, error)
}

func (s *stubDecoder) DecodeRaw(body []byte) ([]byte, error) {
	return s.decodeFn(body)
}

// stubStager records every payload it receives and hands back synthetic URIs.
type stubStager struct {
	mu       sync.Mutex
	payloads []rawpayload.Payload
	err      error
}

func (s *stubStager) Put(_ context.Context, payload rawpayload.Payload) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return "/staging/stub-" + payload.Endpoint, nil
}

func (s *stubStager) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

type stubLoader struct {
	loadFn func(ctx context.Context, sourceURI, endpoint, targetTable string) (int, error)
}

func (s *stubLoader) Load(ctx context.Context, sourceURI, endpoint, targetTable string) (int, error) {
	return s.loadFn(ctx, sourceURI, endpoint, targetTable)
}
