// Package atptour fetches the public ATP Tour documents the pipeline ingests:
// the results-archive listing, per-tournament results pages, the calendar JSON
// API, and the Hawkeye/Infosys match-statistics endpoints.
package atptour

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/platform/logging"
	"github.com/courtsight/atp-ingest/internal/platform/resilience"
)

const (
	defaultBaseURL         = "https://www.atptour.com"
	defaultArchivePath     = "/en/scores/results-archive"
	defaultCalendarAPIPath = "/en/-/tournaments/calendar/tour"
	maxResponseBytes       = 8 << 20
)

// defaultUserAgents mirrors a small pool of common browser identities; one is
// picked per request to vary the fingerprint.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
}

var errTransient = crerr.New("atptour transient failure")

// ErrUnavailable is returned when the breaker is open and the upstream is not
// being contacted at all.
var ErrUnavailable = crerr.New("atptour upstream unavailable")

type ClientConfig struct {
	HTTPClient       *http.Client
	BaseURL          string
	ArchivePath      string
	CalendarAPIPath  string
	HawkeyeTemplate  string
	InfosysBaseURL   string
	InfosysEndpoints map[string]string
	UserAgents       []string
	Timeout          time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	PolitenessDelay  time.Duration
	Logger           *logging.Logger
	CircuitBreaker   resilience.BreakerConfig
}

type Client struct {
	httpClient       *http.Client
	baseURL          string
	archivePath      string
	calendarAPIPath  string
	hawkeyeTemplate  string
	infosysBaseURL   string
	infosysEndpoints map[string]string
	userAgents       []string
	maxRetries       int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	politenessDelay  time.Duration
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
	circuitEnabled   bool

	mu          sync.Mutex
	nextAllowed time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	archivePath := strings.TrimSpace(cfg.ArchivePath)
	if archivePath == "" {
		archivePath = defaultArchivePath
	}
	calendarAPIPath := strings.TrimSpace(cfg.CalendarAPIPath)
	if calendarAPIPath == "" {
		calendarAPIPath = defaultCalendarAPIPath
	}

	userAgents := make([]string, 0, len(cfg.UserAgents))
	for _, ua := range cfg.UserAgents {
		if strings.TrimSpace(ua) != "" {
			userAgents = append(userAgents, ua)
		}
	}
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}

	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = 2 * time.Second
	}
	retryMax := cfg.RetryMaxDelay
	if retryMax < retryBase {
		retryMax = 10 * time.Second
	}

	breakerCfg := resilience.NormalizeBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:       httpClient,
		baseURL:          baseURL,
		archivePath:      archivePath,
		calendarAPIPath:  calendarAPIPath,
		hawkeyeTemplate:  strings.TrimSpace(cfg.HawkeyeTemplate),
		infosysBaseURL:   strings.TrimRight(strings.TrimSpace(cfg.InfosysBaseURL), "/"),
		infosysEndpoints: cfg.InfosysEndpoints,
		userAgents:       userAgents,
		maxRetries:       max(cfg.MaxRetries, 0),
		retryBaseDelay:   retryBase,
		retryMaxDelay:    retryMax,
		politenessDelay:  cfg.PolitenessDelay,
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled:   breakerCfg.Enabled,
	}
}

// BaseURL is the site root used to resolve relative links found in documents.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchArchive retrieves the results-archive listing page for a year.
func (c *Client) FetchArchive(ctx context.Context, year int) ([]byte, error) {
	url := fmt.Sprintf("%s%s?year=%d", c.baseURL, c.archivePath, year)
	body, _, err := c.get(ctx, url)
	return body, err
}

// FetchCalendarAPI retrieves the tournament-calendar JSON document.
func (c *Client) FetchCalendarAPI(ctx context.Context) ([]byte, error) {
	body, _, err := c.get(ctx, c.baseURL+c.calendarAPIPath)
	return body, err
}

// FetchResults retrieves one tournament's results page, appending the
// matchType query parameter when the URL does not already carry one.
func (c *Client) FetchResults(ctx context.Context, resultsURL, matchType string) ([]byte, error) {
	url := resultsURL
	if matchType != "" && !strings.Contains(url, "matchType") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "matchType=" + matchType
	}
	body, _, err := c.get(ctx, url)
	return body, err
}

// FetchMatchInfo retrieves the plain-JSON Hawkeye match-info document.
func (c *Client) FetchMatchInfo(ctx context.Context, year int, tournID, matchID string) ([]byte, error) {
	if c.hawkeyeTemplate == "" {
		return nil, crerr.New("hawkeye URL template is not configured")
	}
	url := expandTemplate(c.hawkeyeTemplate, "", year, tournID, matchID)
	body, _, err := c.get(ctx, url)
	return body, err
}

// FetchStats retrieves an encrypted Infosys statistics envelope of the given
// type. The caller decrypts it; this method only moves bytes.
func (c *Client) FetchStats(ctx context.Context, statType string, year int, tournID, matchID string) ([]byte, error) {
	template, ok := c.infosysEndpoints[statType]
	if !ok {
		return nil, crerr.Newf("unknown match stat type %q", statType)
	}
	url := expandTemplate(template, c.infosysBaseURL, year, tournID, matchID)
	body, _, err := c.get(ctx, url)
	return body, err
}

// get performs one throttled, retried GET. The returned content type is the
// raw response header value.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, string, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "circuit breaker rejected request", "state", c.breaker.State())
			return nil, "", crerr.Mark(crerr.Wrap(err, "skipping fetch"), ErrUnavailable)
		}
	}

	if err := c.throttle(ctx); err != nil {
		return nil, "", err
	}

	var (
		body        []byte
		contentType string
	)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(crerr.Wrap(err, "build request"))
		}
		req.Header.Set("User-Agent", c.pickUserAgent())
		req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return crerr.Mark(crerr.Wrap(err, "send request"), errTransient)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return crerr.Mark(crerr.Wrap(err, "read response body"), errTransient)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = raw
			contentType = resp.Header.Get("Content-Type")
			return nil
		case isRetryableStatus(resp.StatusCode):
			return crerr.Mark(crerr.Newf("status=%d body=%s", resp.StatusCode, abbreviateBody(raw)), errTransient)
		default:
			return backoff.Permanent(crerr.Newf("status=%d body=%s", resp.StatusCode, abbreviateBody(raw)))
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryBaseDelay
	expo.MaxInterval = c.retryMaxDelay
	expo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.maxRetries)), ctx))
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "fetch failed", "url", fullURL, "error", err)
		return nil, "", err
	}

	return body, contentType, nil
}

// throttle spaces requests by the politeness delay, including across
// concurrent callers sharing this client.
func (c *Client) throttle(ctx context.Context) error {
	if c.politenessDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	wait := c.nextAllowed.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.nextAllowed = now.Add(wait + c.politenessDelay)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) pickUserAgent() string {
	return c.userAgents[rand.IntN(len(c.userAgents))]
}

// IsTransient reports whether a fetch error was classified retryable. Callers
// use it to distinguish exhausted retries from permanent upstream rejections.
func IsTransient(err error) bool {
	return crerr.Is(err, errTransient)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

func expandTemplate(template, baseURL string, year int, tournID, matchID string) string {
	replacer := strings.NewReplacer(
		"{base_url}", baseURL,
		"{year}", strconv.Itoa(year),
		"{tourn_id}", tournID,
		"{match_id}", strings.ToUpper(matchID),
	)
	return replacer.Replace(template)
}

func abbreviateBody(raw []byte) string {
	const maxLen = 200
	text := strings.TrimSpace(string(raw))
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}
