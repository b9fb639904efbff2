// Package config loads the immutable process configuration from environment
// variables. It is constructed once in main and passed by value into the
// component constructors; nothing reads the environment after Load returns.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	AppEnv   string `validate:"required,oneof=development staging production"`
	LogLevel zapcore.Level

	ATPBaseURL         string `validate:"required,url"`
	ATPArchivePath     string `validate:"required"`
	ATPCalendarAPIPath string `validate:"required"`
	HawkeyeURLTemplate string
	InfosysBaseURL     string            `validate:"required,url"`
	InfosysEndpoints   map[string]string `validate:"required,min=1"`

	HTTPTimeout          time.Duration `validate:"required"`
	FetchMaxRetries      int           `validate:"min=0"`
	FetchRetryBaseDelay  time.Duration `validate:"required"`
	FetchRetryMaxDelay   time.Duration `validate:"required"`
	FetchPolitenessDelay time.Duration `validate:"min=0"`
	StatsWorkerCount     int           `validate:"min=1"`

	StagingDir        string            `validate:"required"`
	WarehousePath     string            `validate:"required"`
	WarehouseTableMap map[string]string `validate:"required,min=1"`

	RunTimeout time.Duration `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (Config, error) {
	cfg := Config{
		AppEnv:             getString("APP_ENV", "development"),
		ATPBaseURL:         getString("ATP_BASE_URL", "https://www.atptour.com"),
		ATPArchivePath:     getString("ATP_ARCHIVE_PATH", "/en/scores/results-archive"),
		ATPCalendarAPIPath: getString("ATP_CALENDAR_API_PATH", "/en/-/tournaments/calendar/tour"),
		HawkeyeURLTemplate: getString("HAWKEYE_URL_TEMPLATE",
			"https://itp-atp-sls.infosys-platforms.com/static/prod/court-vision/{year}/{tourn_id}/{match_id}/data.json"),
		InfosysBaseURL: getString("INFOSYS_BASE_URL", "https://itp-atp-sls.infosys-platforms.com/prod/api"),
		StagingDir:     getString("STAGING_DIR", "./staging_area"),
		WarehousePath:  getString("WAREHOUSE_PATH", "./warehouse/atp_tennis.duckdb"),
	}

	var err error
	if cfg.LogLevel, err = getLevel("APP_LOG_LEVEL", zapcore.InfoLevel); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 20*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.FetchMaxRetries, err = getInt("FETCH_MAX_RETRIES", 4); err != nil {
		return Config{}, err
	}
	if cfg.FetchRetryBaseDelay, err = getDuration("FETCH_RETRY_BASE_DELAY", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.FetchRetryMaxDelay, err = getDuration("FETCH_RETRY_MAX_DELAY", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.FetchPolitenessDelay, err = getDuration("FETCH_POLITENESS_DELAY", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.StatsWorkerCount, err = getInt("STATS_WORKER_COUNT", 4); err != nil {
		return Config{}, err
	}
	if cfg.RunTimeout, err = getDuration("RUN_TIMEOUT", 2*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.InfosysEndpoints, err = getPairMap("INFOSYS_ENDPOINTS", defaultInfosysEndpoints); err != nil {
		return Config{}, err
	}
	if cfg.WarehouseTableMap, err = getPairMap("WAREHOUSE_TABLE_MAP", defaultWarehouseTableMap); err != nil {
		return Config{}, err
	}

	if cfg.FetchRetryMaxDelay < cfg.FetchRetryBaseDelay {
		return Config{}, crerr.New("config key FETCH_RETRY_MAX_DELAY: must not be below FETCH_RETRY_BASE_DELAY")
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, crerr.Wrap(err, "validate config")
	}

	return cfg, nil
}

var defaultInfosysEndpoints = map[string]string{
	"key-stats":       "{base_url}/stats/{year}/eventId/{tourn_id}/matchId/{match_id}/key-stats",
	"rally-analysis":  "{base_url}/rally-analysis/{year}/eventId/{tourn_id}/matchId/{match_id}",
	"stroke-analysis": "{base_url}/stroke-analysis/{year}/eventId/{tourn_id}/matchId/{match_id}",
	"court-vision":    "{base_url}/court-vision/{year}/eventId/{tourn_id}/matchId/{match_id}",
}

var defaultWarehouseTableMap = map[string]string{
	"atp_results_archive":    "atp_tournaments_raw",
	"atp_tournaments":        "atp_calendar_raw",
	"atp_tournament_results": "atp_results_raw",
	"match_stats":            "atp_match_stats_raw",
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, crerr.Wrapf(err, "config key %s", key)
	}
	return value, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, crerr.Wrapf(err, "config key %s", key)
	}
	return value, nil
}

func getLevel(key string, fallback zapcore.Level) (zapcore.Level, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	level, err := zapcore.ParseLevel(raw)
	if err != nil {
		return 0, crerr.Wrapf(err, "config key %s", key)
	}
	return level, nil
}

// getPairMap parses "name:value,name:value" lists. Values may themselves
// contain colons; only the first one per pair separates the name.
func getPairMap(key string, fallback map[string]string) (map[string]string, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !found || name == "" || value == "" {
			return nil, crerr.Newf("config key %s: malformed pair %q", key, pair)
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil, crerr.Newf("config key %s: no pairs", key)
	}
	return out, nil
}
