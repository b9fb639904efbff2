// Package staging persists raw payloads to durable storage under a
// partitioned key layout so downstream loads can address files by endpoint,
// year, and month.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/courtsight/atp-ingest/internal/domain/match"
	"github.com/courtsight/atp-ingest/internal/domain/rawpayload"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

const timestampLayout = "20060102150405"

// Writer persists one payload and returns the URI it landed at.
type Writer interface {
	Put(ctx context.Context, payload rawpayload.Payload) (string, error)
}

// stagedDocument is the on-disk shape: the metadata envelope plus the
// already-serialized extracted data.
type stagedDocument struct {
	Metadata rawpayload.Metadata `json:"metadata"`
	Data     json.RawMessage     `json:"data"`
}

// FilesystemWriter stages payloads under a local root directory. Returned
// URIs are absolute paths, directly usable as warehouse load sources.
type FilesystemWriter struct {
	root   string
	logger *logging.Logger
}

func NewFilesystemWriter(root string, logger *logging.Logger) (*FilesystemWriter, error) {
	if strings.TrimSpace(root) == "" {
		return nil, crerr.New("staging root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, crerr.Wrap(err, "resolve staging root")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FilesystemWriter{root: abs, logger: logger}, nil
}

// Put serializes the payload envelope and writes it atomically (temp file
// plus rename) under the partitioned key for its endpoint.
func (w *FilesystemWriter) Put(ctx context.Context, payload rawpayload.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(payload.Data) == 0 {
		return "", crerr.Newf("payload for endpoint %q has no data", payload.Endpoint)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	doc := stagedDocument{Metadata: payload.Meta(), Data: json.RawMessage(payload.Data)}
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(doc); err != nil {
		return "", crerr.Wrapf(err, "encode staged document for endpoint %q", payload.Endpoint)
	}

	target := filepath.Join(w.root, filepath.FromSlash(ObjectKey(payload)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", crerr.Wrap(err, "create staging partition")
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, buf.B, 0o644); err != nil {
		return "", crerr.Wrap(err, "write staged document")
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", crerr.Wrap(err, "publish staged document")
	}

	w.logger.DebugContext(ctx, "staged payload",
		"endpoint", payload.Endpoint,
		"uri", target,
		"records", payload.RecordCount,
	)
	return target, nil
}

// ObjectKey builds the slash-separated storage key for a payload. Calendar
// and tournament payloads partition by endpoint/year/month; match statistics
// use a richer name carrying tournament, round, players, match, and stat type.
func ObjectKey(payload rawpayload.Payload) string {
	ts := payload.RetrievedAt.UTC()

	if payload.Stats != nil {
		s := payload.Stats
		name := fmt.Sprintf("%s_%s_%s-vs-%s_%d_%s_%s_%s.json",
			s.TournamentID,
			match.RoundShort(s.Round),
			surname(s.Player1Name),
			surname(s.Player2Name),
			payload.Year,
			s.MatchID,
			s.StatType,
			ts.Format(timestampLayout),
		)
		return fmt.Sprintf("raw/match_stats/year=%d/tourn_id=%s/%s", payload.Year, s.TournamentID, name)
	}

	return fmt.Sprintf("raw/%s/year=%d/month=%02d/%s.json",
		payload.Endpoint, payload.Year, int(ts.Month()), ts.Format(timestampLayout))
}

// surname reduces a display name like "N. Djokovic" to its last word, with
// characters unsafe in file names dropped.
func surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "unknown"
	}
	last := fields[len(fields)-1]
	last = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ',':
			return -1
		}
		return r
	}, last)
	if last == "" {
		return "unknown"
	}
	return last
}
