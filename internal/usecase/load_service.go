package usecase

import (
	"context"

	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

// LoadStatus classifies one file load for the run report.
type LoadStatus string

const (
	LoadFresh  LoadStatus = "fresh"
	LoadNoOp   LoadStatus = "noop"
	LoadFailed LoadStatus = "failed"
)

// FileLoad reports one file's trip through the loader.
type FileLoad struct {
	URI    string
	Table  string
	Rows   int
	Status LoadStatus
	Err    error
}

// LoadReport aggregates a batch of file loads.
type LoadReport struct {
	Files []FileLoad
	Fresh int
	NoOps int
	Fails int
	Rows  int
}

type LoadService struct {
	loader   FileLoader
	tableMap map[string]string
	logger   *logging.Logger
}

func NewLoadService(loader FileLoader, tableMap map[string]string, logger *logging.Logger) *LoadService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoadService{loader: loader, tableMap: tableMap, logger: logger}
}

// LoadFile loads one staged file into the table mapped for its endpoint. A
// zero row count with no error means the ledger already had the URI.
func (s *LoadService) LoadFile(ctx context.Context, file StagedFile) (FileLoad, error) {
	table, ok := s.tableMap[file.Endpoint]
	if !ok {
		return FileLoad{}, crerr.Wrapf(ErrInvalidInput, "no target table mapped for endpoint %q", file.Endpoint)
	}

	rows, err := s.loader.Load(ctx, file.URI, file.Endpoint, table)
	if err != nil {
		return FileLoad{URI: file.URI, Table: table, Status: LoadFailed, Err: err}, err
	}
	if rows == 0 {
		return FileLoad{URI: file.URI, Table: table, Status: LoadNoOp}, nil
	}
	return FileLoad{URI: file.URI, Table: table, Rows: rows, Status: LoadFresh}, nil
}

// LoadBatch loads every staged file, continuing past individual failures, and
// aggregates the outcome. The batch error is non-nil only when the context
// was cancelled mid-batch.
func (s *LoadService) LoadBatch(ctx context.Context, files []StagedFile) (LoadReport, error) {
	var report LoadReport
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := s.LoadFile(ctx, file)
		report.Files = append(report.Files, result)
		switch {
		case err != nil:
			report.Fails++
			s.logger.ErrorContext(ctx, "file load failed", "uri", file.URI, "error", err)
		case result.Status == LoadNoOp:
			report.NoOps++
		default:
			report.Fresh++
			report.Rows += result.Rows
		}
	}
	return report, nil
}
