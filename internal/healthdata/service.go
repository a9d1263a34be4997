package healthdata

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/strrl/health-sessions/pkg/models"
)

// Store drivers accepted by Open
const (
	DriverMemory = "memory"
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// Service is the health data platform boundary. Calls may be slow or fail;
// every returned error is a *ServiceError.
type Service interface {
	FetchAll(ctx context.Context) ([]models.SessionRecord, error)
	Insert(ctx context.Context, record models.SessionRecord) error
	Delete(ctx context.Context, uid string) error
}

// ErrImportUnsupported is returned when the store cannot bulk-import
var ErrImportUnsupported = errors.New("store does not support import (use --store duckdb)")

// Importer is implemented by stores that can bulk-load an NDJSON export
type Importer interface {
	ImportNDJSON(ctx context.Context, glob string) (int64, error)
}

// Open builds the service for the given driver. The returned closer
// releases the underlying store.
func Open(driver, dsn string) (Service, io.Closer, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryService(), io.NopCloser(nil), nil
	case DriverDuckDB:
		svc, err := NewDuckDBService(dsn)
		if err != nil {
			return nil, nil, err
		}
		return svc, svc, nil
	case DriverSQLite:
		svc, err := NewSQLiteService(dsn)
		if err != nil {
			return nil, nil, err
		}
		return svc, svc, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// withUID fills in a UID for records submitted without one
func withUID(record models.SessionRecord) models.SessionRecord {
	if record.UID == "" {
		record.UID = uuid.New().String()
	}
	return record
}
