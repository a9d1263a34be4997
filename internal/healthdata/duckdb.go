package healthdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/strrl/health-sessions/internal/db"
	"github.com/strrl/health-sessions/pkg/models"
)

const defaultQueryTimeout = 30 * time.Second

// DuckDBService stores sessions in a DuckDB table. Row order follows a
// sequence column so records come back in insertion order.
type DuckDBService struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewDuckDBService opens (or creates) the DuckDB file at path
func NewDuckDBService(path string) (*DuckDBService, error) {
	database, err := db.OpenDuckDB(path)
	if err != nil {
		return nil, err
	}

	svc, err := NewDuckDBServiceFromDB(database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return svc, nil
}

func NewDuckDBServiceFromDB(database *sql.DB) (*DuckDBService, error) {
	svc := &DuckDBService{db: database, queryTimeout: defaultQueryTimeout}
	if err := svc.migrate(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *DuckDBService) Close() error {
	return s.db.Close()
}

func (s *DuckDBService) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS session_seq START 1`,
		`CREATE TABLE IF NOT EXISTS sessions (
			uid VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			seq BIGINT DEFAULT nextval('session_seq')
		)`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate duckdb schema: %w", err)
		}
	}
	return nil
}

type fetchResult struct {
	records []models.SessionRecord
	err     error
}

// fetchAsync runs the listing query on its own goroutine and delivers the
// result over a channel. The channel is closed only after the rows, and so
// the connection, have been released.
func (s *DuckDBService) fetchAsync(ctx context.Context) <-chan fetchResult {
	resultChan := make(chan fetchResult, 1)

	go func() {
		defer close(resultChan)

		rows, err := s.db.QueryContext(ctx, `
			SELECT uid, name, start_time, end_time
			FROM sessions
			ORDER BY seq ASC
		`)
		if err != nil {
			resultChan <- fetchResult{err: err}
			return
		}
		defer rows.Close()

		var records []models.SessionRecord
		for rows.Next() {
			select {
			case <-ctx.Done():
				resultChan <- fetchResult{err: ctx.Err()}
				return
			default:
			}

			var record models.SessionRecord
			if err := rows.Scan(&record.UID, &record.Name, &record.Start, &record.End); err != nil {
				resultChan <- fetchResult{err: fmt.Errorf("scan session row: %w", err)}
				return
			}
			record.Start = record.Start.Local()
			record.End = record.End.Local()
			records = append(records, record)
		}
		if err := rows.Err(); err != nil {
			resultChan <- fetchResult{err: err}
			return
		}

		resultChan <- fetchResult{records: records}
	}()

	return resultChan
}

// FetchAll lists every session. When ctx ends first the query is
// interrupted and FetchAll waits for it to let go of the connection, since
// the pool holds only one.
func (s *DuckDBService) FetchAll(ctx context.Context) ([]models.SessionRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	results := s.fetchAsync(queryCtx)
	select {
	case result := <-results:
		if result.err != nil {
			return nil, wrap("fetch sessions", result.err)
		}
		return result.records, nil
	case <-ctx.Done():
		cancel()
		for range results {
		}
		return nil, wrap("fetch sessions", ctx.Err())
	}
}

func (s *DuckDBService) Insert(ctx context.Context, record models.SessionRecord) error {
	record = withUID(record)

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(
		queryCtx,
		`INSERT INTO sessions (uid, name, start_time, end_time) VALUES (?, ?, ?, ?)`,
		record.UID,
		record.Name,
		record.Start.UTC(),
		record.End.UTC(),
	)
	return wrap("insert session", err)
}

func (s *DuckDBService) Delete(ctx context.Context, uid string) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(queryCtx, `DELETE FROM sessions WHERE uid = ?`, uid)
	if err != nil {
		return wrap("delete session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrap("delete session", err)
	}
	if affected == 0 {
		return NewError("delete session", KindNotFound, fmt.Errorf("uid %s", uid))
	}
	return nil
}

// ImportNDJSON bulk-loads sessions from newline-delimited JSON files
// matching glob. Each line carries uid, name, start and end; lines without
// a uid get a fresh one and existing uids are skipped.
func (s *DuckDBService) ImportNDJSON(ctx context.Context, glob string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, wrap("import sessions", err)
	}
	if err := db.LoadJSONExtension(s.db); err != nil {
		return 0, wrap("import sessions", err)
	}

	importQuery := fmt.Sprintf(`
		INSERT INTO sessions (uid, name, start_time, end_time)
		SELECT
			COALESCE(CAST(uid AS VARCHAR), CAST(uuid() AS VARCHAR)),
			COALESCE(CAST(name AS VARCHAR), 'Imported session'),
			CAST("start" AS TIMESTAMP),
			CAST("end" AS TIMESTAMP)
		FROM read_json('%s',
			format = 'newline_delimited',
			union_by_name = true
		)
		WHERE "start" IS NOT NULL AND "end" IS NOT NULL
		ON CONFLICT DO NOTHING
	`, strings.ReplaceAll(glob, "'", "''"))

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(queryCtx, importQuery)
	if err != nil {
		return 0, wrap("import sessions", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, wrap("import sessions", err)
	}
	return affected, nil
}
