package healthdata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/strrl/health-sessions/pkg/models"
)

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite parent dir: %w", err)
	}

	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	svc, err := NewSQLiteServiceFromDB(database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return svc, nil
}

func NewSQLiteServiceFromDB(database *sql.DB) (*SQLiteService, error) {
	svc := &SQLiteService{db: database}
	if err := svc.migrate(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *SQLiteService) Close() error {
	return s.db.Close()
}

func (s *SQLiteService) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteService) FetchAll(ctx context.Context) ([]models.SessionRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT uid, name, start_time, end_time FROM sessions ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, wrap("fetch sessions", err)
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var (
			record           models.SessionRecord
			startRaw, endRaw string
		)
		if err := rows.Scan(&record.UID, &record.Name, &startRaw, &endRaw); err != nil {
			return nil, wrap("fetch sessions", fmt.Errorf("scan session row: %w", err))
		}
		if record.Start, err = parseTime(startRaw); err != nil {
			return nil, wrap("fetch sessions", fmt.Errorf("parse start_time: %w", err))
		}
		if record.End, err = parseTime(endRaw); err != nil {
			return nil, wrap("fetch sessions", fmt.Errorf("parse end_time: %w", err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("fetch sessions", err)
	}
	return records, nil
}

func (s *SQLiteService) Insert(ctx context.Context, record models.SessionRecord) error {
	record = withUID(record)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions(uid, name, start_time, end_time) VALUES (?, ?, ?, ?)`,
		record.UID,
		record.Name,
		formatTime(record.Start),
		formatTime(record.End),
	)
	return wrap("insert session", err)
}

func (s *SQLiteService) Delete(ctx context.Context, uid string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE uid = ?`, uid)
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

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}
