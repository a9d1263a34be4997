package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// OpenDuckDB opens a DuckDB database at path. An empty path opens an
// in-memory database.
func OpenDuckDB(path string) (*sql.DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create DuckDB directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DuckDB: %w", err)
	}

	return db, nil
}

var jsonLoaded sync.Map // *sql.DB -> struct{}

// LoadJSONExtension installs and loads the JSON extension once per database
func LoadJSONExtension(db *sql.DB) error {
	if _, ok := jsonLoaded.Load(db); ok {
		return nil
	}

	if _, err := db.Exec("INSTALL json"); err != nil {
		return fmt.Errorf("failed to install JSON extension: %w", err)
	}

	if _, err := db.Exec("LOAD json"); err != nil {
		return fmt.Errorf("failed to load JSON extension: %w", err)
	}

	jsonLoaded.Store(db, struct{}{})
	return nil
}
