package healthdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorKind classifies why a data service call failed
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnectivity
	KindPermission
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConnectivity = &ServiceError{Kind: KindConnectivity}
	ErrPermission   = &ServiceError{Kind: KindPermission}
	ErrNotFound     = &ServiceError{Kind: KindNotFound}
)

// ServiceError wraps any failure returned by a Service
type ServiceError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches any ServiceError of the same kind, so
// errors.Is(err, ErrPermission) works regardless of op and cause.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError wraps err as a ServiceError of the given kind
func NewError(op string, kind ErrorKind, err error) error {
	return &ServiceError{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of the first ServiceError in err's chain
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// wrap classifies a store error and wraps it. Already wrapped errors pass
// through unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone):
		return KindConnectivity
	case errors.Is(err, sql.ErrNoRows):
		return KindNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return classifySQLite(sqliteErr.Code())
	}

	// database/sql and DuckDB report these only as text; DuckDB prefixes
	// every message with its error type
	msg := err.Error()
	switch {
	case strings.Contains(msg, "sql: database is closed"),
		strings.HasPrefix(msg, "Connection Error:"),
		strings.HasPrefix(msg, "IO Error:"):
		return KindConnectivity
	case strings.HasPrefix(msg, "Permission Error:"),
		strings.Contains(msg, "in read-only mode"):
		return KindPermission
	}
	return KindUnknown
}

func classifySQLite(code int) ErrorKind {
	// extended result codes carry the primary code in the low byte
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN:
		return KindConnectivity
	case sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH:
		return KindPermission
	case sqlite3.SQLITE_NOTFOUND:
		return KindNotFound
	}
	return KindUnknown
}
