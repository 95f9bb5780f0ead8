package sqlite

import (
	"database/sql/driver"
	"errors"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Richmiz/Coinlytics/internal/stream"
)

// classify maps a driver error to a typed stream error at the adapter
// boundary, so nothing above this package ever inspects error text.
// Contention and schema-not-ready conditions are transient: the store
// will serve the same query once the writer or migrator finishes, so
// they surface as stream_unavailable and trigger the one-shot fallback.
func classify(err error) error {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return stream.NewError(stream.KindStreamUnavailable, err)
		}
	}
	if errors.Is(err, driver.ErrBadConn) {
		return stream.NewError(stream.KindStreamUnavailable, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "database schema has changed"):
		return stream.NewError(stream.KindStreamUnavailable, err)
	}

	return stream.NewError(stream.KindNetworkFailure, err)
}
