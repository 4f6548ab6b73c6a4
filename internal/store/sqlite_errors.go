package store

import "strings"

// isSQLiteBusy checks if the error is a SQLITE_BUSY error, raised when the
// database is locked by another connection.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// isSQLiteLocked checks for the "database is locked" form of the same
// concurrency error.
func isSQLiteLocked(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// isSQLiteConflict reports whether the error is a SQLite concurrency error
// that warrants a retry.
func isSQLiteConflict(err error) bool {
	return isSQLiteBusy(err) || isSQLiteLocked(err)
}
