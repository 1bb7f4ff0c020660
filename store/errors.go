package store

import (
	"errors"
	"strings"
)

// ErrNoPartitions reports that a query addressed partitions that do not exist
// in the object store. Handlers map it to 404.
var ErrNoPartitions = errors.New("no matching partitions")

// missingDataMarkers are the substrings DuckDB emits when a read_parquet
// source resolves to nothing. They vary by engine version, so all known
// variants are checked.
var missingDataMarkers = []string{
	"No files found",
	"Could not find",
	"does not exist",
	"Invalid Input",
}

// classifyQueryErr folds engine errors for absent objects into
// ErrNoPartitions; everything else passes through unchanged.
func classifyQueryErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, marker := range missingDataMarkers {
		if strings.Contains(msg, marker) {
			return ErrNoPartitions
		}
	}
	return err
}

// isMissingColumn reports whether err is the engine complaining that the named
// column is absent from the scanned parquet schema. Used for the portfolio
// action-column drift fallback.
func isMissingColumn(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, column) && strings.Contains(msg, "not found")
}
