package ingestion

import "errors"

var (
	// ErrArchiveStoreRequired is returned when an archive store is not provided.
	ErrArchiveStoreRequired = errors.New("archive store required")

	// ErrRecordStoreRequired is returned when a record store is not provided.
	ErrRecordStoreRequired = errors.New("record store required")
)
