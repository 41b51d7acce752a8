package storage

import (
	"context"
	"io"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// ArchiveStore is the object-store facade consumed by the ingestion
// pipeline and the download path. Implementations must be thread-safe.
type ArchiveStore interface {
	// List enumerates up to pageSize ready blobs from the source
	// container as raw records without content. Blob names are opaque
	// identifiers assigned by the producer.
	List(ctx context.Context, pageSize int) ([]*core.RawRecord, error)

	// Download fills the record's Content from the source container.
	// A missing or empty blob yields empty content, not an error.
	Download(ctx context.Context, record *core.RawRecord) error

	// Archive copies the record's source blob to the archive container
	// preserving metadata and tags, verifies the copy completed, then
	// deletes the original. Returns the archived location. The source
	// is only deleted after confirmed copy completion; a crash in
	// between leaves the blob in both places, which is safe for
	// at-least-once reprocessing.
	Archive(ctx context.Context, record *core.RawRecord) (string, error)

	// ReadByName streams an archived blob's content. Absent blobs are
	// a normal outcome: the reader is nil and the error is nil.
	ReadByName(ctx context.Context, name string) (io.ReadCloser, error)
}

// RecordStore is the document-store facade parsed records are persisted
// into and queried from. Implementations must be thread-safe.
type RecordStore interface {
	// Create persists a parsed record as a new document, assigning its
	// ID and partition key. The partition key is uncorrelated with any
	// business key; all reads are cross-partition scans.
	Create(ctx context.Context, record *core.ParsedRecord) error

	// Query returns one page of records matching the filter, in
	// created-date order, plus the continuation token for the next
	// page ("" when exhausted). pageSize -1 selects the store default.
	// The token must be one previously returned by this store.
	Query(ctx context.Context, filter RecordFilter, pageSize int, continuationToken string) ([]*core.ParsedRecord, string, error)

	// Close closes the store and releases resources.
	Close() error
}
