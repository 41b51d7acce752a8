package badger

import (
	"bytes"
	"context"
	"encoding/base64"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Energinet-DataHub/geh-message-archive/core"
	"github.com/Energinet-DataHub/geh-message-archive/storage"
)

const defaultQueryPageSize = 100

// RecordStore implements storage.RecordStore for BadgerDB. Documents
// are stored as JSON under an id key; a created-date index key orders
// them chronologically for range scans, and continuation tokens encode
// the last index key of a returned page.
type RecordStore struct {
	backend *Backend
}

var _ storage.RecordStore = (*RecordStore)(nil)

// NewRecordStore opens a record store backed by a BadgerDB database at
// the given path.
func NewRecordStore(path string) (storage.RecordStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &RecordStore{backend: backend}, nil
}

// newRecordStore wraps an already-open backend.
func newRecordStore(backend *Backend) *RecordStore {
	return &RecordStore{backend: backend}
}

// Close closes the underlying database.
func (s *RecordStore) Close() error {
	return s.backend.Close()
}

// Create persists a parsed record as a new document. The id and the
// partition key are generated here and are uncorrelated with any
// business key.
func (s *RecordStore) Create(ctx context.Context, record *core.ParsedRecord) error {
	record.ID = uuid.NewString()
	record.PartitionKey = uuid.NewString()

	value, err := storage.MarshalParsedRecord(record)
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRecordKey(record.ID), value); err != nil {
			return err
		}
		dateKey := makeRecordDateKey(indexTime(record), record.ID)
		if err := tx.Set(dateKey, []byte(record.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// indexTime picks the timestamp a record is ordered by: the payload
// creation time, falling back to the log creation time, falling back to
// the write time.
func indexTime(record *core.ParsedRecord) time.Time {
	if record.CreatedDate != nil {
		return *record.CreatedDate
	}
	if record.LogCreatedDate != nil {
		return *record.LogCreatedDate
	}
	return time.Now().UTC()
}

// Query returns one page of records matching the filter, in
// created-date order. The continuation token is the base64 of the last
// returned index key; passing it back resumes after that record.
func (s *RecordStore) Query(ctx context.Context, filter storage.RecordFilter, pageSize int, continuationToken string) ([]*core.ParsedRecord, string, error) {
	if pageSize <= 0 {
		pageSize = defaultQueryPageSize
	}

	seekKey, skipFirst, err := querySeekKey(filter, continuationToken)
	if err != nil {
		return nil, "", err
	}

	var (
		records  []*core.ParsedRecord
		lastKey  []byte
		nextKey  []byte
		haveMore bool
	)

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordDatePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)

			if skipFirst && bytes.Equal(key, seekKey) {
				continue
			}

			micros, ok := dateKeyMicros(key)
			if !ok {
				continue
			}
			if filter.To != nil && micros > filter.To.UnixMicro() {
				break
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			record, err := readRecord(tx, id)
			if err != nil {
				return err
			}
			if record == nil || !filter.Matches(record) {
				continue
			}

			// Look one match past the page to decide whether a next
			// page exists; an exactly-full last page must report no
			// further pages.
			if len(records) == pageSize {
				haveMore = true
				nextKey = lastKey
				break
			}

			records = append(records, record)
			lastKey = key
		}
		return nil
	}, false)
	if err != nil {
		return nil, "", err
	}

	token := ""
	if haveMore {
		token = base64.StdEncoding.EncodeToString(nextKey)
	}
	return records, token, nil
}

// querySeekKey resolves where iteration starts: after the continuation
// token when present, else at the lower date bound, else at the start
// of the index.
func querySeekKey(filter storage.RecordFilter, continuationToken string) (key []byte, skipFirst bool, err error) {
	if continuationToken != "" {
		key, err := base64.StdEncoding.DecodeString(continuationToken)
		if err != nil {
			return nil, false, storage.ErrInvalidToken
		}
		if _, ok := dateKeyMicros(key); !ok {
			return nil, false, storage.ErrInvalidToken
		}
		return key, true, nil
	}
	if filter.From != nil {
		return makePartialRecordDateKey(*filter.From), false, nil
	}
	return []byte(recordDatePrefix + ":"), false, nil
}

// readRecord reads a record document by id within the transaction.
// Missing documents yield nil, not an error; a dangling index entry is
// skipped by the caller.
func readRecord(tx *badger.Txn, id string) (*core.ParsedRecord, error) {
	item, err := tx.Get(makeRecordKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.ParsedRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalParsedRecord(val)
		return unmarshalErr
	})
	return record, err
}
