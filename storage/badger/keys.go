package badger

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	recordPrefix     = "marec"
	recordDatePrefix = "marecd"
)

// makeRecordKey generates a key for a parsed record document by ID.
func makeRecordKey(id string) []byte {
	return []byte(recordPrefix + ":" + id)
}

// makeRecordDateKey generates a composite key for the created-date
// index. Format: prefix:timestamp:id, with the timestamp written in
// BigEndian so lexicographic sort equals chronological sort.
func makeRecordDateKey(timestamp time.Time, id string) []byte {
	prefix := []byte(recordDatePrefix + ":")
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makePartialRecordDateKey generates a partial key for date range
// seeks. Format: prefix:timestamp
func makePartialRecordDateKey(timestamp time.Time) []byte {
	prefix := []byte(recordDatePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// dateKeyMicros extracts the timestamp segment of a date index key.
func dateKeyMicros(key []byte) (int64, bool) {
	prefix := []byte(recordDatePrefix + ":")
	if len(key) < len(prefix)+8 || !bytes.HasPrefix(key, prefix) {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key[len(prefix):])), true
}
