package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Energinet-DataHub/geh-message-archive/core"
	"github.com/Energinet-DataHub/geh-message-archive/storage"
)

func newTestStore(t *testing.T) storage.RecordStore {
	t.Helper()
	store, err := NewMemoryRecordStore()
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(messageID string, created time.Time) *core.ParsedRecord {
	return &core.ParsedRecord{
		MessageID:      messageID,
		ProcessType:    "E65",
		RsmName:        "requestchangeofsupplier",
		CreatedDate:    &created,
		ParsingSuccess: true,
	}
}

func TestRecordStoreCreateAssignsIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("m1", time.Now().UTC())
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if record.ID == "" {
		t.Error("Create must assign an id")
	}
	if record.PartitionKey == "" {
		t.Error("Create must assign a partition key")
	}
	if record.ID == record.MessageID {
		t.Error("id must not be derived from the business key")
	}
}

func TestRecordStoreQueryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	original := testRecord("m1", created)
	if err := store.Create(ctx, original); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	records, token, err := store.Query(ctx, storage.RecordFilter{MessageID: "m1"}, 10, "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.MessageID != "m1" || got.ProcessType != "E65" {
		t.Errorf("record = %+v", got)
	}
	if got.ID != original.ID {
		t.Errorf("id = %q, want %q", got.ID, original.ID)
	}
	if got.CreatedDate == nil || !got.CreatedDate.Equal(created) {
		t.Errorf("CreatedDate = %v, want %v", got.CreatedDate, created)
	}
}

func TestRecordStoreQueryDateOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	// Insert out of chronological order.
	for _, offset := range []int{2, 0, 1} {
		record := testRecord(fmt.Sprintf("m%d", offset), base.Add(time.Duration(offset)*time.Hour))
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, _, err := store.Query(ctx, storage.RecordFilter{}, 10, "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"m0", "m1", "m2"} {
		if records[i].MessageID != want {
			t.Errorf("records[%d] = %q, want %q", i, records[i].MessageID, want)
		}
	}
}

func TestRecordStoreQueryDateRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		record := testRecord(fmt.Sprintf("m%d", i), base.AddDate(0, 0, i))
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 3)
	records, _, err := store.Query(ctx, storage.RecordFilter{From: &from, To: &to}, 10, "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (range is inclusive)", len(records))
	}
	if records[0].MessageID != "m1" || records[2].MessageID != "m3" {
		t.Errorf("range results = %v, %v", records[0].MessageID, records[2].MessageID)
	}
}

// Thirty records and a page size of ten must yield exactly three pages,
// with the third page reporting no further pages.
func TestRecordStorePagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		record := testRecord(fmt.Sprintf("m%02d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	var all []*core.ParsedRecord
	token := ""
	pages := 0
	for {
		records, next, err := store.Query(ctx, storage.RecordFilter{}, 10, token)
		if err != nil {
			t.Fatalf("Query page %d failed: %v", pages, err)
		}
		pages++
		all = append(all, records...)

		if pages < 3 {
			if len(records) != 10 {
				t.Fatalf("page %d: got %d records, want 10", pages, len(records))
			}
			if next == "" {
				t.Fatalf("page %d: expected continuation token", pages)
			}
		} else {
			if len(records) != 10 {
				t.Fatalf("final page: got %d records, want 10", len(records))
			}
			if next != "" {
				t.Fatalf("final page must not carry a continuation token, got %q", next)
			}
		}

		if next == "" {
			break
		}
		token = next
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(all) != 30 {
		t.Fatalf("total records = %d, want 30", len(all))
	}

	seen := make(map[string]bool)
	for _, record := range all {
		if seen[record.MessageID] {
			t.Errorf("record %q returned twice", record.MessageID)
		}
		seen[record.MessageID] = true
	}
}

func TestRecordStoreQueryFilterAcrossPages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		record := testRecord(fmt.Sprintf("m%02d", i), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 0 {
			record.ProcessType = "D14"
		}
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	filter := storage.RecordFilter{ProcessTypes: []string{"D14"}}
	records, token, err := store.Query(ctx, filter, 5, "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 5 || token == "" {
		t.Fatalf("first page: %d records, token %q", len(records), token)
	}

	rest, token, err := store.Query(ctx, filter, 5, token)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rest) != 5 || token != "" {
		t.Fatalf("second page: %d records, token %q", len(rest), token)
	}

	for _, record := range append(records, rest...) {
		if record.ProcessType != "D14" {
			t.Errorf("filter leaked record %+v", record)
		}
	}
}

func TestRecordStoreQueryTransactionReference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	request := testRecord("req-1", now)
	response := testRecord("resp-1", now.Add(time.Second))
	response.TransactionRecords = []core.TransactionRecord{
		{MRID: "t-1", OriginalTransactionIDReferenceID: "req-1"},
	}
	for _, record := range []*core.ParsedRecord{request, response} {
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, _, err := store.Query(ctx, storage.RecordFilter{OriginalTransactionRef: "req-1"}, 10, "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 1 || records[0].MessageID != "resp-1" {
		t.Fatalf("records = %v", records)
	}
}

func TestRecordStoreInvalidToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []string{
		"not base64 !!!",
		"aGVsbG8=", // valid base64, not a date index key
	}

	for _, token := range tests {
		_, _, err := store.Query(ctx, storage.RecordFilter{}, 10, token)
		if !errors.Is(err, storage.ErrInvalidToken) {
			t.Errorf("token %q: error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestRecordStoreDefaultPageSize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("m1", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	records, _, err := store.Query(ctx, storage.RecordFilter{}, -1, "")
	if err != nil {
		t.Fatalf("Query with default page size failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestRecordStoreClosed(t *testing.T) {
	store, err := NewMemoryRecordStore()
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Create(ctx, testRecord("m1", time.Now().UTC())); !errors.Is(err, storage.ErrStorageClosed) {
		t.Errorf("Create after close: error = %v, want ErrStorageClosed", err)
	}
	if _, _, err := store.Query(ctx, storage.RecordFilter{}, 10, ""); !errors.Is(err, storage.ErrStorageClosed) {
		t.Errorf("Query after close: error = %v, want ErrStorageClosed", err)
	}
}

func TestRecordStoreRecordWithoutCreatedDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &core.ParsedRecord{MessageID: "m1", ParsingSuccess: false}
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Indexed under the write time, still findable without date bounds.
	records, _, err := store.Query(ctx, storage.RecordFilter{MessageID: "m1"}, 10, "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}
