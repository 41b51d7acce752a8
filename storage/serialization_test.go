package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

func TestMarshalUnmarshalParsedRecord(t *testing.T) {
	created := time.Date(2022, 9, 7, 9, 30, 47, 0, time.UTC)
	logCreated := created.Add(time.Second)

	record := &core.ParsedRecord{
		ID:                 "doc-1",
		PartitionKey:       "pk-1",
		MessageID:          "25369874",
		MessageType:        "414",
		ProcessType:        "E65",
		BusinessSectorType: "23",
		ReasonCode:         "A02",
		CreatedDate:        &created,
		LogCreatedDate:     &logCreated,
		SenderID:           "5790000000000",
		SenderRoleType:     "DDZ",
		ReceiverID:         "5799999933318",
		ReceiverRoleType:   "DDQ",
		BlobContentURI:     "s3://archive/2022/09/07/blob-1",
		HTTPDataType:       "request",
		RsmName:            "rejectrequestchangeofsupplier",
		TransactionRecords: []core.TransactionRecord{
			{MRID: "t-1", OriginalTransactionIDReferenceID: "orig-1"},
		},
		HaveBodyContent: true,
		ParsingSuccess:  true,
		IndexTags:       map[string]string{"actor": "5790000000000"},
		Errors:          []core.ErrorEntry{{Code: "X", Message: "boom"}},
	}

	data, err := MarshalParsedRecord(record)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalParsedRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestMarshalParsedRecordFieldNames(t *testing.T) {
	record := &core.ParsedRecord{
		MessageID: "m1",
		TransactionRecords: []core.TransactionRecord{
			{MRID: "t-1", OriginalTransactionIDReferenceID: "orig-1"},
		},
	}

	data, err := MarshalParsedRecord(record)
	require.NoError(t, err)

	doc := string(data)
	assert.Contains(t, doc, `"messageId":"m1"`)
	assert.Contains(t, doc, `"mRid":"t-1"`)
	assert.Contains(t, doc, `"originalTransactionIdReferenceId":"orig-1"`)
	assert.Contains(t, doc, `"parsingSuccess":false`)
	assert.False(t, strings.Contains(doc, `"indexTags"`), "empty tag map must be omitted")
	assert.False(t, strings.Contains(doc, `"errors"`), "empty errors must be omitted")
}

func TestUnmarshalParsedRecordInvalid(t *testing.T) {
	_, err := UnmarshalParsedRecord([]byte(`{broken`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
