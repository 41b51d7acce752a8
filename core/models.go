package core

import (
	"strings"
	"time"
)

// Blob metadata keys written by the upstream request/response logger.
// Keys are lowercased by the object store.
const (
	MetaContentType  = "contenttype"
	MetaStatusCode   = "statuscode"
	MetaHTTPDataType = "httpdatatype"
	MetaInvocationID = "invocationid"
	MetaFunctionName = "functionname"
	MetaTraceID      = "traceid"
	MetaTraceParent  = "traceparent"
	MetaIndexTags    = "indextags"
	MetaQueryTags    = "querytags"
)

// HTTPDataType values recorded by the upstream logger.
const (
	HTTPDataTypeRequest  = "request"
	HTTPDataTypeResponse = "response"
)

// RawRecord is the blob-derived unit of work. It is produced by an
// ArchiveStore listing, its Content filled by a download, and consumed
// exactly once by the ingestion pipeline.
type RawRecord struct {
	Name          string
	Metadata      map[string]string
	Tags          map[string]string
	Content       []byte
	ContentLength int64
	CreatedAt     time.Time // store-assigned creation time of the blob
	URI           string    // source location before archival
}

// Meta returns the metadata value for key, or "" when absent.
func (r *RawRecord) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// TransactionRecord is one business transaction carried by a message.
// OriginalTransactionIDReferenceID points back at the mRID of the
// transaction this one answers, "" when the message is not a reply.
type TransactionRecord struct {
	MRID                             string `json:"mRid"`
	OriginalTransactionIDReferenceID string `json:"originalTransactionIdReferenceId"`
}

// ErrorEntry is a single code/message pair extracted from an error
// response envelope.
type ErrorEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParsedRecord is the canonical structured log entry, created from
// exactly one RawRecord. It is immutable after parsing except for
// BlobContentURI, which is rewritten once the source blob has been
// archived, and ID/PartitionKey, which the record store assigns at
// write time.
type ParsedRecord struct {
	ID           string `json:"id,omitempty"`
	PartitionKey string `json:"partitionKey,omitempty"`

	MessageID          string `json:"messageId"`
	MessageType        string `json:"messageType"`
	ProcessType        string `json:"processType"`
	BusinessSectorType string `json:"businessSectorType"`
	ReasonCode         string `json:"reasonCode"`

	CreatedDate    *time.Time `json:"createdDate"`
	LogCreatedDate *time.Time `json:"logCreatedDate"`

	SenderID         string `json:"senderId"`
	SenderRoleType   string `json:"senderRoleType"`
	ReceiverID       string `json:"receiverId"`
	ReceiverRoleType string `json:"receiverRoleType"`

	BlobContentURI string `json:"blobContentUri"`

	HTTPDataType   string `json:"httpDataType"`
	InvocationID   string `json:"invocationId"`
	FunctionName   string `json:"functionName"`
	TraceID        string `json:"traceId"`
	TraceParent    string `json:"traceParent"`
	ResponseStatus string `json:"responseStatus"`

	RsmName string `json:"rsmName"`

	TransactionRecords []TransactionRecord `json:"transactionRecords,omitempty"`

	HaveBodyContent bool `json:"haveBodyContent"`
	ParsingSuccess  bool `json:"parsingSuccess"`

	IndexTags map[string]string `json:"indexTags,omitempty"`
	QueryTags map[string]string `json:"queryTags,omitempty"`

	Errors []ErrorEntry `json:"errors,omitempty"`
}

// OriginalTransactionID returns the original-transaction reference for
// the single-transaction case: the first non-empty reference carried by
// the record. The TransactionRecords list is the canonical model; this
// accessor is a convenience for messages carrying exactly one
// transaction.
func (p *ParsedRecord) OriginalTransactionID() string {
	for _, tr := range p.TransactionRecords {
		if tr.OriginalTransactionIDReferenceID != "" {
			return tr.OriginalTransactionIDReferenceID
		}
	}
	return ""
}

// IsRequest reports whether the record was logged on the request side.
func (p *ParsedRecord) IsRequest() bool {
	return strings.EqualFold(p.HTTPDataType, HTTPDataTypeRequest)
}

// IsResponse reports whether the record was logged on the response side.
func (p *ParsedRecord) IsResponse() bool {
	return strings.EqualFold(p.HTTPDataType, HTTPDataTypeResponse)
}

// SearchCriteria describes one search request. Zero-valued fields
// contribute no constraint. The date range is mandatory and arrives as
// text; ValidateSearchCriteria parses it.
type SearchCriteria struct {
	MessageID          string
	MessageType        string
	ProcessTypes       []string // matched upper-cased
	SenderID           string
	ReceiverID         string
	SenderRoleType     string
	ReceiverRoleType   string
	BusinessSectorType string
	ReasonCode         string
	InvocationID       string
	FunctionName       string
	TraceID            string
	RsmNames           []string // matched lower-cased

	DateTimeFrom string
	DateTimeTo   string

	IncludeRelated    bool
	ContinuationToken string
	MaxItemCount      int // page size, -1 means store default
}

// SearchResults is one page of matching records. ContinuationToken is
// "" when no further pages exist.
type SearchResults struct {
	Records           []*ParsedRecord
	ContinuationToken string
}
