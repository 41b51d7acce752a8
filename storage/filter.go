package storage

import (
	"strings"
	"time"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// RecordFilter is a conjunction of independent optional terms evaluated
// against persisted parsed records. A zero-valued term contributes no
// constraint. Equality terms match exactly; set terms match membership
// after case normalization; the date range is inclusive on both ends
// and constrains CreatedDate.
type RecordFilter struct {
	MessageID          string
	MessageType        string
	SenderID           string
	ReceiverID         string
	SenderRoleType     string
	ReceiverRoleType   string
	BusinessSectorType string
	ReasonCode         string
	InvocationID       string
	FunctionName       string
	TraceID            string

	// ProcessTypes must be upper-cased, RsmNames lower-cased by the
	// caller; persisted records are normalized the same way on match.
	ProcessTypes []string
	RsmNames     []string

	From *time.Time
	To   *time.Time

	// MessageIDs matches records whose MessageID is in the set.
	MessageIDs []string

	// OriginalTransactionRef matches records carrying a transaction
	// record whose original-transaction reference equals this value.
	OriginalTransactionRef string
}

// Matches reports whether rec satisfies every term of the filter.
func (f *RecordFilter) Matches(rec *core.ParsedRecord) bool {
	if rec == nil {
		return false
	}

	equalities := []struct{ want, got string }{
		{f.MessageID, rec.MessageID},
		{f.MessageType, rec.MessageType},
		{f.SenderID, rec.SenderID},
		{f.ReceiverID, rec.ReceiverID},
		{f.SenderRoleType, rec.SenderRoleType},
		{f.ReceiverRoleType, rec.ReceiverRoleType},
		{f.BusinessSectorType, rec.BusinessSectorType},
		{f.ReasonCode, rec.ReasonCode},
		{f.InvocationID, rec.InvocationID},
		{f.FunctionName, rec.FunctionName},
		{f.TraceID, rec.TraceID},
	}
	for _, eq := range equalities {
		if eq.want != "" && eq.want != eq.got {
			return false
		}
	}

	if len(f.ProcessTypes) > 0 && !containsString(f.ProcessTypes, strings.ToUpper(rec.ProcessType)) {
		return false
	}
	if len(f.RsmNames) > 0 && !containsString(f.RsmNames, strings.ToLower(rec.RsmName)) {
		return false
	}
	if len(f.MessageIDs) > 0 && !containsString(f.MessageIDs, rec.MessageID) {
		return false
	}

	if f.From != nil || f.To != nil {
		if rec.CreatedDate == nil {
			return false
		}
		if f.From != nil && rec.CreatedDate.Before(*f.From) {
			return false
		}
		if f.To != nil && rec.CreatedDate.After(*f.To) {
			return false
		}
	}

	if f.OriginalTransactionRef != "" {
		found := false
		for _, tr := range rec.TransactionRecords {
			if tr.OriginalTransactionIDReferenceID == f.OriginalTransactionRef {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func containsString(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
