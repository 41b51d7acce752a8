package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/Energinet-DataHub/geh-message-archive/core"
	"github.com/Energinet-DataHub/geh-message-archive/storage"
)

// Engine executes searches over persisted parsed records.
type Engine struct {
	records storage.RecordStore
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new search engine.
func NewEngine(records storage.RecordStore, opts ...Option) (*Engine, error) {
	if records == nil {
		return nil, ErrRecordStoreRequired
	}

	e := &Engine{
		records: records,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Search validates the criteria and returns one page of matching
// records. Invalid criteria short-circuit with an empty result and a
// descriptive validation message; the record store is never queried.
// With IncludeRelated set and a messageId filter present, the page is
// expanded with the causally-linked counterpart records; expansion
// results are appended, not deduplicated, and not paginated.
func (e *Engine) Search(ctx context.Context, criteria *core.SearchCriteria) (core.SearchResults, core.ValidationResult, error) {
	validation := core.ValidateSearchCriteria(criteria)
	if !validation.Valid {
		return core.SearchResults{}, validation, nil
	}

	from, to, err := criteria.DateRange()
	if err != nil {
		// Unreachable after validation; kept as a guard.
		return core.SearchResults{}, core.ValidationResult{Message: err.Error()}, nil
	}

	filter := buildFilter(criteria, from, to)

	records, token, err := e.records.Query(ctx, filter, criteria.MaxItemCount, criteria.ContinuationToken)
	if err != nil {
		e.logger.Error("record query failed", "err", err)
		return core.SearchResults{}, validation, err
	}

	results := core.SearchResults{
		Records:           records,
		ContinuationToken: token,
	}

	if criteria.IncludeRelated && criteria.MessageID != "" && len(records) > 0 {
		related, err := e.findRelated(ctx, criteria.MessageID, records[0])
		if err != nil {
			e.logger.Error("relation expansion failed", "messageId", criteria.MessageID, "err", err)
			return core.SearchResults{}, validation, err
		}
		results.Records = append(results.Records, related...)
	}

	return results, validation, nil
}

// findRelated resolves the other half of a request/response pair. For a
// request, the responses are the records whose transactions reference
// the queried messageId. For a response, the originating request is the
// record whose messageId one of the response's own transaction
// references points at. The related query carries no date bounds: the
// counterpart may lie outside the searched range.
func (e *Engine) findRelated(ctx context.Context, messageID string, first *core.ParsedRecord) ([]*core.ParsedRecord, error) {
	var filter storage.RecordFilter

	switch {
	case first.IsRequest():
		filter.OriginalTransactionRef = messageID
	case first.IsResponse():
		var refs []string
		for _, tr := range first.TransactionRecords {
			if tr.OriginalTransactionIDReferenceID != "" {
				refs = append(refs, tr.OriginalTransactionIDReferenceID)
			}
		}
		if len(refs) == 0 {
			return nil, nil
		}
		filter.MessageIDs = refs
	default:
		return nil, nil
	}

	related, _, err := e.records.Query(ctx, filter, -1, "")
	return related, err
}

// buildFilter maps validated criteria onto the store filter. Absent
// criteria fields contribute no constraint; the set filters are matched
// case-normalized.
func buildFilter(criteria *core.SearchCriteria, from, to time.Time) storage.RecordFilter {
	return storage.RecordFilter{
		MessageID:          criteria.MessageID,
		MessageType:        criteria.MessageType,
		SenderID:           criteria.SenderID,
		ReceiverID:         criteria.ReceiverID,
		SenderRoleType:     criteria.SenderRoleType,
		ReceiverRoleType:   criteria.ReceiverRoleType,
		BusinessSectorType: criteria.BusinessSectorType,
		ReasonCode:         criteria.ReasonCode,
		InvocationID:       criteria.InvocationID,
		FunctionName:       criteria.FunctionName,
		TraceID:            criteria.TraceID,
		ProcessTypes:       criteria.NormalizedProcessTypes(),
		RsmNames:           criteria.NormalizedRsmNames(),
		From:               &from,
		To:                 &to,
	}
}
