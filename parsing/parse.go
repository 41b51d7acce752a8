package parsing

import (
	"time"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// Limits is the immutable parser configuration passed into each parse
// call. There is no shared mutable parser state across concurrent
// parses.
type Limits struct {
	// MaxDepth bounds element/value nesting in the streaming parsers.
	MaxDepth int
	// MaxTransactions bounds the number of transaction records read
	// from a single message.
	MaxTransactions int
}

// DefaultLimits returns the limits used in production.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        64,
		MaxTransactions: 10000,
	}
}

// overlay is a format-specific structural extraction applied on top of
// the properties-only base. Overlays mutate rec in place and may fail
// partway through; the caller discards rec on error.
type overlay func(rec *core.ParsedRecord, raw *core.RawRecord, lim Limits) error

// The closed set of parser variants, dispatched by kind.
// KindPropertiesOnly has no overlay.
var overlays = map[Kind]overlay{
	KindXML:       parseXMLOverlay,
	KindJSON:      parseJSONOverlay,
	KindEbix:      parseEbixOverlay,
	KindErrorXML:  parseErrorXMLOverlay,
	KindErrorJSON: parseErrorJSONOverlay,
}

// Parse runs the base extraction and the overlay for kind over one raw
// record. On overlay failure the error is returned and the partial
// record discarded; callers fall back to Fallback to keep the base
// fields with ParsingSuccess=false.
func Parse(kind Kind, raw *core.RawRecord, lim Limits) (*core.ParsedRecord, error) {
	rec := Properties(raw)
	if fn := overlays[kind]; fn != nil {
		if err := fn(rec, raw, lim); err != nil {
			return nil, err
		}
	}
	finalize(rec)
	return rec, nil
}

// Fallback produces the properties-only degradation of a record whose
// structural parse failed.
func Fallback(raw *core.RawRecord) *core.ParsedRecord {
	rec := Properties(raw)
	rec.ParsingSuccess = false
	finalize(rec)
	return rec
}

// finalize applies cross-parser post conditions: a record whose payload
// carried no creation time falls back to the log creation time.
func finalize(rec *core.ParsedRecord) {
	if rec.CreatedDate == nil {
		rec.CreatedDate = rec.LogCreatedDate
	}
}

// Timestamp layouts accepted in message payloads.
var payloadTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// parsePayloadTime parses a payload timestamp, nil when unparseable.
func parsePayloadTime(value string) *time.Time {
	for _, layout := range payloadTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
