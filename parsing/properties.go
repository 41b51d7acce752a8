package parsing

import (
	"github.com/Energinet-DataHub/geh-message-archive/core"
	json "github.com/goccy/go-json"
)

// Properties performs the base extraction shared by every parser kind:
// the metadata-derived fields, the tag maps and the body-content flag.
// It never fails; malformed tag maps are dropped, not surfaced.
func Properties(raw *core.RawRecord) *core.ParsedRecord {
	rec := &core.ParsedRecord{
		BlobContentURI:  raw.URI,
		HTTPDataType:    raw.Meta(core.MetaHTTPDataType),
		InvocationID:    raw.Meta(core.MetaInvocationID),
		FunctionName:    raw.Meta(core.MetaFunctionName),
		TraceID:         raw.Meta(core.MetaTraceID),
		TraceParent:     raw.Meta(core.MetaTraceParent),
		ResponseStatus:  raw.Meta(core.MetaStatusCode),
		HaveBodyContent: raw.ContentLength > 0,
		ParsingSuccess:  true,
		IndexTags:       decodeTagMap(raw.Meta(core.MetaIndexTags)),
		QueryTags:       decodeTagMap(raw.Meta(core.MetaQueryTags)),
	}

	if !raw.CreatedAt.IsZero() {
		created := raw.CreatedAt.UTC()
		rec.LogCreatedDate = &created
	}

	return rec
}

// decodeTagMap decodes a JSON tag map from blob metadata. Returns nil
// when the value is absent or not a flat JSON object: absence of tags
// is represented as nil, never as an empty map.
func decodeTagMap(value string) map[string]string {
	if value == "" {
		return nil
	}
	var tags map[string]string
	if err := json.Unmarshal([]byte(value), &tags); err != nil {
		return nil
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
