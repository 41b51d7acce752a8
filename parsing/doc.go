// Package parsing turns raw request/response log blobs into canonical
// parsed records.
//
// Classification (Select) picks one of a closed set of parser kinds
// from the blob's content type, HTTP status text and a content sample.
// It is total: unrecognized content degrades to properties-only
// extraction, never an error.
//
// Every kind composes the same properties-only base extraction and then
// overlays format-specific structural parsing. Overlay failures are the
// caller's concern: the pipeline keeps the base extraction and marks
// the record as not structurally parsed.
package parsing
