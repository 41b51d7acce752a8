// Package ingestion provides pipeline orchestration for processing
// logged request/response blobs.
//
// One run processes one page: list ready blobs, download them
// concurrently, classify and parse each, relocate the source blob into
// the archive container, and persist the parsed record.
//
// Failure handling is deliberately asymmetric. Parse failures are
// isolated per item: the record degrades to its properties-only form
// with ParsingSuccess=false and the page continues. Archive and
// persistence failures abort the remainder of the page; the unprocessed
// source blobs are still in place for the next scheduled run.
package ingestion
