// Package search answers filtered, cursor-paginated queries over
// persisted parsed records.
//
// A search validates its criteria first and never touches the record
// store when validation fails. Valid criteria become a conjunction
// filter executed as one page-sized query. When relation expansion is
// requested and the first result is one half of a request/response
// pair, a second query finds the other half: responses referencing the
// queried request, or the request a response's transactions point back
// to.
package search
