// Package search contains retrieval-service clients. A Provider executes a
// free-text query against an external web search API and returns an ordered
// list of results; a non-2xx status surfaces as an error that the search tool
// converts into a recoverable observation.
package search
