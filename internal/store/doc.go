// Package store defines the records and repository interfaces for the
// taxonomy (niches, queries, sub-queries) and scraper progress. Implementations
// live in internal/storage; this package must not import database drivers or
// concrete clients.
package store
