// Package ingest provides idempotent intake of activity records.
//
// The Recorder validates incoming records, derives a content-hash source
// ref for records arriving without one, and hands the batch to the store,
// which deduplicates on (owner, source ref). Re-ingesting the same feed is
// safe: duplicates are counted as skipped, never treated as failures.
package ingest
