// Package embedjob orchestrates batch embedding generation for activity
// records that do not yet have vectors.
//
// The Runner processes an owner's backlog in fixed-size batches, one
// provider call per batch, with retry and exponential backoff. Batch
// failures are isolated: a failing batch is counted and the run moves on,
// so a single bad batch can never sink the job. Results come back as
// counters in a Summary rather than errors.
package embedjob
