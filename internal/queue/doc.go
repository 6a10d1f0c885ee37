// Package queue owns the job queue state: the ordered set of active jobs,
// their lifecycle transitions, the bounded history of retired jobs, and the
// queue-level running/paused flags.
//
// The entire state is persisted as a single JSON document, rewritten in full
// after every mutation, so the on-disk copy never lags memory by more than
// one operation. Reads are fail-soft (a missing or corrupt document yields an
// empty queue) and writes are fail-open (a failed write is logged and the
// in-memory mutation is kept). The document layout is compatible with the
// queue files written by earlier console releases.
//
// Treat this package as the single source of truth for queue semantics; the
// controller and IPC surface never touch job status fields directly.
package queue
