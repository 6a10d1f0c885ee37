package queue

import "errors"

// ErrInvalidTransition reports a rejected job status change. The job is left
// untouched; callers that surface user actions may ignore it, matching the
// legacy console behavior, but it is always logged by the store.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrStaleCompletion reports an execution outcome that no longer matches the
// job in flight, e.g. after the queue was stopped or the job removed. The
// outcome is discarded without mutating any job.
var ErrStaleCompletion = errors.New("stale execution completion")

// ErrJobNotFound reports an operation addressing a job ID absent from the
// active queue.
var ErrJobNotFound = errors.New("job not found")
