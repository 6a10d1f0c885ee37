// Package controller drives job dispatch. A single goroutine owns the
// dispatch decision: on every tick it examines queue state and either waits,
// dispatches the next pending job, or stops the queue when it drains.
// Execution outcomes arrive over a channel and are applied by the same
// goroutine, so dispatch and completion never race.
//
// An outcome carries the dispatch token it answers. Outcomes whose token no
// longer matches the job in flight, or that arrive after the queue was
// stopped or the job removed, are discarded without touching any job.
package controller
