// Package daemon coordinates the long-running camqueued process.
//
// It wires configuration, the queue store, and the dispatch controller into
// a single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes the queue operations the IPC layer serves, performs
// startup recovery of jobs stranded by a crash, and optionally serves
// Prometheus metrics.
//
// Keep orchestration logic here: dispatch decisions live in the controller
// and queue semantics live in the store, while the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
