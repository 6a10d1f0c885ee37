// Command camqueue is the operator CLI for the job queue daemon. It talks
// to camqueued over the IPC socket; the daemon is the sole owner of the
// queue document.
package main
