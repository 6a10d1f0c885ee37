// Package notifications delivers queue milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The Service interface covers the milestones an operator away
// from the machine cares about: the queue starting, the queue draining, and
// individual job failures.
//
// Extend this package if you need alternative transports; queue code depends
// only on the Service interface.
package notifications
