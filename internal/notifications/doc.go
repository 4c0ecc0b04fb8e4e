// Package notifications pushes short operator alerts about finished runs.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Alerts are
// best effort: callers log a failed push and move on.
package notifications
