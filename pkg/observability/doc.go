/*
Package observability provides lifecycle listeners for monitoring flow executions.

Metrics exports Prometheus counters for starts, events, transitions, subflows,
pauses and ends. LogListener writes the same lifecycle as structured slog
records. Aggregator fans a single listener slot out to several listeners.
*/
package observability
