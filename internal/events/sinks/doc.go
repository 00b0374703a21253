// Package sinks implements concrete task event consumers: Prometheus metrics,
// structured logging, and topic publishing. Each sink satisfies events.Sink
// and is safe for repeated Consume/Close cycles.
package sinks
