// Package events provides the task lifecycle event primitives, a non-blocking
// hub, and the emitter interface the scraper engine uses to report task
// assignment and completion. The hub batches events on a background goroutine
// and fans them out to pluggable sinks such as Prometheus metrics, structured
// logs, or a Pub/Sub topic.
package events
