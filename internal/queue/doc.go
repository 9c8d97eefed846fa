// Package queue implements the newsletter generation queue: the
// initializer that seeds per-section work items, the polling worker that
// claims and processes them with retry and stall recovery, the progress
// aggregation consumed by polling endpoints, and the completion trigger
// that delivers the draft once every section is generated.
package queue
