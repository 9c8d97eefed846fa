// Package api implements the HTTP handlers for the newsletter
// generation queue: starting generation for a newsletter, polling its
// progress, and the health probe. Handlers depend on small consumer-side
// interfaces so tests can exercise them without a database.
package api
