// Package store defines interfaces for data persistence operations.
// These interfaces keep the queue, initializer, and API layers
// independent of the specific database technology; the Postgres
// implementations live under internal/platform/postgres.
package store
