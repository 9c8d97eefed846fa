// Package postgres provides PostgreSQL-specific implementations for the
// data storage interfaces defined in the internal/store package. It
// handles query execution and data mapping between domain entities and
// database records, including the atomic claim and recovery updates the
// generation queue depends on.
package postgres
