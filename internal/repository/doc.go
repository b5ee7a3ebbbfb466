// Package repository defines the data access interface for heredity.
//
// The Repository interface persists pedigrees (a named, ordered list of
// individuals) and the latest inference run for each pedigree. The
// implementation lives in the sqlstore subpackage.
//
// # SQL Implementation
//
// sqlstore runs the same schema and queries on two drivers:
//
// - SQLite through modernc.org/sqlite (pure Go, ":memory:" for tests)
// - PostgreSQL through the pgx database/sql driver
//
// Saving a pedigree is transactional: its individuals are replaced and any
// stored run is dropped, since posteriors of an edited family are stale.
//
// # Testing
//
// The sqlstore tests run against in-memory SQLite databases.
package repository
