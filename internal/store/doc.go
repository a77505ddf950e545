// Package store persists the RMA record table.
//
// The table is always loaded and saved whole. Two backends exist:
//   - CSVStore: the primary flat file, replaced atomically on save
//   - SQLiteStore: a single-file SQLite database holding the same rows
//
// Either backend can be wrapped with an Exporter (WithExport) that writes a
// human-readable .xlsx copy after every save. The export is never read back.
//
// # Failure Semantics
//
//   - A missing table is an empty table, not an error
//   - A corrupt CSV file is renamed aside and loads as an empty table
//   - Every write failure is returned to the caller
//
// Record order is insertion order and is preserved across load/save.
package store
