// Package jdbc implements the JDBC input connector: every row returned by a
// configured SELECT statement becomes one record.
//
// The name is kept for compatibility with existing task definitions; the
// connector talks to databases through database/sql. Supported drivers are
// "sqlite" (modernc.org/sqlite) and "pgx" (PostgreSQL via pgx).
//
// # Column mapping
//
//   - jdbc.fileid: column holding the record identifier (required).
//   - jdbc.title, jdbc.description: optional columns copied to the record
//     attributes "title" and "description".
//
// The record content is the row encoded as a JSON object.
package jdbc
