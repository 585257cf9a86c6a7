// Package database provides the PostgreSQL connection pool used by the
// control log writer.
package database
