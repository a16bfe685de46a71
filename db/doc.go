/*
Package db is a multi-engine database access layer.

There are tools for:
- a named pool registry over PostgreSQL, MySQL and SQLite (plus a
  placeholder for unrecognized engines)
- scoped transactions carried in context (including rollbacks on error
  or panic)
- generic CRUD helpers with dynamic row decoding driven by column types
- template-driven queries (see the sqltpl package)
- observability (both for queries and connection info) and health checks
*/
package db
