// Package postgres provides Postgres-backed taxonomy and progress
// repositories built on pgx. Both stores share one pool; callers own its
// lifetime.
package postgres
