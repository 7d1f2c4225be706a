// Package store provides the durable SQLite catalog for the picture
// frame service.
//
// It tracks every discovered image (identity, album, source root,
// relative path) together with a per-cycle shown flag, and exposes the
// atomic pick-and-mark operation the rotation selector is built on.
//
// The database uses WAL mode for concurrent read performance and
// includes automatic schema initialization and migrations.
package store
