// Package kv provides the client's local durable store: a tiny key-value
// interface that survives restarts and needs no network.
//
// Two backends are available:
//
//   - SQLiteStore: a single-table SQLite database (modernc.org/sqlite, pure Go)
//     whose schema is managed by embedded goose migrations.
//   - BadgerStore: an embedded Badger LSM store, handy when the data dir is
//     on a filesystem where SQLite locking is unreliable.
//
// The client keeps two keys: KeyUser (serialized models.User) and KeyHistory
// (serialized history collection, newest first).
//
// Typical usage
//
//	store, err := kv.Open(ctx, kv.Options{Backend: "sqlite", Path: "contentiq.db"})
//	_ = store.Set(ctx, kv.KeyUser, data)
//	raw, _ := store.Get(ctx, kv.KeyUser)
//	_ = store.Delete(ctx, kv.KeyUser, kv.KeyHistory)
package kv
