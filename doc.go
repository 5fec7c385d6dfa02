// Package viny is an offline-first store for markdown notes.
//
// It keeps notes and notebooks in a pluggable local backend (plain files,
// SQLite, CouchDB or memory), treats storage failure as a normal condition
// rather than an exception, and reconciles divergent replicas without
// losing either side's work.
//
// Features:
//
//   - **Pluggable backends**: one Backend interface, four adapters; the
//     active one is chosen explicitly through configuration.
//   - **Resilient by default**: every backend call runs under retries with
//     jittered exponential backoff, a circuit breaker and per-attempt
//     timeouts.
//   - **Optimistic concurrency**: items carry revisions; a stale save is a
//     distinguishable conflict, retried once against the latest revision.
//   - **Conflict-aware sync**: divergence is detected on semantic fields,
//     resolved per strategy (merge, use_local, use_remote, create_both,
//     manual) and merged deterministically.
//
// Usage:
//
//	store, err := viny.New(ctx, viny.Config{
//		Backend: viny.BackendFile,
//		Path:    "./vault",
//	}, viny.WithLogger(logger))
//
//	note, err := store.SaveNote(ctx, viny.Note{Title: "hello"})
package viny
