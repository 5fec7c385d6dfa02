// Package viny is the composition root for the note store.
//
// It connects the data model (pkg/core) with a storage adapter
// (pkg/adapters/*), wraps every backend call in the resilience executor
// (retry, circuit breaker, per-attempt timeouts) and hosts the sync engine
// for reconciling against a remote replica.
//
// Usage:
//
//	store, err := viny.New(ctx, viny.Config{
//		Backend: viny.BackendFile,
//		Path:    "./vault",
//	}, viny.WithLogger(logger))
//
//	note, err := store.SaveNote(ctx, core.Note{Title: "hello"})
package viny
