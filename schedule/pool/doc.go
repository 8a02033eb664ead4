// Package pool provides the in-memory pool of shared schedules.
//
// The pool package implements:
//   - Load-on-demand of schedules by ID (persisted state or catalog seed)
//   - At-most-one document instance per schedule ID, even under races
//   - Creation of new schedules with globally unique IDs
//   - Attach counting so documents in use are never evicted
//   - Idle eviction and JSON file persistence
//
// Identity:
//
// Every caller of GetOrLoad for the same ID receives the same
// *document.SharedDocument pointer for as long as the schedule stays in the
// pool. Concurrent first loads of one ID are collapsed with singleflight;
// different IDs load in parallel.
//
// Usage:
//
//	p := pool.New(catalogManager,
//		pool.WithPersistence(store),
//		pool.WithSeed("Grundlagen", 7),
//	)
//
//	doc, err := p.Acquire(ctx, "s1") // load and pin
//	defer p.Release(doc)
//
// Persistence:
//
// When a Persistence is configured, every document change is written
// through to storage and evicted schedules are reloaded from it on the next
// access.
package pool
