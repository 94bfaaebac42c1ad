// Package analytics aggregates flag evaluation counts and reports them to Flagsmith.
//
// A Store keeps one counter per flag name. Every Track increments the in-memory
// count and writes the full snapshot to a storage.Storage under EventsKey as a
// JSON object, so counts left by a crashed or restarted process are merged back
// by NewStore.
//
// A Scheduler owns the flush cycle:
//
//	store, _ := analytics.NewStore(ctx, storage.NewMemory())
//	sched, _ := analytics.NewScheduler(store, dataSource, analytics.WithFlushPeriod(10*time.Second))
//	go sched.Start(ctx)
//
// Each cycle pushes the current snapshot and, only when the service accepts it,
// subtracts the pushed counts from the store. A failed push leaves everything in
// place for the next cycle, so nothing is lost, but nothing is exactly-once
// either: a push that succeeds server-side yet fails client-side is sent again.
//
// Flush runs a single cycle on demand and returns ErrFlushInProgress if one is
// already running. Start blocks until its context is cancelled and waits on a
// quartz.Clock timer tagged "analyticsScheduler", which tests can trap.
package analytics
