// Package indexer keeps the catalog fresh.
//
// The Indexer is a two-state scheduler (idle or scanning). Every refresh
// interval, and once immediately on Start, it runs the catalog scanner and
// publishes the result. A tick, manual trigger or watcher nudge that arrives
// while a scan is in flight is dropped rather than queued. A failed scan is
// logged, counted and recorded in the scan history; the previously
// published snapshot stays current and the next tick tries again with no
// backoff.
//
// The Watcher uses fsnotify to request a scan soon after the root or a
// category directory changes. It is an accelerator only: polling alone
// keeps the catalog consistent within one interval.
package indexer
