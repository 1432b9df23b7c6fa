// Package engine runs carrier waterfalls for loads.
//
// A waterfall is an ordered list of carrier tiers for a lane. When a load
// starts, the engine matches it to a waterfall, offers the load to every
// carrier in tier 1 and waits. The first carrier to accept wins. When every
// offer in a tier has been declined or has expired, the engine escalates to
// the next tier. When the last tier is exhausted the load is unassigned.
//
// COMPONENTS:
//
//   - Ledger: waterfall definitions and lane lookup (ledger.go)
//   - Dispatcher: creates offers and notifies carriers (dispatcher.go)
//   - Tracker: records responses and expires overdue offers (tracker.go)
//   - Controller: the escalation state machine (controller.go)
//   - Log: append-only record of every transition (log.go)
//
// CONCURRENCY:
//
// Each load has its own execution guarded by its own mutex. Responses and
// sweeps for one load are serialized; different loads run in parallel.
// Run offers an alternative single-writer entry point that applies queued
// commands in FIFO order and sweeps deadlines on a ticker.
//
// ORDERING:
//
// Every log entry carries a seq from Clock.Next(). "First accepted response
// wins" compares seq, never wall-clock time. Deadlines use TimeSource, so
// tests drive time explicitly.
//
// INVARIANTS:
//
//   - tiers are visited in rank order, never skipped and never revisited
//   - a carrier holds at most one offer per load
//   - a response after the deadline is stale and changes nothing
//   - once assigned, the remaining pending offers are cancelled
//   - resume never re-sends an offer that was already resolved
package engine
