// Package store provides SQLite-backed durable storage for the waterfall engine.
//
// Tables:
//   - waterfall_status: lifecycle status per waterfall definition
//   - executions: one snapshot row per load
//   - offers: the offers of each execution, in dispatch order
//   - log_entries: the append-only execution log keyed by seq
//
// # Patterns
//
// Snapshots replace, the log appends:
//   - SaveExecution rewrites an execution and its offers in one transaction
//   - Append only inserts; a duplicate seq is an error, never an overwrite
//
// Deterministic reads:
//   - Log queries order by seq ASC
//   - Offer queries order by dispatch position
//   - Execution queries order by started_at, then load_id
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
