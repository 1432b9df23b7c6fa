// Package domain defines the carrier waterfall data model.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import domain; domain imports nothing internal.
//
// Key design constraints:
//   - Status fields are closed enums that reject unknown names on decode
//   - All JSON tags use snake_case
//   - Offer IDs are content-addressed (see hash.go)
//   - Resolved offers and log entries are never mutated
package domain
