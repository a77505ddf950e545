// Package rma provides the domain types for RMA (Return Merchandise
// Authorization) records.
//
// This package contains type definitions and small value helpers only. All
// other internal packages import rma; rma imports nothing internal.
//
// Key design constraints:
//   - A record moves Submitted -> Inspected -> Completed, never backwards
//   - Provenance fields (CreatedBy, InspectedBy, ReviewedBy) hold the
//     identity that performed the stage
//   - Version starts at 1 and increments on every persisted mutation
//   - All JSON tags use snake_case
package rma
