// Package lifecycle implements the RMA state machine.
//
// A record is created by a Creator (Submitted), inspected once by an
// Inspector (Inspected) and reviewed by a Reviewer, who may mark it
// Completed. Review without completion leaves the record Inspected and
// reviewable again. There is no transition back and no way to re-open a
// Completed record.
//
// Each identity acts in the one role access.Resolver.ResolveRole gives it,
// even when it is listed in several role sets.
//
// # Concurrency
//
// The Engine serializes mutations with a mutex, so one process is a single
// writer. Inspect and Review accept an ExpectedVersion; when set, a record
// whose version has moved on is rejected with a Conflict error instead of
// being overwritten.
//
// # Errors
//
// Every rejection is an *Error with a Code. Only CodePersistence is a hard
// failure; the others leave the table untouched.
package lifecycle
