// Package harness runs RMA lifecycle scenarios described in YAML.
//
// A scenario drives the lifecycle engine against a fresh CSV table in a
// temporary directory, with a fixed clock and a fixed list of record ids, so
// the same file always produces the same trace.
//
// # Scenario Format
//
//	name: acme_pump_lifecycle
//	description: "Submit, inspect and complete one return"
//	now: "2024-03-14 09:30"
//	ids: [RMA-2403AAA]
//	roles:
//	  creators: [creator@example.com]
//	  inspectors: [inspector@example.com]
//	  reviewers: [reviewer@example.com]
//	steps:
//	  - as: creator@example.com
//	    op: submit
//	    args: { customer: Acme, product: Pump-7, reason_codes: leak }
//	    expect: { status: Submitted }
//	  - as: inspector@example.com
//	    op: inspect
//	    record: "#0"
//	    advance: 1h
//	    args: { outcome: Repaired }
//	    expect: { status: Inspected }
//	assertions:
//	  - type: record_field
//	    record: "#0"
//	    field: inspected_by
//	    value: inspector@example.com
//
// A step's record is either a literal id or "#N", the N-th record created by
// the scenario (zero-based). An expect clause names either the resulting
// status or the error code the step must fail with.
//
// # Assertion Types
//
//   - record_count: the final table holds count records (optionally of one status)
//   - record_field: a field of a final record, by its JSON name, has value
//   - trace_contains: some trace line contains text
//
// # Golden Traces
//
// RunWithGolden compares the rendered trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
