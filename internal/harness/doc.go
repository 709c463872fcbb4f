// Package harness runs scripted record scenarios against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: library_loans
//	description: "Books are saved, read back and removed"
//	schema: schema            # optional CUE directory, relative to the file
//	backend: sqlite           # memory (default) or sqlite
//	steps:
//	  - op: put
//	    table: book
//	    doc: { title: "Dune", author: { $ref: { tb: author, id: 1 } } }
//	    expect:
//	      doc: { title: "Dune" }
//	  - op: get
//	    table: book
//	    id: 1
//	    expect: { found: true }
//	  - op: delete
//	    table: book
//	    id: 1
//	assertions:
//	  - type: record_absent
//	    table: book
//	    id: 1
//
// A put step may carry an id to request an explicit identity. Integer ids
// are numeric ids; strings go through value.ParseID. A step without an
// expect block must succeed. With expect.error set it must fail with a
// message containing that text.
//
// # Assertion Types
//
//   - record_exists: the record is present after the last step
//   - record_absent: the record is not present
//   - record_matches: the record is present and a subset of its fields match
//   - op_count: the trace holds exactly count steps of an op, optionally
//     restricted to a table
//
// # Deterministic Testing
//
// Each scenario runs in its own store with operation ids drawn from a
// testutil.Sequence, so two runs of a scenario produce byte-identical
// canonical traces. RunWithGolden compares that trace to
// testdata/golden/<name>.golden.
package harness
