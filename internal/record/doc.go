// Package record is the CRUD runtime: it turns typed values into statements,
// submits them through an injected Executor and turns the returned documents
// back into typed Rows.
//
// Identity and Row couple a payload to its persistent address. Rows are
// created only here, from store responses, so a Row's identity always came
// from the store.
//
// Local recovery is limited to two cases: an empty lookup is "not found"
// (not an error) and deleting a missing record succeeds. A lookup returning
// several rows, or an insert returning none, is a ContractViolation and
// aborts the operation. Conversion errors and store errors are returned
// wrapped, so errors.Is and errors.As still reach them.
package record
