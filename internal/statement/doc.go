// Package statement defines the statements docrow submits to a store.
//
// The set is closed: a point lookup, an insert, a point delete and a table
// declaration. Anything else (ad-hoc queries, transactions, migrations of
// user tables) is deliberately not expressible.
//
// SEALED INTERFACE:
//
// Statement uses the marker method pattern, so store implementations can
// switch exhaustively:
//
//	switch s := stmt.(type) {
//	case statement.Lookup:
//	case statement.Insert:
//	case statement.Delete:
//	case statement.DefineTable:
//	}
//
// Pointer forms (*Lookup and so on) are accepted by Validate and Render but
// stores only ever receive values from the record runtime.
//
// RESULT CONTRACT:
//
// Executing a statement yields zero or more document rows. Lookup and Insert
// with OutputAfter return at most one row; a store returning more is in
// breach of contract and the runtime reports it. Delete and DefineTable
// return no rows. Deleting a record that does not exist succeeds.
package statement
