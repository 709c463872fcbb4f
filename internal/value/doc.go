// Package value provides the dynamic value model shared by every docrow layer.
//
// A Value is a sealed tagged union. Only the variants declared here implement
// it: None, Bool, Int, Float, String, Array, Object and Ref. All other
// internal packages import value; value imports nothing internal.
//
// Key constraints:
//   - Int and Float are distinct variants; encoding never converts between them
//   - Decoding into a narrower Go type fails with a RangeError instead of truncating
//   - None decodes only into optional targets
//   - Object key order is irrelevant; use SortedKeys for deterministic iteration
package value
