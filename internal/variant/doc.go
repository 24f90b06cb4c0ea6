// Package variant provides the tagged value types carried by snapshots.
//
// This package contains value definitions only. Every other internal package
// imports variant; variant imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: only the kinds enumerated by Type implement it
//   - Variable keys and component types are StringHash values (murmur3)
//   - VariantMap iteration is always by ascending key, never map order
//   - Canonical JSON (MarshalCanonical) is the only dump format used for
//     golden comparison
package variant
