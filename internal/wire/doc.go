// Package wire implements the snapshot byte format.
//
// Integers are little-endian. Counts and lengths use VLE, an unsigned LEB128
// varint limited to 32 bits. Tagged values are a one-byte Type followed by the
// value data; untagged value data is used where the reader already knows the
// kind from an attribute descriptor.
//
// Reader keeps the first error it sees (sticky). After a failure every further
// read returns the same *Error, so callers may check once at a boundary.
package wire
