// Package snapshot implements the snapshot engine: it serializes registered
// root nodes of a scene and reconciles a live scene against a received
// snapshot.
//
// Reconciliation is identity based. Nodes and components found by id are
// updated in place; missing ones are created with the transmitted id in
// Local mode; a component whose type or owner differs is destroyed and
// recreated. Registered roots absent from a snapshot are removed.
//
// Thread-safety model:
//   - An Engine is not safe for concurrent use
//   - ReadState/WriteState assume exclusive access to the scene
//   - Clock and the session id generators are safe for concurrent use
//
// INVARIANTS:
//   - Registration order never changes except by compaction in the write pass
//   - Pruning happens in registration order and only after a fully framed read
//   - Nodes never run the late-apply hook during a read; components always do
package snapshot
