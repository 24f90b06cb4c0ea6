// Package harness runs reconciliation scenarios against the snapshot engine.
//
// A scenario is a YAML file describing two peers. The remote tree is built
// on an authoritative scene, every top-level node is registered, and the
// scene is encoded once. The local tree is built on a client scene, the
// listed roots are registered, and the same snapshot is decoded Passes
// times. The client scene is then checked against the expect clauses.
//
//	name: prune_absent_root
//	description: A registered root missing from the snapshot is removed
//	remote:
//	  - id: 1
//	    name: hero
//	local:
//	  - id: 5
//	    name: ghost
//	register: [5]
//	expect:
//	  present: [1]
//	  absent: [5]
//
// Component classes come from inline CUE in the schema field, compiled with
// the schema package. Options.ClientUnknown withholds classes from the
// client so unknown-type handling can be exercised.
//
// # Golden Files
//
// RunWithGolden renders the final client scene and the per-pass counters
// as canonical JSON and compares them with testdata/golden/{name}.golden
// using goldie. Regenerate with:
//
//	go test ./internal/harness -update
//
// Runs are deterministic: both scenes are built in declaration order, ids
// are explicit, and logs are discarded unless WithLogger is given.
package harness
