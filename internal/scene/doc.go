// Package scene implements the live scene graph that snapshots reconcile
// against.
//
// A Scene owns a root Node (id 0) and indexes every node and component by
// id. Nodes carry a fixed set of network attributes, insertion-ordered
// user variables, components and children. Components are instances of a
// registered Class; the class lists the attribute descriptors and may
// attach a behavior (SmoothedTransform is built in).
//
// Replicated ids are allocated from 1 upward and local ids from
// FirstLocalID upward. Explicit ids may be used in either range as long as
// they are unused.
package scene
