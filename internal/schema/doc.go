// Package schema compiles component class definitions written in CUE.
//
// A schema directory holds one CUE package with a top-level "component"
// struct. Each field is a class:
//
//	component: Health: attributes: [
//		{name: "Current", type: "Int", default: 100},
//		{name: "Label", type: "String", net: false},
//	]
//
// Attributes replicate unless net is false. Their order is the order of the
// attribute stream on the wire, so appending is the only compatible change.
// Every class is checked against the #Component definition in schema.cue
// before it is compiled.
package schema
