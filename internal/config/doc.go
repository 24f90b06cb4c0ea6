// Package config loads replica settings with koanf.
//
// Sources are layered, later ones winning: built-in defaults, a YAML file,
// REPLICA_* environment variables, then explicit overrides (CLI flags).
// Environment keys nest with a double underscore:
//
//	REPLICA_ENGINE__FRAMED=true          -> engine.framed
//	REPLICA_STORE__PATH=/var/lib/r.db    -> store.path
package config
