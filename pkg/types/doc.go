// Package types defines the shared vocabulary of the lattice storage system:
// configuration, sheet and column descriptors, lineage entries, migration
// reports, and the standard errors returned by the engine.
package types
