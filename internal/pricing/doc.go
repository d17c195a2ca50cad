// Package pricing owns the supported symbol catalog and the shared price store.
//
// The Store is advanced only by the broadcast tick (ApplyRandomWalk) and may be
// read concurrently by inbound event handlers. Catalogs come either from the
// SYMBOLS environment string or from a YAML file.
package pricing
