// Package manifest models the manifests a Docker registry returns and resolves a raw
// manifest body into one of them. There are three incompatible shapes: the legacy
// schema 1 manifest, the schema 2 single-platform image manifest, and the schema 2
// multi-platform manifest list. The registry doesn't tag a response with a single field
// that identifies the full shape, so resolution is done in two phases. First a narrow
// SchemaProbe is decoded and classified, then the same bytes are decoded into the
// variant the probe selected.
package manifest
