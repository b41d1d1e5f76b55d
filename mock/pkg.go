// Package mock runs a read-only Docker registry for tests. It serves a paginated
// '_catalog' built from the configured repository names, tag lists, and a fixed set
// of manifests loaded from the 'testfiles' dir:
//
//	latest  -> schema 2 manifest list
//	v2      -> schema 2 image manifest (also by its digest)
//	v1      -> signed schema 1 manifest
//	oci     -> OCI image index (not a supported format)
//
// Any other manifest reference gets a 404 with a MANIFEST_UNKNOWN error body. Knobs
// in MockParams simulate upstream misbehavior: slow responses, failures part way
// through a crawl, garbage bodies, a registry that ignores the 'last' cursor.
package mock
