// Package api defines the HTTP API: the OpenAPI document in regbrowse.yaml, the
// ServerInterface the implementation satisfies, and the echo wiring that binds path
// and query parameters and calls it.
package api
