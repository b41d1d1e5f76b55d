// Package upstream talks to the upstream registry over the Docker Registry HTTP API
// v2. It gets one page of the repository catalog at a time, the tag list of one
// repository, and manifests. Each call is a single GET bounded by the client timeout.
// Nothing is retried and nothing is cached here.
package upstream
