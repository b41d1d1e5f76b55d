// Package store holds the catalog snapshot. A Store is a set of strings per key that
// can be read back in lexicographic order one range at a time. There is a Redis
// implementation for real deployments and an in-memory implementation for tests and
// local use. Either one publishes a new catalog with Replace, which readers observe
// either entirely or not at all.
package store
