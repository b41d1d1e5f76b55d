package store

import (
	"context"
	"fmt"
	"net/url"
)

// Store is a keyed set of strings with sorted range reads
type Store interface {
	// Clear removes all members of the key
	Clear(ctx context.Context, key string) error
	// InsertAll adds members to the key. Duplicates collapse.
	InsertAll(ctx context.Context, key string, members []string) error
	// Cardinality is the number of members of the key
	Cardinality(ctx context.Context, key string) (int64, error)
	// SortedRange returns at most limit members in lexicographic order starting
	// at offset
	SortedRange(ctx context.Context, key string, offset, limit int64) ([]string, error)
	// Replace atomically clears the key and inserts the passed members
	Replace(ctx context.Context, key string, members []string) error
	// Ping checks that the store can be reached
	Ping(ctx context.Context) error
	Close() error
}

// UnavailableError is returned for any failure to reach the store or to run a
// command against it
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable (%s): %s", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Open returns a Store for the passed URL. Supported schemes are redis, rediss,
// and memory.
func Open(storeUrl string) (Store, error) {
	u, err := url.Parse(storeUrl)
	if err != nil {
		return nil, &UnavailableError{Op: "open", Err: err}
	}
	switch u.Scheme {
	case "redis", "rediss":
		return NewRedisStore(storeUrl)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, &UnavailableError{Op: "open", Err: fmt.Errorf("unsupported cache url scheme: %q", u.Scheme)}
}
