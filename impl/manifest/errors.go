package manifest

import (
	"fmt"
	"strings"
)

// ClassificationError means the body decoded but describes a schema version or
// media type that isn't supported.
type ClassificationError struct {
	SchemaVersion int
	MediaType     *string
}

func (e *ClassificationError) Error() string {
	if e.SchemaVersion != 2 {
		return fmt.Sprintf("unsupported manifest schema version: %d", e.SchemaVersion)
	}
	if e.MediaType == nil {
		return "unsupported manifest media type: no media type for schema version 2"
	}
	return fmt.Sprintf("unsupported manifest media type: %q", *e.MediaType)
}

// ParseError means a decode failed. Phase is "probe" if the schema probe could
// not be decoded, otherwise it is the variant that the probe selected.
type ParseError struct {
	Phase string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse manifest (%s): %s", e.Phase, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RegistryErrors is returned when the registry sent an error body instead of
// a manifest
type RegistryErrors []RegistryError

func (e RegistryErrors) Error() string {
	msgs := make([]string, len(e))
	for i, re := range e {
		msg := fmt.Sprintf("%s: %s", re.Code, re.Message)
		if re.Detail.Tag != nil {
			msg = fmt.Sprintf("%s (tag %s)", msg, *re.Detail.Tag)
		}
		msgs[i] = msg
	}
	return "registry error: " + strings.Join(msgs, "; ")
}
