package upstream

import (
	"fmt"

	"github.com/adotmob/regbrowse/impl/manifest"
)

// RequestError means the GET failed: the request could not be made, timed out, or
// the upstream returned a non-2xx status. If the upstream sent a registry errors
// body along with the status, it is in Errors.
type RequestError struct {
	Url        string
	StatusCode int
	Errors     manifest.RegistryErrors
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %s", e.Url, e.Err)
	}
	if len(e.Errors) != 0 {
		return fmt.Sprintf("request to %s returned status %d: %s", e.Url, e.StatusCode, e.Errors)
	}
	return fmt.Sprintf("request to %s returned status %d", e.Url, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if len(e.Errors) != 0 {
		return e.Errors
	}
	return nil
}

// DecodeError means the upstream answered but the body was not the expected shape
type DecodeError struct {
	Url string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode response from %s: %s", e.Url, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
