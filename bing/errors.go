package bing

import "fmt"

// FetchError is returned for every failure while fetching the daily image:
// network errors, bad statuses, malformed metadata and bad image payloads.
type FetchError struct {
	Op  string
	URL string
	Err error
}

func (e *FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchErr(op, u string, err error) error {
	return &FetchError{Op: op, URL: u, Err: err}
}
