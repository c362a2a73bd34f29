package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedStatus is returned by Response.OK for any status other than 200
var ErrUnexpectedStatus = errors.New("unexpected status")

// Response is a fetched page
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// NotFound reports whether the server answered 404
func (r *Response) NotFound() bool {
	return r.StatusCode == http.StatusNotFound
}

// OK returns an error wrapping ErrUnexpectedStatus unless the status is 200
func (r *Response) OK() error {
	if r.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, r.StatusCode, r.URL)
	}
	return nil
}

// Fetcher interface defines the contract for fetching implementations
type Fetcher interface {
	// Fetch retrieves one page. Non-2xx statuses are reported in the
	// Response, only transport failures are returned as errors.
	Fetch(ctx context.Context, url string) (*Response, error)
}
