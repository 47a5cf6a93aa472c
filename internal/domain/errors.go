package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSource        = errors.New("invalid source reference")
	ErrSourceFetch          = errors.New("transcript fetch failed")
	ErrVideoNotFound        = errors.New("video not found")
	ErrCaptionsDisabled     = errors.New("captions are disabled for this video")
	ErrEmptyInput           = errors.New("transcript is empty")
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	ErrTransport            = errors.New("transport error")
	ErrMalformedResponse    = errors.New("malformed response")
	ErrBusy                 = errors.New("ingestion in progress")
	ErrEmptyQuestion        = errors.New("question is empty")
)

// HTTPError reports a non-2xx response from the completion endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}
