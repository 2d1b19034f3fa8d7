package image

import (
	"context"
	"errors"
	"fmt"
)

type Params struct {
	Text      string `json:"text"`
	NumImages int    `json:"num_images"`
}

type Generator interface {
	Generate(context.Context, Params) ([]byte, error)
}

var (
	ErrEmptyResponse    = errors.New("backend returned no images")
	ErrMalformedPayload = errors.New("malformed image payload")
)

// StatusError is returned when the backend answers with a non-2xx status. The
// body is never decoded in that case.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

// IsBackendError reports whether err came from the backend's answer rather than
// from transport or the local filesystem.
func IsBackendError(err error) bool {
	var status *StatusError
	return errors.As(err, &status) || errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMalformedPayload)
}
