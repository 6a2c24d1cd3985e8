package docengine

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures where the request never completed (connection
// refused, DNS, cancelled context). Wrapped with the underlying cause.
var ErrTransport = errors.New("could not reach document engine")

// ErrMalformedResponse marks responses whose body did not decode into the
// expected shape.
var ErrMalformedResponse = errors.New("unexpected response from document engine")

// RemoteError is a non-success outcome reported by the engine itself.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("document engine returned status %d", e.Status)
	}
	return fmt.Sprintf("document engine error (status %d): %s", e.Status, e.Detail)
}

// UserMessage collapses any gateway error into a single human-readable
// message suitable for the workflow's error slot.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		if remote.Detail != "" {
			return remote.Detail
		}
		return remote.Error()
	case errors.Is(err, ErrTransport):
		return "Could not reach the document engine. Check the server and try again."
	case errors.Is(err, ErrMalformedResponse):
		return "The document engine sent an unexpected response. Try again."
	}

	return err.Error()
}
