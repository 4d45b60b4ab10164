package transport

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrStatus is the cause recorded for non-2xx responses.
var ErrStatus = errors.New("unexpected HTTP status")

// TransportError reports a failed remote call: network failure, non-2xx status
// or a body that is not JSON.
type TransportError struct {
	Method     string
	Endpoint   string
	StatusCode int
	// Message is the server's "message" field when the body is a JSON error.
	Message string
	Body    string
	Cause   error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Method, e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Cause != nil && !errors.Is(e.Cause, ErrStatus) {
		msg += ": " + e.Cause.Error()
	}
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.Body != "":
		msg += ": " + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Cause }

const maxErrorBody = 512

func snippet(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}

// serverMessage extracts the "message" field of a JSON error body.
func serverMessage(b []byte) string {
	if len(b) == 0 || !gjson.ValidBytes(b) {
		return ""
	}
	return gjson.GetBytes(b, "message").String()
}
