package copilot

import (
	"errors"

	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/utils/json"
)

// Fallback messages used when the backend does not explain a failure.
const (
	// MessageNetworkError is used when an error response body is not JSON.
	MessageNetworkError = "Network error"
	// MessageRequestFailed is used when an error response carries no detail.
	MessageRequestFailed = "Request failed"
)

// RequestError is the only error kind returned by Client operations.
//
// Message is meant to be shown to users as is. StatusCode is the HTTP status,
// or 0 when the request never produced a response.
type RequestError struct {
	Message    string
	StatusCode int
	Err        error
}

// Error returns Message verbatim.
func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport or decoding error, if any.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Transport reports whether the request failed before any response arrived.
func (e *RequestError) Transport() bool {
	return e.StatusCode == 0
}

// IsRequestError reports whether err is or wraps a *RequestError.
func IsRequestError(err error) bool {
	_, ok := AsRequestError(err)
	return ok
}

// AsRequestError returns the *RequestError in err's chain.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

func transportError(err error) *RequestError {
	return &RequestError{Message: err.Error(), Err: err}
}

// errorFromResponse builds the error for a non-2xx response. A body that is
// valid JSON but not an object carries no detail.
func errorFromResponse(status int, body []byte) *RequestError {
	var payload v1.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if !json.Valid(body) {
			return &RequestError{Message: MessageNetworkError, StatusCode: status, Err: err}
		}
		payload = v1.ErrorResponse{}
	}

	msg := detailMessage(payload.Detail)
	if msg == "" {
		msg = MessageRequestFailed
	}

	return &RequestError{Message: msg, StatusCode: status}
}

// detailMessage renders a detail value. Empty strings, zero, false and null yield "".
// Structured details such as validation error lists are rendered as JSON.
func detailMessage(detail any) string {
	switch d := detail.(type) {
	case nil:
		return ""
	case string:
		return d
	case bool:
		if !d {
			return ""
		}
	case float64:
		if d == 0 {
			return ""
		}
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(data)
}
