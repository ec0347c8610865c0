package schema

import "fmt"

type RemoteErrorCode string

const (
	TimeoutError           RemoteErrorCode = "TIMEOUT_ERROR"
	ConnectionError        RemoteErrorCode = "CONNECTION_ERROR"
	UnauthorizedError      RemoteErrorCode = "UNAUTHORIZED_ERROR"
	MalformedResponseError RemoteErrorCode = "MALFORMED_RESPONSE_ERROR"
)

// RemoteError is a failure of a call to the rental service that never produced an
// interpretable result.
type RemoteError struct {
	Code    RemoteErrorCode `json:"code"`
	Message string          `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unauthorized reports whether the service refused the credential.
func (e *RemoteError) Unauthorized() bool {
	return e.Code == UnauthorizedError
}

func NewTimeoutError(msg string) RemoteError {
	return RemoteError{
		Code:    TimeoutError,
		Message: msg,
	}
}

func NewConnectionError(msg string) RemoteError {
	return RemoteError{
		Code:    ConnectionError,
		Message: msg,
	}
}

func NewUnauthorizedError(msg string) RemoteError {
	return RemoteError{
		Code:    UnauthorizedError,
		Message: msg,
	}
}

func NewMalformedResponseError(msg string) RemoteError {
	return RemoteError{
		Code:    MalformedResponseError,
		Message: msg,
	}
}
