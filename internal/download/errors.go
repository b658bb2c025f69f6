// file: internal/download/errors.go
// version: 2.0.0
// guid: c82e3b94-2ab9-469d-a2ed-16a28525b03d

package download

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means the backend rejected our credentials, including
	// after the single re-login a session protocol allows.
	ErrAuthFailed = errors.New("download backend authentication failed")

	// ErrSessionConflict means the backend rejected a freshly issued
	// session token a second time.
	ErrSessionConflict = errors.New("download backend session conflict")

	// ErrUnsupportedKind is returned by NewBackend for unknown kinds.
	ErrUnsupportedKind = errors.New("unsupported download backend kind")

	// ErrInvalidConfig wraps configuration problems found before any call.
	ErrInvalidConfig = errors.New("invalid download backend config")
)

// RPCError is an error reported inside a backend's response envelope.
type RPCError struct {
	Kind    Kind
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s: %s (code %d)", e.Kind, e.Method, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Method, e.Message)
}
