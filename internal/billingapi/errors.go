package billingapi

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means the request never got a usable answer from the API:
// the transport failed or a gateway reported the upstream as unavailable.
// The same request may succeed later.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: api unavailable (HTTP %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ApplicationError is a rejection returned by the API itself.
type ApplicationError struct {
	Op         string
	StatusCode int
	Message    string
	// DBError is set when the server flagged the failure as a database problem.
	DBError bool
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return e.Message
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized
}

func gatewayStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
