package chatapi

import "fmt"

// APIError is a non-2xx XRPC response. Code carries the service's error name
// ("ExpiredToken", "InvalidRequest") when one was provided.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("chat service: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("chat service: %s (status %d)", e.Code, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("chat service: %s (status %d)", e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("chat service: unexpected status %d", e.StatusCode)
	}
}

// AuthFailed reports whether the request died on credentials rather than on
// the request itself.
func (e *APIError) AuthFailed() bool {
	return e.StatusCode == 401 || e.Code == "ExpiredToken" || e.Code == "InvalidToken"
}
