package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) ErrCode() string {
	return "NETWORK_ERROR"
}

func (e *NetworkError) StatusCode() int {
	return http.StatusBadGateway
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   []byte

	// Message is the API's "message" field, when the body has one.
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

func (e *HTTPError) ErrCode() string {
	switch {
	case e.Status == http.StatusNotFound:
		return "NOT_FOUND_ERROR"
	case e.Status >= 500:
		return "SERVER_ERROR"
	default:
		return "HTTP_ERROR"
	}
}

func (e *HTTPError) StatusCode() int {
	return e.Status
}

// DecodeError is a 2xx response whose body is not JSON.
type DecodeError struct {
	URL  string
	Body []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: response is not valid JSON", e.URL)
}

func (e *DecodeError) ErrCode() string {
	return "DECODE_ERROR"
}

func (e *DecodeError) StatusCode() int {
	return http.StatusBadGateway
}

// IsNotFound reports whether err is, or wraps, a 404 response.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusNotFound
}
