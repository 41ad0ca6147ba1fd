package http

import (
	"net/http"

	"github.com/pkg/errors"
)

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func EnsureSuccessStatusCode(resp *http.Response) error {
	if !isSuccessStatusCode(resp) {
		return errors.New("http response did not indicate success status code: " + resp.Status)
	}
	return nil
}

func IsSuccess(resp *http.Response) bool {
	return isSuccessStatusCode(resp)
}

func IsNotFound(resp *http.Response) bool {
	return resp.StatusCode == http.StatusNotFound
}

// IsBlocked reports whether the server refused the request because of who
// is asking rather than what was asked for: access denied, rate limited, or
// unavailable with an explicit Retry-After.
func IsBlocked(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	case http.StatusServiceUnavailable:
		return resp.Header.Get("Retry-After") != ""
	}

	return false
}
