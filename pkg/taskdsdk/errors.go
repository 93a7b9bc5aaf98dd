package taskdsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Reason codes carried in the message of 401/403 responses.
const (
	ReasonTokenEmpty       = "TOKEN_EMPTY"
	ReasonTokenBlacklisted = "TOKEN_BLACKLISTED"
	ReasonTokenInvalid     = "TOKEN_INVALID"
	ReasonTokenExpired     = "TOKEN_EXPIRED"
	ReasonUnauthorized     = "UNAUTHORIZED"
	ReasonForbidden        = "FORBIDDEN"
	ReasonRefreshExpired   = "REFRESH_EXPIRED"
	ReasonRefreshInvalid   = "REFRESH_INVALID"
)

// APIError is a non-2xx response decoded from the service's error body.
type APIError struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Timestamp  string            `json:"timestamp"`
	Path       string            `json:"path"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("taskd: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// HasReason reports whether err is an APIError carrying reason.
func HasReason(err error, reason string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Message == reason
}

// parseErrorResponse turns an error body into an APIError, falling back
// to the bare status when the body is not the expected shape.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.StatusCode == 0 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Path:       resp.Request.URL.Path,
		}
	}
	return apiErr
}
