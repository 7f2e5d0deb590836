package taskflowsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/taskflow/pkg/httpx"
)

// APIError is a non-2xx reply decoded from the API's error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []httpx.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("taskflow: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Field returns the message for a failed field, or "".
func (e *APIError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

// parseErrorResponse turns an error reply into *APIError, falling back to
// the status text when the body is not the API's error shape.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp httpx.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error,
			Message:    errResp.Message,
			Fields:     errResp.Errors,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       httpx.CodeServerError,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
