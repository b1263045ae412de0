package types

// APIResponse is the envelope for every non-feed response.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func NewSuccessResponse(data any) *APIResponse {
	return &APIResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(code, message string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithDetails attaches machine-readable context, e.g. the
// offending query parameter.
func NewErrorResponseWithDetails(code, message string, details map[string]any) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeUnauthorized = "UNAUTHORIZED"
	ErrorCodeForbidden    = "FORBIDDEN"
	ErrorCodeNotFound     = "NOT_FOUND"
	ErrorCodeConflict     = "CONFLICT"
	ErrorCodeInternal     = "INTERNAL_ERROR"
	ErrorCodeInvalidToken = "INVALID_TOKEN"
	ErrorCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
)
