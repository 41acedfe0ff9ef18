package models

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeInvalidThreshold     = "INVALID_THRESHOLD"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeUnknownEventType     = "UNKNOWN_EVENT_TYPE"
	ErrCodeInvalidEndpoint      = "INVALID_ENDPOINT"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeSubscriptionDegraded = "SUBSCRIPTION_DEGRADED"
)
