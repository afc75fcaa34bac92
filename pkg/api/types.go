package api

// ErrorResponse is the JSON envelope for every rejected request.
// Details and Result serialize as null when unset.
type ErrorResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Result  any     `json:"result"`
}

// SuccessResponse is the JSON envelope for handlers served by the gateway itself.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// IdentityView is the public representation of an authenticated identity.
type IdentityView struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// NewErrorResponse builds the envelope for a GateError.
func NewErrorResponse(err *GateError) ErrorResponse {
	resp := ErrorResponse{Message: err.Message}
	if err.Details != "" {
		details := err.Details
		resp.Details = &details
	}
	return resp
}

// NewSuccessResponse builds a success envelope.
func NewSuccessResponse(message string, data any) SuccessResponse {
	return SuccessResponse{Success: true, Message: message, Data: data}
}
