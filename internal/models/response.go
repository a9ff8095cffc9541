package models

// Error codes returned to the client in ErrorResponse.Code.
const (
	ErrCodeBadRequest      = 40000
	ErrCodeValidation      = 40001
	ErrCodeInvalidPosition = 40002
	ErrCodeCardHidden      = 40003
	ErrCodeCardNotFlipped  = 40004
	ErrCodeShuffleDenied   = 40005
	ErrCodeClaimNotOpen    = 40006
	ErrCodeCardLocked      = 40007
	ErrCodeAuthFailed      = 40100
	ErrCodeUnauthorized    = 40101
	ErrCodeUnknownCard     = 40400
	ErrCodeAlreadyClaimed  = 40900
	ErrCodeStaleView       = 40901
	ErrCodeInternal        = 50000
	ErrCodePersistence     = 50300
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
