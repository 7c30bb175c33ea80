package dto

import (
	"net/http"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// ErrorResponse is the wire shape for every error reply. Error carries a
// short kind-level label, Detail the human sentence, and Code the machine
// code clients can branch on (e.g. session_completed, difference_not_zero).
type ErrorResponse struct {
	Error     string             `json:"error"`
	Detail    string             `json:"detail,omitempty"`
	Code      string             `json:"code,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	Fields    []ValidationDetail `json:"fields,omitempty"`
}

// ValidationDetail pinpoints a single failed field in a request body.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StatusForKind maps a domain error kind to an HTTP status. State errors
// stay 400 rather than 409/422 so workflow violations and validation
// failures are handled uniformly by clients; the machine code
// disambiguates.
func StatusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindValidation, shared.KindState:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// LabelForKind returns the short error label for a domain error kind.
func LabelForKind(kind shared.ErrorKind) string {
	switch kind {
	case shared.KindValidation:
		return "validation failed"
	case shared.KindState:
		return "invalid state"
	case shared.KindNotFound:
		return "not found"
	case shared.KindForbidden:
		return "forbidden"
	default:
		return "internal error"
	}
}

// NewDomainErrorResponse converts a DomainError into its HTTP status and
// wire body. Invariant errors never leak their message to clients.
func NewDomainErrorResponse(err *shared.DomainError, requestID string) (int, ErrorResponse) {
	detail := err.Message
	if err.Kind == shared.KindInvariant {
		detail = "An unexpected error occurred"
	}
	return StatusForKind(err.Kind), ErrorResponse{
		Error:     LabelForKind(err.Kind),
		Detail:    detail,
		Code:      err.Code,
		RequestID: requestID,
	}
}

// NewErrorResponse builds an error body outside the domain taxonomy, for
// transport-level failures (malformed JSON, missing auth, rate limits).
func NewErrorResponse(label, detail, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     label,
		Detail:    detail,
		RequestID: requestID,
	}
}

// NewValidationErrorResponse builds the body for request-binding failures,
// one entry per offending field.
func NewValidationErrorResponse(detail, requestID string, fields []ValidationDetail) ErrorResponse {
	return ErrorResponse{
		Error:     LabelForKind(shared.KindValidation),
		Detail:    detail,
		Code:      shared.CodeValidationError,
		RequestID: requestID,
		Fields:    fields,
	}
}
