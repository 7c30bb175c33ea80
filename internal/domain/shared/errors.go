package shared

// ErrorKind classifies a DomainError for transport mapping.
type ErrorKind string

const (
	// KindValidation marks user-correctable input errors.
	KindValidation ErrorKind = "validation"
	// KindState marks workflow violations (wrong lifecycle state, collisions).
	KindState ErrorKind = "state"
	// KindNotFound marks missing or cross-tenant resources.
	KindNotFound ErrorKind = "not_found"
	// KindForbidden marks privilege violations.
	KindForbidden ErrorKind = "forbidden"
	// KindInvariant marks conditions that must never occur; callers roll back.
	KindInvariant ErrorKind = "invariant"
)

// Machine-readable codes surfaced to clients alongside the error detail.
const (
	CodeSessionCompleted        = "session_completed"
	CodeDifferenceNotZero       = "difference_not_zero"
	CodeUnreconciledRemaining   = "unreconciled_transactions_remaining"
	CodeOperationIDCollision    = "operation_id_collision"
	CodeTransactionMatched      = "transaction_already_matched"
	CodeTransactionNotOpen      = "transaction_not_open"
	CodeSessionNotCompleted     = "session_not_completed"
	CodeValidationError         = "validation_error"
	CodeNotFound                = "not_found"
	CodeForbidden               = "forbidden"
	CodeInternalError           = "internal_error"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a user-correctable validation error.
func NewValidationError(message string) *DomainError {
	return NewDomainError(KindValidation, CodeValidationError, message)
}

// NewStateError creates a workflow-state error with a machine code.
func NewStateError(code, message string) *DomainError {
	return NewDomainError(KindState, code, message)
}

// NewNotFoundError creates a not-found error. Cross-tenant references use
// this as well, so existence never leaks between tenants.
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(KindNotFound, CodeNotFound, message)
}

// NewForbiddenError creates a privilege error.
func NewForbiddenError(message string) *DomainError {
	return NewDomainError(KindForbidden, CodeForbidden, message)
}

// NewInvariantError creates an error for conditions that must never occur.
// The surrounding transaction is expected to roll back.
func NewInvariantError(message string) *DomainError {
	return NewDomainError(KindInvariant, CodeInternalError, message)
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(KindState, "already_exists", "Resource already exists")
	ErrInvalidInput        = NewDomainError(KindValidation, CodeValidationError, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindState, "concurrency_conflict", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(KindForbidden, "unauthorized", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(KindForbidden, CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(KindState, "invalid_state", "Operation not allowed in current state")
)
