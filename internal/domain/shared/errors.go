package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrSessionActive    = NewDomainError("SESSION_ACTIVE", "A workflow session is already in progress")
	ErrNoActiveSession  = NewDomainError("NO_ACTIVE_SESSION", "No workflow session is in progress")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnknownBranch    = NewDomainError("UNKNOWN_BRANCH", "Sender is not one of the target branches")
	ErrNotConfirmable   = NewDomainError("NOT_CONFIRMABLE", "Session cannot be confirmed before a summary is posted")
	ErrMissingResponses = NewDomainError("MISSING_RESPONSES", "Not every branch has submitted its stock yet")
)
