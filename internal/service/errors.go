package service

// Typed service errors, one per user-facing outcome. Handlers translate them
// to HTTP statuses in a single place; anything outside this taxonomy becomes
// a generic 500 with the detail logged server-side only.

// ValidationError covers malformed input and role-conditional rule violations.
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError { return &ValidationError{Message: message} }
func (e *ValidationError) Error() string                 { return e.Message }

// AuthenticationError covers bad credentials and bad or expired tokens.
type AuthenticationError struct {
	Message string
}

func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}
func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError covers a confirmed identity acting outside its role or school.
type AuthorizationError struct {
	Message string
}

func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}
func (e *AuthorizationError) Error() string { return e.Message }

// NotFoundError covers absent schools, users and invitations.
type NotFoundError struct {
	Message string
}

func NewNotFoundError(message string) *NotFoundError { return &NotFoundError{Message: message} }
func (e *NotFoundError) Error() string               { return e.Message }

// ConflictError covers duplicate active invitations and duplicate registrations.
type ConflictError struct {
	Message string
}

func NewConflictError(message string) *ConflictError { return &ConflictError{Message: message} }
func (e *ConflictError) Error() string               { return e.Message }

// InvalidStateError wraps an illegal invitation transition. The wrapped
// model error keeps errors.Is working against the transition sentinels.
type InvalidStateError struct {
	Err error
}

func NewInvalidStateError(err error) *InvalidStateError { return &InvalidStateError{Err: err} }
func (e *InvalidStateError) Error() string              { return e.Err.Error() }
func (e *InvalidStateError) Unwrap() error              { return e.Err }
