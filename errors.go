package agencykit

import (
	"errors"
	"fmt"
)

// Sentinel errors for agencykit operations.
var (
	// ErrMissingRole is returned when a permission table has no entry for a role.
	// It is a configuration defect and surfaces when the table is built.
	ErrMissingRole = errors.New("agencykit: role missing from permission table")

	// ErrInvalidRole is returned when a role name is not recognized.
	ErrInvalidRole = errors.New("agencykit: invalid role")

	// ErrInvalidResource is returned when a resource kind is not recognized.
	ErrInvalidResource = errors.New("agencykit: invalid resource kind")

	// ErrInvalidPage is returned when a page path is not recognized.
	ErrInvalidPage = errors.New("agencykit: invalid page")

	// ErrInvalidPermission is returned when a permission string is malformed.
	ErrInvalidPermission = errors.New("agencykit: invalid permission")

	// ErrUnauthorized is returned when the actor's role lacks the capability.
	ErrUnauthorized = errors.New("agencykit: unauthorized")

	// ErrNotFound is returned when a record does not exist or is not visible to the actor.
	ErrNotFound = errors.New("agencykit: not found")

	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("agencykit: invalid record")

	// ErrNoActor is returned when no actor is available for the request.
	ErrNoActor = errors.New("agencykit: no actor in context")

	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("agencykit: invalid token")

	// ErrInvalidCredentials is returned when a login does not match.
	ErrInvalidCredentials = errors.New("agencykit: invalid credentials")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("agencykit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err      error        // Underlying sentinel error
	Message  string       // Additional context
	Role     Role         // Role involved (if applicable)
	Kind     ResourceKind // Resource kind involved (if applicable)
	Action   Action       // Action attempted (if applicable)
	RecordID string       // Record involved (if applicable)
	UserID   string       // Acting user (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role Role) *Error {
	e.Role = role
	return e
}

// WithKind adds resource kind information to the error.
func (e *Error) WithKind(kind ResourceKind) *Error {
	e.Kind = kind
	return e
}

// WithAction adds the attempted action to the error.
func (e *Error) WithAction(action Action) *Error {
	e.Action = action
	return e
}

// WithRecord adds record information to the error.
func (e *Error) WithRecord(id string) *Error {
	e.RecordID = id
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor copies the actor's user and role onto the error.
func (e *Error) WithActor(actor *Actor) *Error {
	if actor != nil {
		e.UserID = actor.UserID
		e.Role = actor.Role
	}
	return e
}

// IsUnauthorized checks if an error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoActor) ||
		errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrInvalidCredentials)
}

// IsNotFound checks if an error means the record is missing or hidden.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidRecord checks if an error is a validation failure.
func IsInvalidRecord(err error) bool {
	return errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrInvalidResource)
}

// IsConfiguration checks if an error is a permission table defect.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrMissingRole)
}
