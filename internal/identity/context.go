package identity

import (
	"context"
	"errors"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	requestIDKey contextKey = "requestID"
)

// Role is the access level of an authenticated user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the already-resolved caller of an operation.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanMutate reports whether the caller may change a lead owned by ownerID.
func (i Identity) CanMutate(ownerID string) bool {
	return i.UserID != "" && (i.UserID == ownerID || i.IsAdmin())
}

// ErrNoIdentityInContext is returned when no caller identity is found in context
var ErrNoIdentityInContext = errors.New("no identity found in context")

// ErrNoRequestIDInContext is returned when no request ID is found in context
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// WithIdentity adds the caller identity to the context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the caller identity from the context
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrNoIdentityInContext
	}
	return id, nil
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from the context
func RequestIDFromContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}
