// Package identity carries the authenticated caller through request contexts.
package identity

import "context"

// Caller is the identity supplied by the identity provider for every call.
type Caller struct {
	ID    string
	Admin bool
}

// CanManage reports whether the caller owns ownerID's resources or is an admin.
func (c Caller) CanManage(ownerID string) bool {
	return c.Admin || c.ID == ownerID
}

type contextKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the caller stored in ctx, if any.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok && c.ID != ""
}
