package agencykit

import (
	"context"
)

// Context keys for agencykit values.
type contextKey string

const (
	contextKeyActor     contextKey = "agencykit:actor"
	contextKeyIPAddress contextKey = "agencykit:ip_address"
	contextKeyUserAgent contextKey = "agencykit:user_agent"
	contextKeyRequestID contextKey = "agencykit:request_id"
	contextKeyChecker   contextKey = "agencykit:checker"
)

// WithActor adds the authenticated actor to the context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor, actor)
}

// ActorFromContext retrieves the actor from context.
// Returns nil if not set.
func ActorFromContext(ctx context.Context) *Actor {
	if v := ctx.Value(contextKeyActor); v != nil {
		if a, ok := v.(*Actor); ok {
			return a
		}
	}
	return nil
}

// MustActor retrieves the actor from context.
// Panics if not set.
func MustActor(ctx context.Context) *Actor {
	actor := ActorFromContext(ctx)
	if actor == nil {
		panic("agencykit: actor not in context")
	}
	return actor
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	return stringValue(ctx, contextKeyIPAddress)
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserAgent)
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds a Checker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// CheckerFromContext retrieves the Checker from context.
// When only an actor is present a Checker over DefaultTable is returned;
// with neither, the result is nil.
func CheckerFromContext(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	if actor := ActorFromContext(ctx); actor != nil {
		return NewChecker(actor, nil)
	}
	return nil
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	Actor     *Actor
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		Actor:     ActorFromContext(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.Actor != nil {
		ctx = WithActor(ctx, ac.Actor)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}

// entry builds an audit entry for a gated write from the request metadata.
func (ac AuditContext) entry(action Action, kind ResourceKind, recordID string, outcome AuditOutcome) *AuditEntry {
	return &AuditEntry{
		Actor:     ac.Actor,
		Action:    action,
		Kind:      kind,
		RecordID:  recordID,
		Outcome:   outcome,
		IPAddress: ac.IPAddress,
		UserAgent: ac.UserAgent,
		RequestID: ac.RequestID,
	}
}
