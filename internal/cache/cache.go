package cache

import (
	"context"
	"strings"
	"time"
)

// Namespaces used for cache keys.
const (
	NamespaceInvitations = "invitations"
	NamespaceDashboard   = "dashboard"
	NamespaceSessions    = "sessions"
)

// Client is a best-effort accelerator in front of the database. Every method
// degrades to a miss or no-op instead of returning an error: callers must
// always be able to fall back to the source of truth, and a cache outage must
// never fail a request. Implementations log their own failures.
type Client interface {
	// Get unmarshals the cached value into dest and reports a hit.
	Get(ctx context.Context, namespace, key string, dest interface{}) bool
	// Set stores value under namespace:key for ttl and reports success.
	Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) bool
	// Delete removes a single entry and reports whether the call went through.
	Delete(ctx context.Context, namespace, key string) bool
	// DelPattern removes every entry matching the glob pattern, which
	// includes the namespace (e.g. "invitations:GRN1234:*").
	DelPattern(ctx context.Context, pattern string) bool
	// IsAvailable reports whether the backend answered the last operation.
	IsAvailable() bool
}

// Key joins key parts into a namespaced cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
