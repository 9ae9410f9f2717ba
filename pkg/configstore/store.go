// FILE: pkg/configstore/store.go
// PURPOSE: Read access to admin guardrail defaults and session overrides

package configstore

import (
	"context"

	"github.com/google/uuid"

	"rag-context-be/pkg/guardrail"
)

// Store supplies the two config inputs the resolver merges per request.
// Implementations must degrade instead of failing: when the backing store
// is unreachable, Defaults returns compiled-in values.
type Store interface {
	// Defaults returns the admin-managed guardrail defaults. fromCache
	// reports whether the value came from the TTL snapshot rather than a
	// fresh read.
	Defaults(ctx context.Context) (cfg guardrail.GuardrailConfig, fromCache bool)

	// SessionOverrides returns the untrusted per-session overrides, already
	// decoded. A session without overrides yields the zero value.
	SessionOverrides(ctx context.Context, sessionID uuid.UUID) (guardrail.SessionOverrides, []guardrail.SanitizationChange)
}
