/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spancapture

import (
	"context"

	"chainguard.dev/spanevals/agents/spantree"
	"github.com/google/uuid"
)

// ScopeID identifies one capture scope.
type ScopeID string

// scopeKey is the context key for the active scope
type scopeKey struct{}

func newScopeID() ScopeID {
	return ScopeID(uuid.NewString())
}

// WithScope returns a context in which id is the active scope.
func WithScope(ctx context.Context, id ScopeID) context.Context {
	return context.WithValue(ctx, scopeKey{}, id)
}

// ScopeFromContext returns the scope active in ctx.
func ScopeFromContext(ctx context.Context) (ScopeID, bool) {
	id, ok := ctx.Value(scopeKey{}).(ScopeID)
	return id, ok && id != ""
}

type scope struct {
	ctx    context.Context // Begin's context without cancellation, for metric labels
	active bool
	spans  []spantree.Span
}
