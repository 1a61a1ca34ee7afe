package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

type sessionKey struct{}

// WithSession places a transaction handle in ctx's request-scoped slot.
// It rejects nested activation (spec.md §4.7 point 6): a session already
// present in ctx is a SystemError, the same invariant
// original_source/metadata_backend/api/middlewares.py's SessionMiddleware
// enforces by checking session_context.get() is not None.
func WithSession(ctx context.Context, tx *gorm.DB) (context.Context, error) {
	if ctx.Value(sessionKey{}) != nil {
		return ctx, apperr.New(apperr.KindSystem, "session context is already set")
	}
	return context.WithValue(ctx, sessionKey{}, tx), nil
}

// FromContext returns the transaction handle repositories must use, or a
// SystemError if the Session middleware never ran for this request.
// Repositories never begin/commit/rollback themselves (spec.md §5).
func FromContext(ctx context.Context) (*gorm.DB, error) {
	tx, ok := ctx.Value(sessionKey{}).(*gorm.DB)
	if !ok || tx == nil {
		return nil, apperr.New(apperr.KindSystem, "no database session in request context")
	}
	return tx, nil
}
