// Package middleware implements the two cross-cutting request stages
// spec.md §4.7/§4.8 describe: a per-request database transaction and
// JWT/API-key authentication. Ported from original_source/metadata_
// backend/api/middlewares.py's SessionMiddleware/AuthMiddleware (ASGI
// contextvars) into echo middleware over context.Context.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/obs"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

// Session opens one top-level transaction per request under apiPrefix,
// commits when the handler returns normally with a non-error status, and
// rolls back otherwise: a returned error is translated to problem-JSON, and
// a response the handler already wrote with status >= 400 is kept as is.
// Requests outside apiPrefix bypass it.
func Session(db *gorm.DB, apiPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !hasPrefix(c.Request().URL.Path, apiPrefix) {
				return next(c)
			}

			tx := db.Begin()
			if tx.Error != nil {
				return writeProblem(c, apperr.Wrap(apperr.KindSystem, "open transaction", tx.Error))
			}

			ctx, err := store.WithSession(c.Request().Context(), tx)
			if err != nil {
				tx.Rollback()
				return writeProblem(c, err)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			if handlerErr := next(c); handlerErr != nil {
				tx.Rollback()
				return writeProblem(c, handlerErr)
			}
			if c.Response().Status >= http.StatusBadRequest {
				tx.Rollback()
				return nil
			}

			if err := tx.Commit().Error; err != nil {
				obs.Log.WithError(err).Error("transaction commit failed")
				return writeProblem(c, apperr.Wrap(apperr.KindSystem, "commit transaction", err))
			}
			return nil
		}
	}
}

func hasPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

func writeProblem(c echo.Context, err error) error {
	problem := apperr.ToProblem(err, c.Request().URL.Path)
	return c.JSON(problem.Status, problem)
}
