package middleware

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/authsvc"
)

type userKey struct{}

// UserFromContext returns the User the Auth middleware resolved, if any.
func UserFromContext(ctx context.Context) (*authsvc.User, bool) {
	u, ok := ctx.Value(userKey{}).(*authsvc.User)
	return u, ok
}

// Auth extracts and validates a JWT (cookie `access_token`, or a bearer
// token that parses as a JWT header) or an API key (any other bearer
// token), in that order, per spec.md §4.8.
func Auth(svc *authsvc.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := resolveUser(c, svc)
			if err != nil {
				return writeProblem(c, err)
			}
			if user == nil {
				return writeProblem(c, apperr.NewUnauthorized("missing or invalid credentials"))
			}
			ctx := context.WithValue(c.Request().Context(), userKey{}, user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func resolveUser(c echo.Context, svc *authsvc.Service) (*authsvc.User, error) {
	if cookie, err := c.Cookie("access_token"); err == nil && cookie.Value != "" {
		return svc.ValidateToken(cookie.Value)
	}

	auth := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return nil, nil
	}
	token := strings.TrimPrefix(auth, prefix)

	if looksLikeJWT(token) {
		return svc.ValidateToken(token)
	}
	return svc.ValidateAPIKey(c.Request().Context(), token)
}

// looksLikeJWT mirrors the Python extraction logic's
// jwt.get_unverified_header(t) probe: three dot-separated segments whose
// first segment base64url-decodes, without verifying the signature.
func looksLikeJWT(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(parts[0])
	return err == nil
}
