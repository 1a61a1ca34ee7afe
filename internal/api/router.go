package api

import (
	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/authsvc"
)

// APIPrefix is the path prefix the Session middleware scopes its
// per-request transaction to, and that public (unauthenticated) OIDC
// routes fall outside of.
const APIPrefix = "/v1"

// RegisterRoutes wires every spec.md §6 endpoint onto e. authMiddleware
// is internal/middleware.Auth(authSvc) pre-built by the caller, kept as a
// parameter so this package does not import internal/middleware's echo
// binding directly for anything beyond the Auth gate itself.
func RegisterRoutes(e *echo.Echo, h *Handlers, authSvc *authsvc.Service, authMiddleware echo.MiddlewareFunc) {
	// Public: OIDC flow and the aggregate health probe.
	e.GET("/login", h.Login)
	e.GET("/callback", h.Callback)
	e.GET("/logout", h.Logout)
	e.GET("/health", h.GetHealth)

	authed := e.Group(APIPrefix, authMiddleware)

	authed.POST("/submissions", h.CreateSubmission)
	authed.GET("/submissions", h.ListSubmissions)
	authed.GET("/submissions/:id", h.GetSubmission)
	authed.PATCH("/submissions/:id", h.UpdateSubmission)
	authed.DELETE("/submissions/:id", h.DeleteSubmission)
	authed.GET("/submissions/:id/registrations", h.ListRegistrations)

	authed.PATCH("/publish/:id", h.PublishSubmission)

	authed.POST("/objects/:schema", h.CreateObject)
	authed.POST("/validate", h.ValidateDocument)

	authed.POST("/api/keys", h.CreateAPIKey)
	authed.GET("/api/keys", h.ListAPIKeys)
	authed.DELETE("/api/keys", h.RevokeAPIKey)

	authed.GET("/buckets", h.ListBuckets)
	authed.GET("/buckets/:name/files", h.ListBucketFiles)
	authed.PUT("/buckets/:name", h.GrantBucketReadPolicy)
	authed.HEAD("/buckets/:name", h.BucketPolicyStatus)

	authed.GET("/rems", h.GetRemsCatalogue)
	authed.GET("/users", h.GetAuthorizedUser)
}
