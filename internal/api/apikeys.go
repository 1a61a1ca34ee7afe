package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

// CreateAPIKey handles POST /api/keys, returning the plaintext secret
// exactly once in the body shape spec.md §6 requires:
// "\n{id}.{secret}\n\n".
func (h *Handlers) CreateAPIKey(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	var req apiKeyCreateRequest
	if err := bindJSON(c, &req); err != nil {
		return writeProblem(c, err)
	}
	if req.KeyID == "" {
		return writeProblem(c, apperr.NewUser("keyId is required"))
	}

	key, err := h.Auth.CreateAPIKey(c.Request().Context(), userID, req.KeyID)
	if err != nil {
		return writeProblem(c, err)
	}
	return c.String(http.StatusOK, fmt.Sprintf("\n%s\n\n", key))
}

// ListAPIKeys handles GET /api/keys.
func (h *Handlers) ListAPIKeys(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	keys, err := h.Auth.ListAPIKeys(c.Request().Context(), userID)
	if err != nil {
		return writeProblem(c, err)
	}
	out := make([]apiKeySummary, len(keys))
	for i, k := range keys {
		out[i] = apiKeySummary{KeyID: k.KeyID, CreatedAt: k.CreatedAt}
	}
	return c.JSON(http.StatusOK, out)
}

// RevokeAPIKey handles DELETE /api/keys.
func (h *Handlers) RevokeAPIKey(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	var req apiKeyDeleteRequest
	if err := bindJSON(c, &req); err != nil {
		return writeProblem(c, err)
	}
	if err := h.Auth.RevokeAPIKey(c.Request().Context(), userID, req.KeyID); err != nil {
		return writeProblem(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
