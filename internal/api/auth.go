package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/oidcauth"
)

const accessTokenCookie = "access_token"

// Login handles GET /login: begins the OIDC authorization-code+PKCE flow
// and 303-redirects the browser to the identity provider.
func (h *Handlers) Login(c echo.Context) error {
	if h.OIDC == nil {
		return writeProblem(c, apperr.New(apperr.KindConfig, "OIDC is not configured"))
	}
	authURL, session, err := h.OIDC.BeginLogin()
	if err != nil {
		return writeProblem(c, err)
	}
	h.oidcSessions.Set(session.State, session, oidcSessionTTLSeconds)
	return c.Redirect(http.StatusSeeOther, authURL)
}

// Callback handles GET /callback?state&code: validates state, exchanges
// the code, fetches userinfo, mints the application JWT, and sets it as
// the access_token cookie per spec.md §6.
func (h *Handlers) Callback(c echo.Context) error {
	if h.OIDC == nil {
		return writeProblem(c, apperr.New(apperr.KindConfig, "OIDC is not configured"))
	}
	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return writeProblem(c, apperr.NewUnauthorized("missing state or code"))
	}

	raw, ok := h.oidcSessions.Get(state)
	if !ok {
		return writeProblem(c, apperr.NewUnauthorized("unknown or expired login session"))
	}
	session := raw.(*oidcauth.AuthSession)

	ctx := c.Request().Context()
	_, token, err := h.OIDC.Finalize(ctx, session, state, code)
	if err != nil {
		return writeProblem(c, err)
	}
	claims, err := h.OIDC.UserInfo(ctx, session, token)
	if err != nil {
		return writeProblem(c, err)
	}

	jwtToken, err := h.Auth.GenerateToken(claims.ResolveUserID(), claims.ResolveUserName())
	if err != nil {
		return writeProblem(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     accessTokenCookie,
		Value:    jwtToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.OIDCSecureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int((7 * 24 * 60 * 60)),
	})
	return c.Redirect(http.StatusSeeOther, h.BaseURL+"/home")
}

// Logout handles GET /logout: clears the access_token cookie and
// redirects to the site root.
func (h *Handlers) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.OIDCSecureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	return c.Redirect(http.StatusSeeOther, h.BaseURL+"/")
}

// GetAuthorizedUser handles GET /users: the authenticated caller's
// identity plus the project memberships resolved via LDAP.
func (h *Handlers) GetAuthorizedUser(c echo.Context) error {
	user, err := currentAuthUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	projects, err := h.Projects.Projects(c.Request().Context(), user.UserID)
	if err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusOK, userResponse{
		UserID:   user.UserID,
		UserName: user.UserName,
		Projects: projects,
	})
}
