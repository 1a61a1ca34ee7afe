package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/authsvc"
	"github.com/CSCfi/metadata-submitter-sub002/internal/middleware"
)

// writeProblem renders err as an RFC 7807 problem-details response,
// mirroring internal/middleware's own writeProblem so a handler's direct
// return and the Session middleware's rollback path render identically.
func writeProblem(c echo.Context, err error) error {
	problem := apperr.ToProblem(err, c.Request().URL.Path)
	return c.JSON(problem.Status, problem)
}

// currentUser fetches the authenticated caller's id the Auth middleware
// attached to the request context, 401ing if somehow absent.
func currentUser(c echo.Context) (string, error) {
	user, ok := middleware.UserFromContext(c.Request().Context())
	if !ok {
		return "", apperr.NewUnauthorized("missing authenticated user")
	}
	return user.UserID, nil
}

// currentAuthUser is currentUser's richer counterpart, returning the
// resolved user name alongside the id.
func currentAuthUser(c echo.Context) (*authsvc.User, error) {
	user, ok := middleware.UserFromContext(c.Request().Context())
	if !ok {
		return nil, apperr.NewUnauthorized("missing authenticated user")
	}
	return user, nil
}

// bindJSON decodes the request body into out, rendering a validation
// problem on malformed JSON instead of a generic 500.
func bindJSON(c echo.Context, out interface{}) error {
	if err := c.Bind(out); err != nil {
		return apperr.NewValidation("request payload is malformed", []apperr.FieldError{
			{Message: err.Error()},
		})
	}
	return nil
}

// parsePageParams reads page/per_page query parameters, defaulting to
// page 1 / 10 per page the way SubmissionRepository.List does.
func parsePageParams(c echo.Context) (page, perPage int, err error) {
	page, perPage = 1, 10
	if v := c.QueryParam("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, apperr.NewUser("page must be a positive integer")
		}
	}
	if v := c.QueryParam("per_page"); v != "" {
		perPage, err = strconv.Atoi(v)
		if err != nil || perPage < 1 {
			return 0, 0, apperr.NewUser("per_page must be a positive integer")
		}
	}
	return page, perPage, nil
}

func parseOptionalBool(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.NewUser("%s must be a boolean", name)
	}
	return &b, nil
}

func parseOptionalTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.NewUser("%s must be an RFC3339 timestamp", name)
	}
	return &t, nil
}

// setPaginationLinks writes a Link header with first/prev/next/last
// relations the way the original listing endpoint does, letting clients
// page without recomputing offsets themselves.
func setPaginationLinks(c echo.Context, page, perPage int, total int64) {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	base := c.Request().URL
	q := base.Query()

	linkFor := func(p int) string {
		q.Set("page", strconv.Itoa(p))
		q.Set("per_page", strconv.Itoa(perPage))
		u := *base
		u.RawQuery = q.Encode()
		return u.String()
	}

	var links []string
	links = append(links, fmt.Sprintf(`<%s>; rel="first"`, linkFor(1)))
	if page > 1 {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, linkFor(page-1)))
	}
	if page < lastPage {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, linkFor(page+1)))
	}
	links = append(links, fmt.Sprintf(`<%s>; rel="last"`, linkFor(lastPage)))

	c.Response().Header().Set("Link", strings.Join(links, ", "))
	c.Response().Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
}

func projectIDParam(c echo.Context) (string, error) {
	projectID := c.QueryParam("projectId")
	if projectID == "" {
		return "", apperr.NewUser("projectId query parameter is required")
	}
	return projectID, nil
}

const statusNoContent = http.StatusNoContent
