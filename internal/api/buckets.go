package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

// ListBuckets handles GET /buckets?projectId=…, delegating to the admin
// API for the project-scoped bucket list (spec.md §2's AdminClient).
func (h *Handlers) ListBuckets(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	projectID, err := projectIDParam(c)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, projectID); err != nil {
		return writeProblem(c, err)
	}

	buckets, err := h.Admin.ListBuckets(c.Request().Context(), projectID)
	if err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusOK, buckets)
}

// ListBucketFiles handles GET /buckets/{name}/files?projectId=…: 400 if
// the caller's project has no read policy on the bucket yet, 404 if the
// bucket is empty once the listing itself succeeds.
func (h *Handlers) ListBucketFiles(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	projectID, err := projectIDParam(c)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, projectID); err != nil {
		return writeProblem(c, err)
	}
	bucket := c.Param("name")

	hasPolicy, err := h.Admin.HasBucketPolicy(c.Request().Context(), bucket, projectID)
	if err != nil {
		return writeProblem(c, err)
	}
	if !hasPolicy {
		return writeProblem(c, apperr.NewUser("no read policy granted for bucket '%s'", bucket))
	}

	files, err := h.FileProvider.ListFiles(c.Request().Context(), bucket)
	if err != nil {
		return writeProblem(c, err)
	}
	if len(files) == 0 {
		return writeProblem(c, apperr.NewNotFound("bucket '%s' has no files", bucket))
	}
	return c.JSON(http.StatusOK, files)
}

// GrantBucketReadPolicy handles PUT /buckets/{name}.
func (h *Handlers) GrantBucketReadPolicy(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	projectID, err := projectIDParam(c)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, projectID); err != nil {
		return writeProblem(c, err)
	}
	bucket := c.Param("name")
	if err := h.Admin.CreateBucketPolicy(c.Request().Context(), bucket, projectID); err != nil {
		return writeProblem(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// BucketPolicyStatus handles HEAD /buckets/{name}.
func (h *Handlers) BucketPolicyStatus(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	projectID, err := projectIDParam(c)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, projectID); err != nil {
		return writeProblem(c, err)
	}
	bucket := c.Param("name")
	hasPolicy, err := h.Admin.HasBucketPolicy(c.Request().Context(), bucket, projectID)
	if err != nil {
		return writeProblem(c, err)
	}
	if !hasPolicy {
		return writeProblem(c, apperr.NewUser("no read policy granted for bucket '%s'", bucket))
	}
	return c.NoContent(http.StatusOK)
}
