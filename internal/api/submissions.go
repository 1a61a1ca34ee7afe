package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

// authorizeProject rejects the request unless userID is affiliated with
// projectID, per spec.md §4.8's project-membership authorization check.
func (h *Handlers) authorizeProject(c echo.Context, userID, projectID string) error {
	member, err := h.Projects.IsMember(c.Request().Context(), userID, projectID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.NewForbidden("not a member of project " + projectID)
	}
	return nil
}

// CreateSubmission handles POST /submissions.
func (h *Handlers) CreateSubmission(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	var req createSubmissionRequest
	if err := bindJSON(c, &req); err != nil {
		return writeProblem(c, err)
	}
	if req.ProjectID == "" || req.Name == "" || req.Workflow == "" {
		return writeProblem(c, apperr.NewValidation("projectId, name, and workflow are required", []apperr.FieldError{
			{Field: "name", Message: "required"},
		}))
	}
	if err := h.authorizeProject(c, userID, req.ProjectID); err != nil {
		return writeProblem(c, err)
	}

	sub := &store.Submission{
		SubmissionID: uuid.NewString(),
		ProjectID:    req.ProjectID,
		Workflow:     req.Workflow,
		Name:         req.Name,
		Title:        req.Title,
		Description:  req.Description,
		Metadata:     req.Metadata,
		Rems:         req.Rems,
	}
	if req.Bucket != "" {
		sub.Bucket = &req.Bucket
	}
	if err := h.Submissions.Create(c.Request().Context(), sub); err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusCreated, toSubmissionResponse(sub))
}

// ListSubmissions handles GET /submissions.
func (h *Handlers) ListSubmissions(c echo.Context) error {
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

	page, perPage, err := parsePageParams(c)
	if err != nil {
		return writeProblem(c, err)
	}
	published, err := parseOptionalBool(c, "published")
	if err != nil {
		return writeProblem(c, err)
	}
	dateCreatedStart, err := parseOptionalTime(c, "date_created_start")
	if err != nil {
		return writeProblem(c, err)
	}
	dateCreatedEnd, err := parseOptionalTime(c, "date_created_end")
	if err != nil {
		return writeProblem(c, err)
	}
	dateModifiedStart, err := parseOptionalTime(c, "date_modified_start")
	if err != nil {
		return writeProblem(c, err)
	}
	dateModifiedEnd, err := parseOptionalTime(c, "date_modified_end")
	if err != nil {
		return writeProblem(c, err)
	}

	filter := store.SubmissionFilter{
		ProjectID:         projectID,
		Name:              c.QueryParam("name"),
		Published:         published,
		DateCreatedStart:  dateCreatedStart,
		DateCreatedEnd:    dateCreatedEnd,
		DateModifiedStart: dateModifiedStart,
		DateModifiedEnd:   dateModifiedEnd,
		Page:              page,
		PerPage:           perPage,
	}
	subs, total, err := h.Submissions.List(c.Request().Context(), filter)
	if err != nil {
		return writeProblem(c, err)
	}
	setPaginationLinks(c, page, perPage, total)

	out := make([]submissionResponse, len(subs))
	for i := range subs {
		out[i] = toSubmissionResponse(&subs[i])
	}
	return c.JSON(http.StatusOK, out)
}

// GetSubmission handles GET /submissions/{id}.
func (h *Handlers) GetSubmission(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	sub, err := h.Submissions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, sub.ProjectID); err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusOK, toSubmissionResponse(sub))
}

// updateSubmissionRequest carries the mutable subset of a Submission.
type updateSubmissionRequest struct {
	Title       *string                 `json:"title,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Bucket      *string                 `json:"bucket,omitempty"`
	Metadata    *store.DataciteMetadata `json:"metadata,omitempty"`
	Rems        *store.RemsSpec         `json:"rems,omitempty"`
}

// UpdateSubmission handles PATCH /submissions/{id}.
func (h *Handlers) UpdateSubmission(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	id := c.Param("id")
	existing, err := h.Submissions.Get(c.Request().Context(), id)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, existing.ProjectID); err != nil {
		return writeProblem(c, err)
	}

	var req updateSubmissionRequest
	if err := bindJSON(c, &req); err != nil {
		return writeProblem(c, err)
	}

	patch := map[string]interface{}{}
	if req.Title != nil {
		patch["title"] = *req.Title
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Bucket != nil {
		patch["bucket"] = *req.Bucket
	}
	if req.Metadata != nil {
		patch["metadata"] = *req.Metadata
	}
	if req.Rems != nil {
		patch["rems"] = req.Rems
	}

	updated, err := h.Submissions.Update(c.Request().Context(), id, patch)
	if err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusOK, toSubmissionResponse(updated))
}

// DeleteSubmission handles DELETE /submissions/{id}.
func (h *Handlers) DeleteSubmission(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	id := c.Param("id")
	existing, err := h.Submissions.Get(c.Request().Context(), id)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, existing.ProjectID); err != nil {
		return writeProblem(c, err)
	}
	if err := h.Submissions.Delete(c.Request().Context(), id); err != nil {
		return writeProblem(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PublishSubmission handles PATCH /publish/{id}, running the orchestrator
// and rendering the first persisted registration's submissionId per
// spec.md §6.
func (h *Handlers) PublishSubmission(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	id := c.Param("id")
	projects, err := h.Projects.Projects(c.Request().Context(), userID)
	if err != nil {
		return writeProblem(c, err)
	}
	if _, err := h.Orchestrator.Publish(c.Request().Context(), id, projects); err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusOK, publishResponse{SubmissionID: id})
}

// ListRegistrations handles GET /submissions/{id}/registrations.
func (h *Handlers) ListRegistrations(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	id := c.Param("id")
	sub, err := h.Submissions.Get(c.Request().Context(), id)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, sub.ProjectID); err != nil {
		return writeProblem(c, err)
	}

	regs, err := h.Registrations.ListBySubmission(c.Request().Context(), id)
	if err != nil {
		return writeProblem(c, err)
	}
	out := make([]registrationResponse, len(regs))
	for i, r := range regs {
		out[i] = toRegistrationResponse(r)
	}
	return c.JSON(http.StatusOK, out)
}
