package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

// validObjectTypes mirrors the FEGA/BP object-type vocabulary the
// orchestrator's checkWorkflowContent and publishFEGA switch on.
var validObjectTypes = map[string]bool{
	"study": true, "sample": true, "experiment": true, "run": true,
	"analysis": true, "dac": true, "policy": true, "dataset": true,
}

// CreateObject handles POST /objects/{schema}. schema names the metadata
// object type (study, dataset, sample, …); the already-parsed document
// body is persisted as-is (XML parsing/validation is out of scope per
// spec.md's non-goals — a client-side or upstream parser produces this
// payload).
func (h *Handlers) CreateObject(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeProblem(c, err)
	}
	schema := c.Param("schema")
	if !validObjectTypes[schema] {
		return writeProblem(c, apperr.NewValidation("unknown object schema", []apperr.FieldError{
			{Field: "schema", Message: "must be one of study, dataset, sample, experiment, run, analysis, dac, policy"},
		}))
	}

	submissionID := c.QueryParam("submissionId")
	if submissionID == "" {
		return writeProblem(c, apperr.NewUser("submissionId query parameter is required"))
	}
	sub, err := h.Submissions.Get(c.Request().Context(), submissionID)
	if err != nil {
		return writeProblem(c, err)
	}
	if err := h.authorizeProject(c, userID, sub.ProjectID); err != nil {
		return writeProblem(c, err)
	}
	if sub.Published {
		return writeProblem(c, apperr.NewUser("submission '%s' is already published and cannot be modified", submissionID))
	}

	var req createObjectRequest
	if err := bindJSON(c, &req); err != nil {
		return writeProblem(c, err)
	}
	if req.Document == nil {
		return writeProblem(c, apperr.NewValidation("document body is required", []apperr.FieldError{
			{Field: "document", Message: "required", Pointer: "/document"},
		}))
	}

	obj := &store.MetadataObject{
		ObjectID:     uuid.NewString(),
		SubmissionID: submissionID,
		ObjectType:   schema,
		Title:        req.Title,
		Description:  req.Description,
		Document:     req.Document,
	}
	if err := h.Objects.Create(c.Request().Context(), obj); err != nil {
		return writeProblem(c, err)
	}
	return c.JSON(http.StatusCreated, objectResponse{
		ObjectID:     obj.ObjectID,
		SubmissionID: obj.SubmissionID,
		ObjectType:   obj.ObjectType,
	})
}

// validateRequest is the POST /validate payload: a raw XML document and
// the schema it should validate against.
type validateRequest struct {
	Schema  string `json:"schema"`
	Content string `json:"content"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// ValidateDocument handles POST /validate, XML-schema validation only
// (spec.md's non-goal excludes a full XML parsing/validation engine from
// the core; this delegates structural well-formedness checks, surfacing
// per-location failures the way the original's XMLValidator does).
func (h *Handlers) ValidateDocument(c echo.Context) error {
	var req validateRequest
	if err := bindJSON(c, &req); err != nil {
		return writeProblem(c, err)
	}
	if !validObjectTypes[req.Schema] {
		return writeProblem(c, apperr.NewValidation("unknown schema", []apperr.FieldError{
			{Reason: "unknown schema", Position: "0:0", Pointer: "/schema"},
		}))
	}
	if err := validateWellFormed(req.Content); err != nil {
		return writeProblem(c, apperr.NewValidation("document is not well-formed", []apperr.FieldError{
			{Reason: err.Error(), Position: "0:0", Pointer: "/content"},
		}))
	}
	return c.JSON(http.StatusOK, validateResponse{Valid: true})
}
