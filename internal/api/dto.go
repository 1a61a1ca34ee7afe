// Package api implements the thin CRUD/API surface spec.md §6 names,
// wired on top of the core the rest of internal/ implements. Per spec.md
// §1's explicit scope boundary ("Thin CRUD handlers... are out of
// scope" of the core), this layer is deliberately shallow: payload
// shaping, authorization checks, and delegation to the repositories,
// orchestrator, and integrations.
package api

import (
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

// createSubmissionRequest is the POST /submissions payload.
type createSubmissionRequest struct {
	ProjectID   string                 `json:"projectId"`
	Name        string                 `json:"name"`
	Workflow    store.Workflow         `json:"workflow"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Bucket      string                 `json:"bucket,omitempty"`
	Metadata    store.DataciteMetadata `json:"metadata"`
	Rems        *store.RemsSpec        `json:"rems,omitempty"`
}

type submissionResponse struct {
	SubmissionID string                 `json:"submissionId"`
	ProjectID    string                 `json:"projectId"`
	Workflow     store.Workflow         `json:"workflow"`
	Name         string                 `json:"name"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	DateCreated  time.Time              `json:"dateCreated"`
	LastModified time.Time              `json:"lastModified"`
	Published    bool                   `json:"published"`
	Bucket       *string                `json:"bucket,omitempty"`
	Metadata     store.DataciteMetadata `json:"metadata"`
	Rems         *store.RemsSpec        `json:"rems,omitempty"`
}

func toSubmissionResponse(s *store.Submission) submissionResponse {
	return submissionResponse{
		SubmissionID: s.SubmissionID,
		ProjectID:    s.ProjectID,
		Workflow:     s.Workflow,
		Name:         s.Name,
		Title:        s.Title,
		Description:  s.Description,
		DateCreated:  s.DateCreated,
		LastModified: s.LastModified,
		Published:    s.Published,
		Bucket:       s.Bucket,
		Metadata:     s.Metadata,
		Rems:         s.Rems,
	}
}

// registrationResponse mirrors store.Registration for the
// GET /submissions/{id}/registrations response.
type registrationResponse struct {
	ObjectID        *string   `json:"objectId,omitempty"`
	ObjectType      *string   `json:"objectType,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DOI             string    `json:"doi,omitempty"`
	MetaxID         *string   `json:"metaxId,omitempty"`
	DataciteURL     *string   `json:"dataciteUrl,omitempty"`
	RemsURL         *string   `json:"remsUrl,omitempty"`
	RemsResourceID  *int      `json:"remsResourceId,omitempty"`
	RemsCatalogueID *int      `json:"remsCatalogueId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toRegistrationResponse(r store.Registration) registrationResponse {
	return registrationResponse{
		ObjectID:        r.ObjectID,
		ObjectType:      r.ObjectType,
		Title:           r.Title,
		Description:     r.Description,
		DOI:             r.DOI,
		MetaxID:         r.MetaxID,
		DataciteURL:     r.DataciteURL,
		RemsURL:         r.RemsURL,
		RemsResourceID:  r.RemsResourceID,
		RemsCatalogueID: r.RemsCatalogueID,
		CreatedAt:       r.CreatedAt,
	}
}

// createObjectRequest is the POST /objects/{schema} JSON payload. XML
// submission (the original's parallel XML endpoints) is out of scope per
// spec.md's "XML parsing/validation per se" non-goal: this backend
// accepts the already-parsed document a client-side or upstream XML
// parser produced.
type createObjectRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Document    map[string]interface{} `json:"document"`
}

type objectResponse struct {
	ObjectID     string `json:"objectId"`
	SubmissionID string `json:"submissionId"`
	ObjectType   string `json:"objectType"`
}

type apiKeyCreateRequest struct {
	KeyID string `json:"keyId"`
}

type apiKeySummary struct {
	KeyID     string    `json:"keyId"`
	CreatedAt time.Time `json:"createdAt"`
}

type apiKeyDeleteRequest struct {
	KeyID string `json:"keyId"`
}

type publishResponse struct {
	SubmissionID string `json:"submissionId"`
}

type userResponse struct {
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Projects []string `json:"projects"`
}
