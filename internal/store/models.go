// Package store defines the relational persistence layer: GORM models for
// spec.md §3's entities, a Postgres connection helper grounded on the
// teacher's db/postgres.go, and the request-scoped transaction slot that
// backs the Session middleware (spec.md §4.7).
package store

import "time"

// Workflow is the publication variant a Submission follows.
type Workflow string

const (
	WorkflowSD   Workflow = "SD"
	WorkflowFEGA Workflow = "FEGA"
	WorkflowBP   Workflow = "BP"
)

// FileStatus tracks a File's position in the ingest pipeline.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileVerified FileStatus = "verified"
	FileReady    FileStatus = "ready"
	FileIngested FileStatus = "ingested"
	FileReleased FileStatus = "released"
)

// Submission is the user-owned aggregate of metadata and files awaiting
// publication (spec.md §3).
type Submission struct {
	SubmissionID string `gorm:"primaryKey;type:uuid"`
	ProjectID    string `gorm:"index;not null;index:idx_submission_project_name,unique"`
	Workflow     Workflow
	Name         string `gorm:"index:idx_submission_project_name,unique"`
	Title        string
	Description  string
	DateCreated  time.Time
	LastModified time.Time
	Published    bool `gorm:"not null;default:false"`
	Bucket       *string

	Metadata DataciteMetadata `gorm:"serializer:json"`
	Rems     *RemsSpec        `gorm:"serializer:json"`

	MetadataObjects []MetadataObject `gorm:"constraint:OnDelete:CASCADE"`
	Files           []File           `gorm:"constraint:OnDelete:CASCADE"`
	Registrations   []Registration   `gorm:"constraint:OnDelete:CASCADE"`
}

// MetadataObject is a typed document inside a submission (study, dataset,
// sample, experiment, run, analysis, dac, policy, …).
type MetadataObject struct {
	ObjectID     string `gorm:"primaryKey;type:uuid"`
	SubmissionID string `gorm:"index;not null"`
	ObjectType   string
	Title        *string
	Description  *string
	Document     map[string]interface{} `gorm:"serializer:json"`
}

// File belongs to a submission and optionally to one object.
type File struct {
	FileID       string `gorm:"primaryKey;type:uuid"`
	SubmissionID string `gorm:"index;not null"`
	ObjectID     *string
	Path         string
	Bytes        int64
	Checksums    map[string]string `gorm:"serializer:json"`
	Status       FileStatus
}

// Registration is the persisted record of identifiers minted for a
// published submission or object. Created only by the orchestrator.
type Registration struct {
	ID             uint `gorm:"primaryKey;autoIncrement"`
	SubmissionID   string `gorm:"index;not null"`
	ObjectID       *string
	ObjectType     *string
	Title          string
	Description    string
	DOI            string
	MetaxID        *string
	DataciteURL    *string
	RemsURL        *string
	RemsResourceID *int
	RemsCatalogueID *int
	CreatedAt      time.Time
}

// ApiKey stores a hashed per-user API key. The plaintext secret is never
// persisted (spec.md §4.6 / §3 invariant).
type ApiKey struct {
	GeneratedKeyID string `gorm:"primaryKey"`
	KeyID          string `gorm:"uniqueIndex:idx_apikey_user_keyid"`
	UserID         string `gorm:"uniqueIndex:idx_apikey_user_keyid;index"`
	Salt           string
	HashedSecret   string
	CreatedAt      time.Time
}

// RemsSpec references an access-control resource in REMS that a
// submission intends to gain an entitlement workflow for.
type RemsSpec struct {
	OrganizationID string   `json:"organizationId"`
	WorkflowID     int      `json:"workflowId"`
	LicenseIDs     []int    `json:"licenseIds"`
}

// DataciteMetadata is the strict DataCite 4.5-subset document a
// submission carries. Unknown fields are rejected by validation in the
// CRUD layer (out of this package's scope); this struct enumerates the
// fields the core (mapper + orchestrator) actually reads.
type DataciteMetadata struct {
	Creators           []Actor             `json:"creators,omitempty"`
	Publisher          *Publisher          `json:"publisher,omitempty"`
	Contributors       []Actor             `json:"contributors,omitempty"`
	Subjects           []Subject           `json:"subjects,omitempty"`
	Dates              []DateInfo          `json:"dates,omitempty"`
	GeoLocations       []GeoLocation       `json:"geoLocations,omitempty"`
	FundingReferences  []FundingReference  `json:"fundingReferences,omitempty"`
	Descriptions       []Description       `json:"descriptions,omitempty"`
	Titles             []Title             `json:"titles,omitempty"`
	Language           string              `json:"language,omitempty"`
	AlternateIdentifiers []AlternateIdentifier `json:"alternateIdentifiers,omitempty"`
}

type Actor struct {
	Name            string        `json:"name"`
	GivenName       string        `json:"givenName,omitempty"`
	FamilyName      string        `json:"familyName,omitempty"`
	Affiliation     []Affiliation `json:"affiliation,omitempty"`
	ContributorType string        `json:"contributorType,omitempty"`
}

type Affiliation struct {
	Name string `json:"name"`
}

type Publisher struct {
	Name string `json:"name"`
}

type Subject struct {
	Subject     string `json:"subject"`
	SchemeURI   string `json:"schemeUri,omitempty"`
	ValueURI    string `json:"valueUri,omitempty"`
	Classification string `json:"classificationCode,omitempty"`
}

type DateInfo struct {
	Date     string `json:"date"`
	DateType string `json:"dateType"`
}

type GeoLocation struct {
	GeoLocationPlace   string              `json:"geoLocationPlace,omitempty"`
	GeoLocationPoint   *GeoPoint           `json:"geoLocationPoint,omitempty"`
	GeoLocationBox     *GeoBox             `json:"geoLocationBox,omitempty"`
	GeoLocationPolygon []GeoPolygonEntry   `json:"geoLocationPolygon,omitempty"`
}

type GeoPoint struct {
	PointLongitude float64 `json:"pointLongitude"`
	PointLatitude  float64 `json:"pointLatitude"`
}

type GeoBox struct {
	WestBoundLongitude float64 `json:"westBoundLongitude"`
	EastBoundLongitude float64 `json:"eastBoundLongitude"`
	SouthBoundLatitude float64 `json:"southBoundLatitude"`
	NorthBoundLatitude float64 `json:"northBoundLatitude"`
}

type GeoPolygonEntry struct {
	PolygonPoints []GeoPoint `json:"polygonPoints,omitempty"`
	InPolygonPoint *GeoPoint `json:"inPolygonPoint,omitempty"`
}

type FundingReference struct {
	FunderName string `json:"funderName"`
	AwardURI   string `json:"awardUri,omitempty"`
	AwardTitle string `json:"awardTitle,omitempty"`
}

type Description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"descriptionType,omitempty"`
}

type Title struct {
	Title string `json:"title"`
}

type AlternateIdentifier struct {
	AlternateIdentifier     string `json:"alternateIdentifier"`
	AlternateIdentifierType string `json:"alternateIdentifierType"`
}
