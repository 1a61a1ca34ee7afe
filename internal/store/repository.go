package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

// SubmissionRepository reads and writes Submission aggregates through the
// transaction handle found in ctx. It never opens its own transaction.
type SubmissionRepository struct{}

func (SubmissionRepository) Get(ctx context.Context, id string) (*Submission, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var sub Submission
	if err := tx.First(&sub, "submission_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("submission '%s' not found", id)
		}
		return nil, apperr.Wrap(apperr.KindSystem, "fetch submission", err)
	}
	return &sub, nil
}

// Create persists a new draft submission. A duplicate (projectId, name)
// pair surfaces as a UserError (spec.md §3: "name unique within
// projectId").
func (SubmissionRepository) Create(ctx context.Context, sub *Submission) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	sub.DateCreated = now
	sub.LastModified = now
	if err := tx.Create(sub).Error; err != nil {
		return apperr.NewUser("a submission named %q already exists in this project", sub.Name)
	}
	return nil
}

// SubmissionFilter narrows List to the query parameters spec.md §6 names
// for GET /submissions.
type SubmissionFilter struct {
	ProjectID         string
	Name              string
	Published         *bool
	DateCreatedStart  *time.Time
	DateCreatedEnd    *time.Time
	DateModifiedStart *time.Time
	DateModifiedEnd   *time.Time
	Page              int
	PerPage           int
}

// List returns the page of submissions matching f and the total matching
// row count (for Link-header pagination), ordered by dateCreated
// descending the way the original listing endpoint sorts.
func (SubmissionRepository) List(ctx context.Context, f SubmissionFilter) ([]Submission, int64, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	q := tx.Model(&Submission{}).Where("project_id = ?", f.ProjectID)
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if f.Published != nil {
		q = q.Where("published = ?", *f.Published)
	}
	if f.DateCreatedStart != nil {
		q = q.Where("date_created >= ?", *f.DateCreatedStart)
	}
	if f.DateCreatedEnd != nil {
		q = q.Where("date_created <= ?", *f.DateCreatedEnd)
	}
	if f.DateModifiedStart != nil {
		q = q.Where("last_modified >= ?", *f.DateModifiedStart)
	}
	if f.DateModifiedEnd != nil {
		q = q.Where("last_modified <= ?", *f.DateModifiedEnd)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindSystem, "count submissions", err)
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	var subs []Submission
	if err := q.Order("date_created desc").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&subs).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindSystem, "list submissions", err)
	}
	return subs, total, nil
}

// Update applies a partial patch to a draft submission. Mutating a
// published submission is rejected (spec.md §3: "published=true is
// terminal; no mutation of content thereafter").
func (SubmissionRepository) Update(ctx context.Context, id string, patch map[string]interface{}) (*Submission, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var sub Submission
	if err := tx.First(&sub, "submission_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("submission '%s' not found", id)
		}
		return nil, apperr.Wrap(apperr.KindSystem, "fetch submission", err)
	}
	if sub.Published {
		return nil, apperr.NewUser("submission '%s' is already published and cannot be modified", id)
	}
	patch["last_modified"] = time.Now()
	if err := tx.Model(&sub).Updates(patch).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "update submission", err)
	}
	return &sub, nil
}

// Delete cascades to the submission's MetadataObjects, Files, and
// Registrations via the FK constraints declared on Submission.
func (SubmissionRepository) Delete(ctx context.Context, id string) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	result := tx.Where("submission_id = ?", id).Delete(&Submission{})
	if result.Error != nil {
		return apperr.Wrap(apperr.KindSystem, "delete submission", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewNotFound("submission '%s' not found", id)
	}
	return nil
}

func (SubmissionRepository) Files(ctx context.Context, submissionID string) ([]File, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var files []File
	if err := tx.Where("submission_id = ?", submissionID).Find(&files).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "fetch files", err)
	}
	return files, nil
}

func (SubmissionRepository) Objects(ctx context.Context, submissionID string) ([]MetadataObject, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var objs []MetadataObject
	if err := tx.Where("submission_id = ?", submissionID).Find(&objs).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "fetch objects", err)
	}
	return objs, nil
}

// MarkPublished flips a submission to published conditionally on it still
// being a draft, implementing the row-level guard spec.md's S7 scenario
// requires (two concurrent publishes: exactly one succeeds).
func (SubmissionRepository) MarkPublished(ctx context.Context, submissionID string) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	result := tx.Model(&Submission{}).
		Where("submission_id = ? AND published = ?", submissionID, false).
		Update("published", true)
	if result.Error != nil {
		return apperr.Wrap(apperr.KindSystem, "mark submission published", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewUser("submission already published")
	}
	return nil
}

// MetadataObjectRepository persists typed documents attached to a
// submission (spec.md §3's MetadataObject).
type MetadataObjectRepository struct{}

func (MetadataObjectRepository) Create(ctx context.Context, obj *MetadataObject) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if err := tx.Create(obj).Error; err != nil {
		return apperr.Wrap(apperr.KindSystem, "persist metadata object", err)
	}
	return nil
}

func (MetadataObjectRepository) Get(ctx context.Context, objectID string) (*MetadataObject, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var obj MetadataObject
	if err := tx.First(&obj, "object_id = ?", objectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("object '%s' not found", objectID)
		}
		return nil, apperr.Wrap(apperr.KindSystem, "fetch metadata object", err)
	}
	return &obj, nil
}

// FileRepository persists data-file metadata attached to a submission.
type FileRepository struct{}

func (FileRepository) Create(ctx context.Context, f *File) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if err := tx.Create(f).Error; err != nil {
		return apperr.Wrap(apperr.KindSystem, "persist file", err)
	}
	return nil
}

func (FileRepository) ListBySubmission(ctx context.Context, submissionID string) ([]File, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var files []File
	if err := tx.Where("submission_id = ?", submissionID).Find(&files).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "list files", err)
	}
	return files, nil
}

// RegistrationRepository persists Registration rows created by the
// publication orchestrator.
type RegistrationRepository struct{}

func (RegistrationRepository) Create(ctx context.Context, reg *Registration) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if err := tx.Create(reg).Error; err != nil {
		return apperr.Wrap(apperr.KindSystem, "persist registration", err)
	}
	return nil
}

func (RegistrationRepository) ListBySubmission(ctx context.Context, submissionID string) ([]Registration, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var regs []Registration
	if err := tx.Where("submission_id = ?", submissionID).Find(&regs).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "fetch registrations", err)
	}
	return regs, nil
}

// ApiKeyRepository persists and looks up hashed API keys.
type ApiKeyRepository struct{}

func (ApiKeyRepository) Create(ctx context.Context, key *ApiKey) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if err := tx.Create(key).Error; err != nil {
		return apperr.NewUser("API key already exists with this key id")
	}
	return nil
}

func (ApiKeyRepository) Get(ctx context.Context, generatedKeyID string) (*ApiKey, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var key ApiKey
	if err := tx.First(&key, "generated_key_id = ?", generatedKeyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindSystem, "fetch api key", err)
	}
	return &key, nil
}

func (ApiKeyRepository) List(ctx context.Context, userID string) ([]ApiKey, error) {
	tx, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	var keys []ApiKey
	if err := tx.Where("user_id = ?", userID).Find(&keys).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindSystem, "list api keys", err)
	}
	return keys, nil
}

func (ApiKeyRepository) Delete(ctx context.Context, userID, keyID string) error {
	tx, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if err := tx.Where("user_id = ? AND key_id = ?", userID, keyID).Delete(&ApiKey{}).Error; err != nil {
		return apperr.Wrap(apperr.KindSystem, "revoke api key", err)
	}
	return nil
}
