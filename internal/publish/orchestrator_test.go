package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
	"github.com/CSCfi/metadata-submitter-sub002/internal/fileprovider"
	"github.com/CSCfi/metadata-submitter-sub002/internal/metaxmapper"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

type fakeSubmissionRepo struct {
	sub       *store.Submission
	objects   []store.MetadataObject
	dbFiles   []store.File
	published bool
}

func (f *fakeSubmissionRepo) Get(ctx context.Context, id string) (*store.Submission, error) {
	return f.sub, nil
}
func (f *fakeSubmissionRepo) Objects(ctx context.Context, submissionID string) ([]store.MetadataObject, error) {
	return f.objects, nil
}
func (f *fakeSubmissionRepo) Files(ctx context.Context, submissionID string) ([]store.File, error) {
	return f.dbFiles, nil
}
func (f *fakeSubmissionRepo) MarkPublished(ctx context.Context, submissionID string) error {
	if f.published {
		return apperr.NewUser("already published")
	}
	f.published = true
	return nil
}

type fakeRegistrationRepo struct {
	created []store.Registration
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *store.Registration) error {
	f.created = append(f.created, *reg)
	return nil
}

type fakeFiles struct{ files []fileprovider.File }

func (f *fakeFiles) ListFiles(ctx context.Context, bucket string) ([]fileprovider.File, error) {
	return f.files, nil
}

type fakeMetax struct {
	draftID     string
	published   bool
	description string
}

func (f *fakeMetax) CreateDraftDataset(ctx context.Context, doi, title, description string) (string, error) {
	return f.draftID, nil
}
func (f *fakeMetax) GetDataset(ctx context.Context, metaxID string) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}
func (f *fakeMetax) Patch(ctx context.Context, metaxID string, partial map[string]interface{}) error {
	return nil
}
func (f *fakeMetax) UpdateDescription(ctx context.Context, metaxID, description string) error {
	f.description = description
	return nil
}
func (f *fakeMetax) Publish(ctx context.Context, metaxID, doi string) (map[string]interface{}, error) {
	f.published = true
	return map[string]interface{}{}, nil
}

type fakeRems struct {
	resourceID  int
	catalogueID int
}

func (f *fakeRems) CreateResource(ctx context.Context, orgID string, workflowID int, licenseIDs []int, doi string) (int, error) {
	return f.resourceID, nil
}
func (f *fakeRems) CreateCatalogueItem(ctx context.Context, orgID string, workflowID, resourceID int, title, discoveryURL string) (int, error) {
	return f.catalogueID, nil
}
func (f *fakeRems) GetDiscoveryURL(id string) string      { return "https://metax.example/" + id }
func (f *fakeRems) GetApplicationURL(catalogueID int) string { return "https://rems.example/application?items=1" }

type fakeDoi struct {
	doi string
}

func (f *fakeDoi) CreateDraftDoi(ctx context.Context) (string, error) { return f.doi, nil }
func (f *fakeDoi) Publish(ctx context.Context, doi string, metadata map[string]interface{}, discoveryURL string, requireFieldOfScience, publish bool) error {
	return nil
}
func (f *fakeDoi) Get(ctx context.Context, doi string) (string, error) { return "", nil }
func (f *fakeDoi) Delete(ctx context.Context, doi string) error        { return nil }

type stubRor struct{}

func (stubRor) IsRorOrganisation(ctx context.Context, organisation string) (string, error) {
	return organisation, nil
}

func buildSDOrchestrator(t *testing.T, sub *store.Submission) (*Orchestrator, *fakeRegistrationRepo, *fakeMetax, *fakeRems) {
	t.Helper()
	ref, err := metaxmapper.Load()
	require.NoError(t, err)
	mapper := metaxmapper.NewWithClock(stubRor{}, ref, func() time.Time { return time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC) })

	regRepo := &fakeRegistrationRepo{}
	metax := &fakeMetax{draftID: "M"}
	rems := &fakeRems{resourceID: 1, catalogueID: 1}
	o := &Orchestrator{
		Submissions:   &fakeSubmissionRepo{sub: sub, objects: nil},
		Registrations: regRepo,
		Files:         &fakeFiles{files: []fileprovider.File{{Path: "p", Bytes: 1}}},
		Metax:         metax,
		Rems:          rems,
		Pid:           &fakeDoi{doi: "10.80869/sd-X"},
		Datacite:      &fakeDoi{doi: "10.80869/bp-X"},
		Mapper:        mapper,
	}
	return o, regRepo, metax, rems
}

func sdSubmission(bucket *string, published bool) *store.Submission {
	return &store.Submission{
		SubmissionID: "sub-1",
		ProjectID:    "proj-1",
		Workflow:     store.WorkflowSD,
		Title:        "T",
		Description:  "D",
		Published:    published,
		Bucket:       bucket,
		Metadata: store.DataciteMetadata{
			Creators:  []store.Actor{{Name: "A", Affiliation: []store.Affiliation{{Name: "Academy of Medicine"}}}},
			Publisher: &store.Publisher{Name: "Attogen Biomedical Research"},
			Subjects:  []store.Subject{{Subject: "111 - Mathematics"}},
		},
		Rems: &store.RemsSpec{OrganizationID: "1", WorkflowID: 1, LicenseIDs: []int{1}},
	}
}

func TestPublishSDHappyPath(t *testing.T) {
	bucket := "b"
	sub := sdSubmission(&bucket, false)
	o, regRepo, metax, _ := buildSDOrchestrator(t, sub)

	regs, err := o.Publish(context.Background(), "sub-1", []string{"proj-1"})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "10.80869/sd-X", regs[0].DOI)
	require.NotNil(t, regs[0].MetaxID)
	assert.Equal(t, "M", *regs[0].MetaxID)
	require.NotNil(t, regs[0].RemsResourceID)
	assert.Equal(t, 1, *regs[0].RemsResourceID)
	assert.True(t, metax.published)
	assert.Contains(t, metax.description, "SD Apply Application link:")
	require.Len(t, regRepo.created, 1)
}

func TestPublishSDMissingBucket(t *testing.T) {
	sub := sdSubmission(nil, false)
	o, _, _, _ := buildSDOrchestrator(t, sub)

	_, err := o.Publish(context.Background(), "sub-1", []string{"proj-1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUser))
}

func TestPublishSDMissingSubjectsIsUserError(t *testing.T) {
	bucket := "b"
	sub := sdSubmission(&bucket, false)
	sub.Metadata.Subjects = nil
	o, _, _, _ := buildSDOrchestrator(t, sub)

	_, err := o.Publish(context.Background(), "sub-1", []string{"proj-1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUser))
}

func TestPublishAlreadyPublishedIsUserError(t *testing.T) {
	bucket := "b"
	sub := sdSubmission(&bucket, true)
	o, _, _, _ := buildSDOrchestrator(t, sub)

	_, err := o.Publish(context.Background(), "sub-1", []string{"proj-1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUser))
}

func TestPublishUnauthorizedProjectIsForbidden(t *testing.T) {
	bucket := "b"
	sub := sdSubmission(&bucket, false)
	o, _, _, _ := buildSDOrchestrator(t, sub)

	_, err := o.Publish(context.Background(), "sub-1", []string{"other-project"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestPublishNoFilesIsUserError(t *testing.T) {
	bucket := "b"
	sub := sdSubmission(&bucket, false)
	o, _, _, _ := buildSDOrchestrator(t, sub)
	o.Files = &fakeFiles{files: nil}

	_, err := o.Publish(context.Background(), "sub-1", []string{"proj-1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUser))
}

func bpSubmission(bucket *string) *store.Submission {
	return &store.Submission{
		SubmissionID: "sub-2",
		ProjectID:    "proj-1",
		Workflow:     store.WorkflowBP,
		Title:        "T",
		Description:  "D",
		Bucket:       bucket,
	}
}

func buildBPOrchestrator(t *testing.T, sub *store.Submission, objects []store.MetadataObject, dbFiles []store.File) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		Submissions:   &fakeSubmissionRepo{sub: sub, objects: objects, dbFiles: dbFiles},
		Registrations: &fakeRegistrationRepo{},
		Files:         &fakeFiles{files: []fileprovider.File{{Path: "p", Bytes: 1}}},
		Rems:          &fakeRems{resourceID: 1, catalogueID: 1},
		Datacite:      &fakeDoi{doi: "10.80869/bp-X"},
	}
}

func TestPublishBPRequiresDatasetObject(t *testing.T) {
	bucket := "b"
	sub := bpSubmission(&bucket)
	o := buildBPOrchestrator(t, sub, nil, nil)

	_, err := o.Publish(context.Background(), "sub-2", []string{"proj-1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUser))
}

func TestPublishBPRequiresFileAttachedToDataset(t *testing.T) {
	bucket := "b"
	sub := bpSubmission(&bucket)
	objects := []store.MetadataObject{{ObjectID: "obj-1", SubmissionID: "sub-2", ObjectType: "dataset"}}
	o := buildBPOrchestrator(t, sub, objects, nil)

	_, err := o.Publish(context.Background(), "sub-2", []string{"proj-1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUser))
}

func TestPublishBPHappyPathWithAttachedFile(t *testing.T) {
	bucket := "b"
	sub := bpSubmission(&bucket)
	objects := []store.MetadataObject{{ObjectID: "obj-1", SubmissionID: "sub-2", ObjectType: "dataset"}}
	objectID := "obj-1"
	dbFiles := []store.File{{FileID: "file-1", SubmissionID: "sub-2", ObjectID: &objectID, Path: "p", Bytes: 1}}
	o := buildBPOrchestrator(t, sub, objects, dbFiles)

	regs, err := o.Publish(context.Background(), "sub-2", []string{"proj-1"})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "10.80869/bp-X", regs[0].DOI)
}
