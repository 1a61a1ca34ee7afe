package fileprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	listObjectsPages [][]s3.ListObjectsV2Output
	headBucketErr    error
	putPolicyErr     error
	getPolicyErr     error
	listCall         int
}

func (m *mockS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.headBucketErr != nil {
		return nil, m.headBucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *mockS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return &s3.ListBucketsOutput{Buckets: []types.Bucket{
		{Name: aws.String("alpha")},
		{Name: aws.String("beta")},
	}}, nil
}

func (m *mockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.listCall >= len(m.listObjectsPages) {
		return &s3.ListObjectsV2Output{}, nil
	}
	page := m.listObjectsPages[m.listCall]
	m.listCall++
	return &page[0], nil
}

func (m *mockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3) PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	if m.putPolicyErr != nil {
		return nil, m.putPolicyErr
	}
	return &s3.PutBucketPolicyOutput{}, nil
}

func (m *mockS3) GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if m.getPolicyErr != nil {
		return nil, m.getPolicyErr
	}
	return &s3.GetBucketPolicyOutput{}, nil
}

func TestListFilesPaginates(t *testing.T) {
	truthy := true
	falsy := false
	mock := &mockS3{
		listObjectsPages: [][]s3.ListObjectsV2Output{
			{{
				Contents:              []types.Object{{Key: aws.String("a.txt"), Size: aws.Int64(1)}},
				IsTruncated:           &truthy,
				NextContinuationToken: aws.String("tok"),
			}},
			{{
				Contents:    []types.Object{{Key: aws.String("b.txt"), Size: aws.Int64(2)}},
				IsTruncated: &falsy,
			}},
		},
	}
	p := NewWithClient(mock)
	files, err := p.ListFiles(context.Background(), "bucket")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Path)
	assert.Equal(t, "b.txt", files[1].Path)
}

func TestBucketExistsFalseOnError(t *testing.T) {
	mock := &mockS3{headBucketErr: errors.New("not found")}
	p := NewWithClient(mock)
	ok, err := p.BucketExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantReadPolicyWrapsUpstreamError(t *testing.T) {
	mock := &mockS3{putPolicyErr: errors.New("denied")}
	p := NewWithClient(mock)
	err := p.GrantReadPolicy(context.Background(), "bucket", "project")
	require.Error(t, err)
}

func TestHasReadPolicy(t *testing.T) {
	mock := &mockS3{}
	p := NewWithClient(mock)
	ok, err := p.HasReadPolicy(context.Background(), "bucket")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.getPolicyErr = errors.New("no policy")
	ok, err = p.HasReadPolicy(context.Background(), "bucket")
	require.NoError(t, err)
	assert.False(t, ok)
}
