// Package fileprovider implements the FileProvider capability spec.md §2
// names: bucket listing, per-bucket file listing, and read-policy grants
// backing the /buckets routes in spec.md §6. Grounded on the teacher's
// storage/s3aws.go (AWS SDK v2 client construction, path-style endpoint
// resolution, shared HTTP client) and storage/s3_interface.go's S3Client
// seam, generalized from the teacher's LakeFS/MinIO/Hetzner free functions
// into a single provider bound to the Allas/S3-compatible endpoint this
// system targets (original_source/metadata_backend/services/
// project_service.py's object-storage listing).
package fileprovider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

// sharedHTTPClient pools connections across every bucket operation this
// provider issues, mirroring the teacher's package-level client.
var sharedHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	},
}

// S3Client is the subset of the AWS SDK v2 S3 client this provider drives,
// narrowed to what bucket listing and file enumeration need.
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
}

// File describes a single object-storage file as returned by the
// GET /buckets/{name}/files endpoint.
type File struct {
	Path         string
	Bytes        int64
	LastModified time.Time
}

// Config carries the S3-compatible endpoint this provider targets.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Provider implements bucket/file listing and read-policy grants against
// a single S3-compatible endpoint. It applies no per-project scoping of
// its own: every bucket the configured credentials can see is visible.
type Provider struct {
	client S3Client
}

// New builds a Provider from cfg, resolving a path-style endpoint the way
// the teacher's LakeFS/MinIO helpers do.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "load object storage configuration", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.HTTPClient = sharedHTTPClient
	})
	return &Provider{client: client}, nil
}

// NewWithClient wires a pre-built S3Client, used by tests to inject a mock.
func NewWithClient(client S3Client) *Provider {
	return &Provider{client: client}
}

// ListBuckets returns the bucket names visible to the configured
// credentials, backing GET /buckets.
func (p *Provider) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := p.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamServer, "list buckets", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if b.Name != nil {
			names = append(names, *b.Name)
		}
	}
	return names, nil
}

// ListFiles enumerates every object in bucket, satisfying spec.md §4.9
// precondition 5 (FileProvider.listFiles(bucket) returns ≥1 file for
// workflows requiring data files) and GET /buckets/{name}/files.
func (p *Provider) ListFiles(ctx context.Context, bucket string) ([]File, error) {
	var files []File
	var continuationToken *string
	for {
		out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, classifyBucketError(bucket, err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			f := File{Path: *obj.Key}
			if obj.Size != nil {
				f.Bytes = *obj.Size
			}
			if obj.LastModified != nil {
				f.LastModified = *obj.LastModified
			}
			files = append(files, f)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return files, nil
}

// BucketExists reports whether bucket is reachable with the configured
// credentials; any HeadBucket error reads as false. The publication
// orchestrator does not call it.
func (p *Provider) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}
	return false, nil
}

// readOnlyPolicyTemplate is the bucket policy document granting read access to
// projectID, templated after the CSC Allas read-policy convention.
const readOnlyPolicyTemplate = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["%s"]},"Action":["s3:GetObject","s3:ListBucket"],"Resource":["arn:aws:s3:::%s","arn:aws:s3:::%s/*"]}]}`

// GrantReadPolicy attaches a read-only bucket policy scoped to projectID,
// backing PUT /buckets/{name}.
func (p *Provider) GrantReadPolicy(ctx context.Context, bucket, projectID string) error {
	policy := fmt.Sprintf(readOnlyPolicyTemplate, projectID, bucket, bucket)
	_, err := p.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(policy),
	})
	if err != nil {
		return classifyBucketError(bucket, err)
	}
	return nil
}

// HasReadPolicy reports whether bucket already carries a policy document,
// backing HEAD /buckets/{name}.
func (p *Provider) HasReadPolicy(ctx context.Context, bucket string) (bool, error) {
	_, err := p.client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	if err != nil {
		return false, nil
	}
	return true, nil
}

func classifyBucketError(bucket string, err error) error {
	return apperr.Wrap(apperr.KindUpstreamServer, fmt.Sprintf("object storage operation on bucket %s", bucket), err)
}
