// Package storage provides folderstore's thin client over an S3-compatible
// object store.
//
// The Client wraps the AWS SDK for Go v2 and exposes exactly the four
// primitives the façade needs: get, put, delete and a single page of a
// hierarchical listing. Every method takes a bucket-absolute key (or prefix)
// -- relative-key handling is the dispatcher's job, never the client's.
// Failures are classified into the folderstore error taxonomy; raw SDK errors
// are kept only as wrapped causes for logs.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	ferr "github.com/folderstore/folderstore/internal/errors"
)

// DefaultContentType is applied to uploads that do not name one.
const DefaultContentType = "application/octet-stream"

// DefaultRegion is used for request signing when an entry does not pin one.
// S3-compatible endpoints generally accept any region name.
const DefaultRegion = "us-east-1"

// ConnectionConfig holds the parameters of one configured connection.
// It is immutable once an entry is registered.
type ConnectionConfig struct {
	// AccessKeyID and SecretAccessKey are the static credentials for the
	// endpoint.
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-"`
	// Bucket is the target bucket name (3-63 chars, DNS-safe).
	Bucket string `yaml:"bucket" json:"bucket"`
	// EndpointURL is the absolute URL of the S3-compatible endpoint.
	EndpointURL string `yaml:"endpoint_url" json:"endpoint_url"`
	// BasePath is the folder prefix all relative operations are scoped to.
	// Normalized form: no leading slash, exactly one trailing slash or empty.
	BasePath string `yaml:"path" json:"path"`
	// Region overrides the signing region. Defaults to DefaultRegion.
	Region string `yaml:"region" json:"region,omitempty"`
	// UsePathStyle forces path-style addressing, required by most
	// self-hosted S3-compatible stores.
	UsePathStyle bool `yaml:"use_path_style" json:"use_path_style,omitempty"`
}

// SameIdentity reports whether two configs share the
// (bucket, endpoint_url, base_path) identity tuple used for deduplication.
func (c ConnectionConfig) SameIdentity(other ConnectionConfig) bool {
	return c.Bucket == other.Bucket &&
		c.EndpointURL == other.EndpointURL &&
		c.BasePath == other.BasePath
}

// ObjectSummary describes one listed object. Key is relative or absolute
// depending on which layer produced the listing.
type ObjectSummary struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}

// ListResult is a single page of a hierarchical listing.
type ListResult struct {
	// Objects are the listed objects in the store's returned order.
	Objects []ObjectSummary `json:"objects"`
	// Prefixes are the delimiter-grouped common prefixes.
	Prefixes []string `json:"prefixes"`
	// Truncated reports whether more results exist beyond this page.
	Truncated bool `json:"truncated"`
	// Cursor is the opaque continuation token for the next page, empty when
	// Truncated is false.
	Cursor string `json:"cursor,omitempty"`
}

// S3API is the subset of the AWS S3 client interface the adapter uses.
// It allows mocking in tests.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// Client owns the live connection for one configured entry. It is safe for
// concurrent use; the underlying SDK client reuses its connection pool across
// in-flight calls.
type Client struct {
	bucket string
	api    S3API
}

// NewClient builds a Client from a connection config using static
// credentials and the configured endpoint. No network call is made here;
// validation probes the connection separately.
func NewClient(ctx context.Context, cc ConnectionConfig) (*Client, error) {
	region := cc.Region
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKeyID, cc.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, ferr.Wrap(ferr.KindUnknown, err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if cc.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cc.EndpointURL)
		}
		o.UsePathStyle = cc.UsePathStyle
	})

	return &Client{bucket: cc.Bucket, api: api}, nil
}

// NewClientWithAPI builds a Client around a pre-configured S3 client.
// Primarily used by tests with mock clients.
func NewClientWithAPI(bucket string, api S3API) *Client {
	return &Client{bucket: bucket, api: api}
}

// Bucket returns the bucket this client targets.
func (c *Client) Bucket() string { return c.bucket }

// GetObject retrieves the object at the absolute key as a stream. The caller
// must close the returned ReadCloser. An absent key fails with not_found.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	resp, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, classify(err).WithKey(key)
	}
	var size int64
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}

// PutObject uploads body to the absolute key, overwriting unconditionally.
// size may be negative when unknown; the SDK then chunks the transfer.
// An empty contentType falls back to DefaultContentType.
func (c *Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = DefaultContentType
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return classify(err).WithKey(key)
	}
	return nil
}

// DeleteObject removes the object at the absolute key. Deleting an absent
// key succeeds silently, matching S3 delete semantics.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return classify(err).WithKey(key)
	}
	return nil
}

// ListObjects returns a single page of the hierarchical listing under the
// absolute prefix. The client never auto-paginates; callers loop on
// Truncated + Cursor.
func (c *Client) ListObjects(ctx context.Context, prefix, delimiter string, maxKeys int32, cursor string) (*ListResult, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(maxKeys),
	}
	if delimiter != "" {
		in.Delimiter = aws.String(delimiter)
	}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}

	resp, err := c.api.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, classify(err).WithKey(prefix)
	}

	result := &ListResult{
		Objects:   make([]ObjectSummary, 0, len(resp.Contents)),
		Prefixes:  make([]string, 0, len(resp.CommonPrefixes)),
		Truncated: aws.ToBool(resp.IsTruncated),
		Cursor:    aws.ToString(resp.NextContinuationToken),
	}
	for _, obj := range resp.Contents {
		result.Objects = append(result.Objects, ObjectSummary{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	for _, p := range resp.CommonPrefixes {
		result.Prefixes = append(result.Prefixes, aws.ToString(p.Prefix))
	}
	return result, nil
}

// HeadBucket checks that the bucket exists and the credentials can reach it.
// Used by the per-entry health check; failures are classified.
func (c *Client) HeadBucket(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// ProbeBucket performs the lightweight listing used by connection validation:
// a single-key ListObjectsV2 under the given prefix, which exercises both the
// credentials and the bucket. The raw SDK error is returned for the validator
// to classify.
func (c *Client) ProbeBucket(ctx context.Context, prefix string) error {
	_, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	return err
}
