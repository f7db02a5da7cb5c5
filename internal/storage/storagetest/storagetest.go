// Package storagetest provides an in-memory fake of the S3 client subset used
// by folderstore, shared by unit tests across packages.
package storagetest

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/folderstore/folderstore/internal/storage"
)

// Fake is an in-memory S3API implementation. Listings are returned in key
// order with native delimiter grouping, like the real store. Call counters
// let tests assert how many network round trips an operation performed.
type Fake struct {
	mu sync.Mutex

	// Objects maps absolute keys to content.
	Objects map[string][]byte
	// ContentTypes records the content type of each put.
	ContentTypes map[string]string
	// Modified records a fixed last-modified time per key.
	Modified map[string]time.Time

	// FailWith, when set, makes every call return this error.
	FailWith error

	GetCalls    int
	PutCalls    int
	DeleteCalls int
	ListCalls   int
	HeadCalls   int
}

var _ storage.S3API = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
		Modified:     make(map[string]time.Time),
	}
}

// Calls returns the total number of calls across all operations.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetCalls + f.PutCalls + f.DeleteCalls + f.ListCalls + f.HeadCalls
}

func (f *Fake) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	key := aws.ToString(params.Key)
	data, ok := f.Objects[key]
	if !ok {
		return nil, &APIError{Code: "NoSuchKey", Message: "The specified key does not exist.", Status: 404}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(f.ContentTypes[key]),
	}, nil
}

func (f *Fake) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	f.Objects[key] = data
	f.ContentTypes[key] = aws.ToString(params.ContentType)
	if _, ok := f.Modified[key]; !ok {
		f.Modified[key] = time.Now().UTC().Truncate(time.Second)
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *Fake) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	key := aws.ToString(params.Key)
	delete(f.Objects, key)
	delete(f.ContentTypes, key)
	delete(f.Modified, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *Fake) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}

	prefix := aws.ToString(params.Prefix)
	delimiter := aws.ToString(params.Delimiter)
	maxKeys := int(aws.ToInt32(params.MaxKeys))
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	startAfter := aws.ToString(params.ContinuationToken)

	keys := make([]string, 0, len(f.Objects))
	for key := range f.Objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var contents []types.Object
	prefixSeen := make(map[string]bool)
	var commonPrefixes []types.CommonPrefix
	truncated := false
	nextToken := ""

	for _, key := range keys {
		if startAfter != "" && key <= startAfter {
			continue
		}
		if len(contents)+len(commonPrefixes) >= maxKeys {
			truncated = true
			break
		}
		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				if !prefixSeen[cp] {
					prefixSeen[cp] = true
					commonPrefixes = append(commonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				nextToken = key
				continue
			}
		}
		contents = append(contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(f.Objects[key]))),
			LastModified: aws.Time(f.Modified[key]),
			ETag:         aws.String(fmt.Sprintf(`"%x"`, md5.Sum(f.Objects[key]))),
		})
		nextToken = key
	}

	out := &s3.ListObjectsV2Output{
		Contents:       contents,
		CommonPrefixes: commonPrefixes,
		IsTruncated:    aws.Bool(truncated),
	}
	if truncated {
		out.NextContinuationToken = aws.String(nextToken)
	}
	return out, nil
}

func (f *Fake) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HeadCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	return &s3.HeadBucketOutput{}, nil
}

// APIError implements smithy.APIError plus the HTTPStatusCode accessor the
// classifier checks.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) ErrorCode() string { return e.Code }

func (e *APIError) ErrorMessage() string { return e.Message }

func (e *APIError) ErrorFault() smithy.ErrorFault {
	if e.Status >= 500 {
		return smithy.FaultServer
	}
	return smithy.FaultClient
}

// HTTPStatusCode returns the simulated HTTP status.
func (e *APIError) HTTPStatusCode() int { return e.Status }

var _ smithy.APIError = (*APIError)(nil)
