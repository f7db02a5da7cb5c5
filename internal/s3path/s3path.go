// Package s3path implements the folder-scoped key resolution for folderstore.
//
// All callers address objects with keys relative to a configured base path.
// This package converts between those relative keys and the bucket-absolute
// object keys the store understands, and performs the purely syntactic checks
// used during connection validation. Nothing here performs I/O.
package s3path

import (
	"net/url"
	"regexp"
	"strings"

	ferr "github.com/folderstore/folderstore/internal/errors"
)

// awsDomain is the suffix required of endpoint hosts unless any endpoint is
// explicitly allowed (self-hosted MinIO, Ceph RGW, etc.).
const awsDomain = "amazonaws.com"

// bucketNameRegex validates bucket names per S3 naming rules:
// 3-63 characters, lowercase letters, numbers, hyphens and periods only,
// beginning and ending with a letter or number.
var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)

// ipAddressRegex detects IP address-formatted bucket names.
var ipAddressRegex = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// slashRunRegex matches runs of two or more separators.
var slashRunRegex = regexp.MustCompile(`/{2,}`)

// NormalizeBasePath validates and canonicalizes a configured base path.
// The canonical form is either "" (bucket root) or a path with no leading
// slash and exactly one trailing slash. A leading slash or a ".." segment
// fails with an invalid_path_format error.
func NormalizeBasePath(basePath string) (string, error) {
	if basePath == "" {
		return "", nil
	}
	if strings.HasPrefix(basePath, "/") {
		return "", ferr.New(ferr.KindInvalidPathFormat)
	}
	if hasTraversal(basePath) {
		return "", ferr.New(ferr.KindInvalidPathFormat)
	}
	p := slashRunRegex.ReplaceAllString(basePath, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "", nil
	}
	return p + "/", nil
}

// ToAbsolute joins a base path and a relative key into a bucket-absolute
// object key. The relative key must not start with "/" and must not contain
// ".." segments; redundant separators are collapsed. The result never begins
// with "/".
func ToAbsolute(basePath, key string) (string, error) {
	if strings.HasPrefix(key, "/") {
		return "", ferr.New(ferr.KindInvalidPathFormat)
	}
	if hasTraversal(key) {
		return "", ferr.New(ferr.KindInvalidPathFormat)
	}
	base, err := NormalizeBasePath(basePath)
	if err != nil {
		return "", err
	}
	return base + slashRunRegex.ReplaceAllString(key, "/"), nil
}

// ToRelative strips the base path prefix from a bucket-absolute key. Keys
// outside the base path are returned unchanged: the store should never hand
// them back, but the resolver must not fail when it does.
func ToRelative(basePath, absoluteKey string) string {
	base, err := NormalizeBasePath(basePath)
	if err != nil || base == "" {
		return absoluteKey
	}
	return strings.TrimPrefix(absoluteKey, base)
}

// hasTraversal reports whether any "/"-separated segment of p is "..".
func hasTraversal(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ValidateBucketName checks the given name against S3 bucket naming rules.
// No network call is made. Returns an invalid_bucket_name error on failure.
func ValidateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return ferr.New(ferr.KindInvalidBucketName)
	}
	if !bucketNameRegex.MatchString(name) {
		return ferr.New(ferr.KindInvalidBucketName)
	}
	if ipAddressRegex.MatchString(name) {
		return ferr.New(ferr.KindInvalidBucketName)
	}
	if strings.Contains(name, "..") {
		return ferr.New(ferr.KindInvalidBucketName)
	}
	if strings.HasPrefix(name, "xn--") {
		return ferr.New(ferr.KindInvalidBucketName)
	}
	if strings.HasSuffix(name, "-s3alias") || strings.HasSuffix(name, "--ol-s3") {
		return ferr.New(ferr.KindInvalidBucketName)
	}
	return nil
}

// ValidateEndpointURL checks that rawURL is an absolute http(s) URL with a
// host that plausibly identifies an S3-compatible endpoint. When allowAny is
// false the host must be under amazonaws.com; when true any well-formed
// http(s) host is accepted. Returns an invalid_endpoint_url error on failure.
func ValidateEndpointURL(rawURL string, allowAny bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ferr.Wrap(ferr.KindInvalidEndpointURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ferr.New(ferr.KindInvalidEndpointURL)
	}
	host := u.Hostname()
	if host == "" {
		return ferr.New(ferr.KindInvalidEndpointURL)
	}
	if allowAny {
		return nil
	}
	if host != awsDomain && !strings.HasSuffix(host, "."+awsDomain) {
		return ferr.New(ferr.KindInvalidEndpointURL)
	}
	return nil
}
