package storage

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	ferr "github.com/folderstore/folderstore/internal/errors"
)

// classify maps an SDK error from a data operation to the folderstore error
// taxonomy. The rules form an ordered list whose final rule is total, so no
// SDK error escapes unclassified.
func classify(err error) *ferr.Error {
	switch {
	case isNotFound(err):
		return ferr.Wrap(ferr.KindNotFound, err)
	case IsParamError(err):
		return ferr.Wrap(ferr.KindParamValidation, err)
	case IsAuthError(err):
		return ferr.Wrap(ferr.KindInvalidCredentials, err)
	case IsConnectError(err):
		return ferr.Wrap(ferr.KindCannotConnect, err)
	default:
		return ferr.Wrap(ferr.KindUnknown, err)
	}
}

// isNotFound reports whether err is a 404/NoSuchKey/NotFound error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404", "NoSuchBucket":
			return true
		}
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}

// IsAuthError reports whether err is an authentication or authorization
// rejection from the store.
func IsAuthError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "InvalidToken", "AuthorizationHeaderMalformed":
			return true
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == 401 || code == 403
	}
	return false
}

// IsParamError reports whether err is a client-side parameter validation
// failure surfaced by the SDK before or during the request.
func IsParamError(err error) bool {
	var invalidParams *smithy.InvalidParamsError
	if errors.As(err, &invalidParams) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidArgument", "InvalidRequest", "MalformedXML":
			return true
		}
	}
	return false
}

// IsAPIError reports whether the store produced any error response at all,
// as opposed to the request never completing.
func IsAPIError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr)
}

// IsConnectError reports whether err is a transport-level failure: timeout,
// DNS, refused connection or an unreachable region. Errors that carry a store
// response are never connect errors.
func IsConnectError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
