// Package errors defines the error taxonomy used throughout folderstore.
//
// Every failure surfaced by the validator, the store client, the dispatcher
// and the backup agent is an *Error carrying a stable machine-readable kind
// and a fixed human-readable message. Raw SDK or transport errors never leave
// the package boundaries unclassified.
package errors

import (
	stderrors "errors"
	"fmt"
)

// As is a thin re-export of the standard library errors.As so callers that
// import this package under an alias do not need both error packages.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Kind is a stable machine-readable error identifier. The string values
// double as the codes rendered to API clients.
type Kind string

// All error kinds raised by folderstore.
const (
	// KindInvalidCredentials means authentication or authorization was
	// rejected by the store.
	KindInvalidCredentials Kind = "invalid_credentials"
	// KindInvalidBucketName means the bucket fails S3 naming rules.
	KindInvalidBucketName Kind = "invalid_bucket_name"
	// KindInvalidEndpointURL means the endpoint URL is malformed or does not
	// reference an S3-style endpoint.
	KindInvalidEndpointURL Kind = "invalid_endpoint_url"
	// KindCannotConnect means a transport, network, timeout or
	// unreachable-region failure.
	KindCannotConnect Kind = "cannot_connect"
	// KindInvalidPathFormat means a base path or relative key starts with a
	// path separator or contains traversal segments.
	KindInvalidPathFormat Kind = "invalid_path_format"
	// KindParamValidation means a malformed SDK-level parameter that is not
	// path related.
	KindParamValidation Kind = "param_validation_error"
	// KindUnknown is the catch-all for unclassified failures. It is always
	// raised in place of a raw internal fault, never alongside one.
	KindUnknown Kind = "unknown_error"
	// KindAlreadyConfigured means an entry with the same
	// (bucket, endpoint, base path) identity already exists.
	KindAlreadyConfigured Kind = "already_configured"
	// KindNoConfiguredEntries means the registry holds no loaded entries.
	KindNoConfiguredEntries Kind = "no_configured_entries"
	// KindEntryNotFound means the requested entry id is not configured.
	KindEntryNotFound Kind = "entry_not_found"
	// KindIntegrationNotLoaded means the entry id is configured but its
	// connection is not currently loaded.
	KindIntegrationNotLoaded Kind = "integration_not_loaded"
	// KindFileNotFound means a local filesystem path required by the
	// operation is missing.
	KindFileNotFound Kind = "file_not_found"
	// KindNotFound means the requested object key is absent from the store.
	KindNotFound Kind = "not_found"
)

// messages maps each kind to its stable human-readable message. These are the
// strings a host UI renders; they must not contain raw error traces.
var messages = map[Kind]string{
	KindInvalidCredentials:   "Invalid credentials or insufficient permissions for the bucket",
	KindInvalidBucketName:    "The specified bucket name is not valid",
	KindInvalidEndpointURL:   "The endpoint URL is malformed or not an S3 endpoint",
	KindCannotConnect:        "Cannot connect to the object store endpoint",
	KindInvalidPathFormat:    "Path must not start with a separator or contain traversal segments",
	KindParamValidation:      "A request parameter was rejected by the store",
	KindUnknown:              "An unexpected error occurred",
	KindAlreadyConfigured:    "A connection with the same bucket, endpoint and path is already configured",
	KindNoConfiguredEntries:  "No configured connection entries found",
	KindEntryNotFound:        "No connection entry found with the given id",
	KindIntegrationNotLoaded: "The connection entry exists but is not loaded",
	KindFileNotFound:         "Local file does not exist",
	KindNotFound:             "The specified key does not exist",
}

// Error is a classified folderstore error. EntryID and Key are optional
// context attached by the layer that resolved them.
type Error struct {
	// Kind is the stable machine-readable identifier.
	Kind Kind
	// Message is the fixed human-readable description.
	Message string
	// EntryID is the resolved connection entry, when known.
	EntryID string
	// Key is the absolute object key involved, when known.
	Key string
	// cause is the underlying error, kept for logs only.
	cause error
}

// New returns an *Error of the given kind with its canonical message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Message: messages[kind]}
}

// Wrap returns an *Error of the given kind whose cause is err. The canonical
// message is kept; err is reachable via Unwrap for logging.
func Wrap(kind Kind, err error) *Error {
	e := New(kind)
	e.cause = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.EntryID != "" {
		s += fmt.Sprintf(" (entry %s)", e.EntryID)
	}
	if e.Key != "" {
		s += fmt.Sprintf(" (key %s)", e.Key)
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, New(kind)) matches regardless of attached context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithEntry returns a copy of the error with the entry id attached.
func (e *Error) WithEntry(entryID string) *Error {
	cp := *e
	cp.EntryID = entryID
	return &cp
}

// WithKey returns a copy of the error with the absolute key attached.
func (e *Error) WithKey(key string) *Error {
	cp := *e
	cp.Key = key
	return &cp
}

// KindOf returns the kind of err if it is (or wraps) an *Error, and
// KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return As(err, &e) && e.Kind == kind
}
