// Package validate implements the connection validation state machine run
// once per setup or reconfigure attempt.
//
// The sequence is: syntactic bucket check, syntactic endpoint check, base
// path normalization, duplicate identity check against loaded entries, then a
// single lightweight network probe. Each step terminates with exactly one
// outcome from the error taxonomy; the probe's raw SDK error is classified by
// an ordered rule list whose last rule is total, so no error ever escapes the
// validator unclassified. On success the normalized config is returned for
// the caller to persist -- the validator never creates a live instance
// itself.
package validate

import (
	"context"
	"log/slog"

	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/registry"
	"github.com/folderstore/folderstore/internal/s3path"
	"github.com/folderstore/folderstore/internal/storage"
)

// Prober performs the validation network probe. *storage.Client satisfies it.
type Prober interface {
	ProbeBucket(ctx context.Context, prefix string) error
}

var _ Prober = (*storage.Client)(nil)

// ClientFactory builds a Prober for a candidate config. Swapped out in tests
// to count network calls.
type ClientFactory func(ctx context.Context, cc storage.ConnectionConfig) (Prober, error)

// Options tunes validator behavior.
type Options struct {
	// AllowAnyEndpoint admits endpoints outside amazonaws.com, for
	// self-hosted S3-compatible stores.
	AllowAnyEndpoint bool
}

// Validator classifies candidate connection configs before they are
// persisted.
type Validator struct {
	reg       *registry.Registry
	opts      Options
	newClient ClientFactory
}

// New returns a Validator that checks duplicates against reg and probes with
// a real store client.
func New(reg *registry.Registry, opts Options) *Validator {
	return &Validator{
		reg:  reg,
		opts: opts,
		newClient: func(ctx context.Context, cc storage.ConnectionConfig) (Prober, error) {
			return storage.NewClient(ctx, cc)
		},
	}
}

// NewWithFactory returns a Validator using the given client factory.
// Used by tests.
func NewWithFactory(reg *registry.Registry, opts Options, factory ClientFactory) *Validator {
	v := New(reg, opts)
	v.newClient = factory
	return v
}

// Validate runs the full validation sequence on cc. On success it returns
// the config with its base path normalized; otherwise exactly one taxonomy
// error. The syntactic checks and the duplicate check make no network call;
// the probe makes exactly one.
func (v *Validator) Validate(ctx context.Context, cc storage.ConnectionConfig) (storage.ConnectionConfig, error) {
	if err := s3path.ValidateBucketName(cc.Bucket); err != nil {
		return cc, err
	}
	if err := s3path.ValidateEndpointURL(cc.EndpointURL, v.opts.AllowAnyEndpoint); err != nil {
		return cc, err
	}
	base, err := s3path.NormalizeBasePath(cc.BasePath)
	if err != nil {
		return cc, err
	}
	cc.BasePath = base

	if dup := v.reg.FindIdentity(cc); dup != nil {
		return cc, ferr.New(ferr.KindAlreadyConfigured).WithEntry(dup.EntryID)
	}

	client, err := v.newClient(ctx, cc)
	if err != nil {
		return cc, ferr.Wrap(ferr.KindUnknown, err)
	}
	if err := client.ProbeBucket(ctx, cc.BasePath); err != nil {
		slog.Debug("connection probe failed",
			"bucket", cc.Bucket, "endpoint", cc.EndpointURL, "error", err)
		return cc, classifyProbe(err)
	}

	return cc, nil
}

// classifyProbe maps a probe error to a terminal validation outcome. The
// rules are ordered; the final rule is total.
func classifyProbe(err error) *ferr.Error {
	switch {
	case storage.IsParamError(err):
		return ferr.Wrap(ferr.KindParamValidation, err)
	case storage.IsAPIError(err):
		// The store answered and rejected the request: during setup every
		// such rejection reads as bad credentials or a bucket the
		// credentials cannot reach.
		return ferr.Wrap(ferr.KindInvalidCredentials, err)
	case storage.IsConnectError(err):
		return ferr.Wrap(ferr.KindCannotConnect, err)
	default:
		return ferr.Wrap(ferr.KindUnknown, err)
	}
}
