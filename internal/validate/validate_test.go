package validate

import (
	"context"
	"errors"
	"net"
	"testing"

	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/registry"
	"github.com/folderstore/folderstore/internal/storage"
	"github.com/folderstore/folderstore/internal/storage/storagetest"
)

// countingProber records probe calls and returns a canned error.
type countingProber struct {
	calls *int
	err   error
}

func (p *countingProber) ProbeBucket(ctx context.Context, prefix string) error {
	*p.calls++
	return p.err
}

func newTestValidator(t *testing.T, probeErr error) (*Validator, *int) {
	t.Helper()
	calls := new(int)
	v := NewWithFactory(registry.New(), Options{}, func(ctx context.Context, cc storage.ConnectionConfig) (Prober, error) {
		return &countingProber{calls: calls, err: probeErr}, nil
	})
	return v, calls
}

func validConfig() storage.ConnectionConfig {
	return storage.ConnectionConfig{
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		Bucket:          "my-bucket",
		EndpointURL:     "https://s3.eu-central-1.amazonaws.com/",
		BasePath:        "home/files",
	}
}

func TestValidateSuccessNormalizesBasePath(t *testing.T) {
	v, calls := newTestValidator(t, nil)

	cc, err := v.Validate(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cc.BasePath != "home/files/" {
		t.Errorf("BasePath = %q, want normalized %q", cc.BasePath, "home/files/")
	}
	if *calls != 1 {
		t.Errorf("probe calls = %d, want exactly 1", *calls)
	}
}

func TestValidateBucketNameBeforeAnyNetworkCall(t *testing.T) {
	v, calls := newTestValidator(t, nil)

	cc := validConfig()
	cc.Bucket = "My-Bucket"
	_, err := v.Validate(context.Background(), cc)
	if !ferr.IsKind(err, ferr.KindInvalidBucketName) {
		t.Fatalf("Validate = %v, want invalid_bucket_name", err)
	}
	if *calls != 0 {
		t.Errorf("probe calls = %d, want 0 (syntactic failure must not reach the network)", *calls)
	}
}

func TestValidateEndpointURL(t *testing.T) {
	v, calls := newTestValidator(t, nil)

	cc := validConfig()
	cc.EndpointURL = "https://storage.example.com"
	_, err := v.Validate(context.Background(), cc)
	if !ferr.IsKind(err, ferr.KindInvalidEndpointURL) {
		t.Fatalf("Validate = %v, want invalid_endpoint_url", err)
	}
	if *calls != 0 {
		t.Errorf("probe calls = %d, want 0", *calls)
	}

	// The same endpoint passes when any endpoint is allowed.
	allowAny := NewWithFactory(registry.New(), Options{AllowAnyEndpoint: true}, func(ctx context.Context, c storage.ConnectionConfig) (Prober, error) {
		return &countingProber{calls: calls}, nil
	})
	if _, err := allowAny.Validate(context.Background(), cc); err != nil {
		t.Errorf("Validate with AllowAnyEndpoint = %v, want nil", err)
	}
}

func TestValidatePathFormat(t *testing.T) {
	v, calls := newTestValidator(t, nil)

	cc := validConfig()
	cc.BasePath = "/home/files"
	_, err := v.Validate(context.Background(), cc)
	if !ferr.IsKind(err, ferr.KindInvalidPathFormat) {
		t.Fatalf("Validate = %v, want invalid_path_format", err)
	}
	if *calls != 0 {
		t.Errorf("probe calls = %d, want 0", *calls)
	}
}

func TestValidateDuplicateIdentity(t *testing.T) {
	reg := registry.New()
	calls := new(int)
	v := NewWithFactory(reg, Options{}, func(ctx context.Context, cc storage.ConnectionConfig) (Prober, error) {
		return &countingProber{calls: calls}, nil
	})

	cc, err := v.Validate(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("first Validate failed: %v", err)
	}
	reg.Register("e1", cc, storage.NewClientWithAPI(cc.Bucket, storagetest.New()))

	// Identical tuple is rejected without a probe.
	before := *calls
	_, err = v.Validate(context.Background(), validConfig())
	if !ferr.IsKind(err, ferr.KindAlreadyConfigured) {
		t.Fatalf("duplicate Validate = %v, want already_configured", err)
	}
	if *calls != before {
		t.Errorf("duplicate check made a network call")
	}

	// Changing any one identity field makes it a distinct connection again.
	for _, mutate := range []func(*storage.ConnectionConfig){
		func(c *storage.ConnectionConfig) { c.Bucket = "other-bucket" },
		func(c *storage.ConnectionConfig) { c.EndpointURL = "https://s3.us-west-2.amazonaws.com/" },
		func(c *storage.ConnectionConfig) { c.BasePath = "other/" },
	} {
		cand := validConfig()
		mutate(&cand)
		if _, err := v.Validate(context.Background(), cand); err != nil {
			t.Errorf("Validate after changing one identity field = %v, want nil", err)
		}
	}
}

func TestValidateProbeClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ferr.Kind
	}{
		{
			name: "access denied",
			err:  &storagetest.APIError{Code: "AccessDenied", Message: "Access Denied", Status: 403},
			want: ferr.KindInvalidCredentials,
		},
		{
			name: "bad signature",
			err:  &storagetest.APIError{Code: "SignatureDoesNotMatch", Message: "nope", Status: 403},
			want: ferr.KindInvalidCredentials,
		},
		{
			name: "missing bucket reads as credential scope during setup",
			err:  &storagetest.APIError{Code: "NoSuchBucket", Message: "gone", Status: 404},
			want: ferr.KindInvalidCredentials,
		},
		{
			name: "connection refused",
			err:  &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			want: ferr.KindCannotConnect,
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			want: ferr.KindCannotConnect,
		},
		{
			name: "dns failure",
			err:  &net.DNSError{Name: "s3.invalid", IsNotFound: true},
			want: ferr.KindCannotConnect,
		},
		{
			name: "anything else is caught, never propagated raw",
			err:  errors.New("some sdk explosion"),
			want: ferr.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestValidator(t, tt.err)
			_, err := v.Validate(context.Background(), validConfig())
			if !ferr.IsKind(err, tt.want) {
				t.Errorf("Validate = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestUnreachableEndpointNeverUnknown(t *testing.T) {
	v, _ := newTestValidator(t, &net.OpError{Op: "dial", Err: errors.New("i/o timeout")})
	_, err := v.Validate(context.Background(), validConfig())
	if ferr.IsKind(err, ferr.KindUnknown) {
		t.Fatal("unreachable endpoint must classify as cannot_connect, not unknown_error")
	}
	if !ferr.IsKind(err, ferr.KindCannotConnect) {
		t.Errorf("Validate = %v, want cannot_connect", err)
	}
}
