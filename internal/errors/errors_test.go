package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestMessagesAreStable(t *testing.T) {
	// Every kind maps to a fixed human-readable message.
	kinds := []Kind{
		KindInvalidCredentials, KindInvalidBucketName, KindInvalidEndpointURL,
		KindCannotConnect, KindInvalidPathFormat, KindParamValidation,
		KindUnknown, KindAlreadyConfigured, KindNoConfiguredEntries,
		KindEntryNotFound, KindIntegrationNotLoaded, KindFileNotFound,
		KindNotFound,
	}
	for _, kind := range kinds {
		e := New(kind)
		if e.Message == "" {
			t.Errorf("New(%s) has no message", kind)
		}
		if !strings.Contains(e.Error(), string(kind)) {
			t.Errorf("Error() for %s does not include the kind code: %q", kind, e.Error())
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	e := Wrap(KindCannotConnect, cause)
	if !stderrors.Is(e, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	// The stable message, not the raw cause, is what callers render.
	if strings.Contains(e.Message, "dial tcp") {
		t.Error("raw cause leaked into the stable message")
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindNotFound).WithEntry("e1").WithKey("home/a.txt")
	if !stderrors.Is(err, New(KindNotFound)) {
		t.Error("errors.Is should match on kind regardless of context")
	}
	if stderrors.Is(err, New(KindCannotConnect)) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestContextCopies(t *testing.T) {
	base := New(KindNotFound)
	withCtx := base.WithEntry("e1").WithKey("k")
	if base.EntryID != "" || base.Key != "" {
		t.Error("WithEntry/WithKey must not mutate the original error")
	}
	if withCtx.EntryID != "e1" || withCtx.Key != "k" {
		t.Errorf("context not attached: %+v", withCtx)
	}
	if !strings.Contains(withCtx.Error(), "e1") || !strings.Contains(withCtx.Error(), "k") {
		t.Errorf("Error() should carry context: %q", withCtx.Error())
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindFileNotFound)); got != KindFileNotFound {
		t.Errorf("KindOf = %s, want %s", got, KindFileNotFound)
	}
	if got := KindOf(fmt.Errorf("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindUnknown)
	}
	wrapped := fmt.Errorf("outer: %w", New(KindEntryNotFound))
	if got := KindOf(wrapped); got != KindEntryNotFound {
		t.Errorf("KindOf(wrapped) = %s, want %s", got, KindEntryNotFound)
	}
}
