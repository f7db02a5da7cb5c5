package storage_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"

	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/storage"
	"github.com/folderstore/folderstore/internal/storage/storagetest"
)

func newTestClient() (*storage.Client, *storagetest.Fake) {
	fake := storagetest.New()
	return storage.NewClientWithAPI("test-bucket", fake), fake
}

func TestPutAndGetObject(t *testing.T) {
	client, _ := newTestClient()
	ctx := context.Background()

	content := []byte("hello folderstore")
	err := client.PutObject(ctx, "home/hello.txt", bytes.NewReader(content), int64(len(content)), "text/plain")
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	body, size, err := client.GetObject(ctx, "home/hello.txt")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	defer body.Close()

	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("data = %q, want %q", data, content)
	}
}

func TestPutObjectDefaultContentType(t *testing.T) {
	client, fake := newTestClient()
	ctx := context.Background()

	if err := client.PutObject(ctx, "k", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if got := fake.ContentTypes["k"]; got != storage.DefaultContentType {
		t.Errorf("content type = %q, want %q", got, storage.DefaultContentType)
	}
}

func TestPutObjectOverwrites(t *testing.T) {
	client, fake := newTestClient()
	ctx := context.Background()

	for _, content := range []string{"first", "second"} {
		if err := client.PutObject(ctx, "k", strings.NewReader(content), int64(len(content)), ""); err != nil {
			t.Fatalf("PutObject failed: %v", err)
		}
	}
	if got := string(fake.Objects["k"]); got != "second" {
		t.Errorf("object = %q, want last write to win", got)
	}
}

func TestGetObjectNotFound(t *testing.T) {
	client, _ := newTestClient()

	_, _, err := client.GetObject(context.Background(), "missing.txt")
	if !ferr.IsKind(err, ferr.KindNotFound) {
		t.Errorf("GetObject(missing) = %v, want not_found", err)
	}
	var e *ferr.Error
	if ferr.As(err, &e) && e.Key != "missing.txt" {
		t.Errorf("error key = %q, want missing.txt", e.Key)
	}
}

func TestDeleteObjectIdempotent(t *testing.T) {
	client, fake := newTestClient()
	ctx := context.Background()

	// Deleting a key that never existed succeeds.
	if err := client.DeleteObject(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteObject(absent) = %v, want nil", err)
	}

	// Deleting twice in a row succeeds both times.
	if err := client.PutObject(ctx, "k", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := client.DeleteObject(ctx, "k"); err != nil {
			t.Errorf("DeleteObject #%d = %v, want nil", i+1, err)
		}
	}
	if _, ok := fake.Objects["k"]; ok {
		t.Error("object still present after delete")
	}
}

func TestListObjectsDelimiterGrouping(t *testing.T) {
	client, _ := newTestClient()
	ctx := context.Background()

	for _, key := range []string{"base/docs/a.txt", "base/docs/sub/b.txt", "base/other.txt"} {
		if err := client.PutObject(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("PutObject(%s) failed: %v", key, err)
		}
	}

	result, err := client.ListObjects(ctx, "base/docs/", "/", 1000, "")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}

	if len(result.Objects) != 1 || result.Objects[0].Key != "base/docs/a.txt" {
		t.Errorf("objects = %+v, want exactly base/docs/a.txt", result.Objects)
	}
	if len(result.Prefixes) != 1 || result.Prefixes[0] != "base/docs/sub/" {
		t.Errorf("prefixes = %v, want exactly base/docs/sub/", result.Prefixes)
	}
	if result.Truncated {
		t.Error("listing should not be truncated")
	}
}

func TestListObjectsPagination(t *testing.T) {
	client, _ := newTestClient()
	ctx := context.Background()

	keys := []string{"p/a", "p/b", "p/c", "p/d", "p/e"}
	for _, key := range keys {
		if err := client.PutObject(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("PutObject failed: %v", err)
		}
	}

	// The client never auto-paginates; loop on Truncated + Cursor.
	var got []string
	cursor := ""
	pages := 0
	for {
		page, err := client.ListObjects(ctx, "p/", "", 2, cursor)
		if err != nil {
			t.Fatalf("ListObjects failed: %v", err)
		}
		pages++
		for _, obj := range page.Objects {
			got = append(got, obj.Key)
		}
		if !page.Truncated {
			break
		}
		cursor = page.Cursor
	}

	if pages < 3 {
		t.Errorf("pages = %d, want at least 3 with max_keys=2", pages)
	}
	if len(got) != len(keys) {
		t.Fatalf("listed %d keys, want %d: %v", len(got), len(keys), got)
	}
	for i, key := range keys {
		if got[i] != key {
			t.Errorf("key[%d] = %q, want %q", i, got[i], key)
		}
	}
}

func TestTransportFailureClassifiedAsCannotConnect(t *testing.T) {
	client, fake := newTestClient()
	fake.FailWith = &net.OpError{Op: "dial", Err: &net.DNSError{Name: "s3.invalid", IsNotFound: true}}

	_, _, err := client.GetObject(context.Background(), "k")
	if !ferr.IsKind(err, ferr.KindCannotConnect) {
		t.Errorf("GetObject over dead transport = %v, want cannot_connect", err)
	}
	if err := client.PutObject(context.Background(), "k", strings.NewReader("x"), 1, ""); !ferr.IsKind(err, ferr.KindCannotConnect) {
		t.Errorf("PutObject over dead transport = %v, want cannot_connect", err)
	}
}

func TestAuthFailureClassified(t *testing.T) {
	client, fake := newTestClient()
	fake.FailWith = &storagetest.APIError{Code: "AccessDenied", Message: "Access Denied", Status: 403}

	err := client.PutObject(context.Background(), "k", strings.NewReader("x"), 1, "")
	if !ferr.IsKind(err, ferr.KindInvalidCredentials) {
		t.Errorf("PutObject with denied access = %v, want invalid_credentials", err)
	}
}
