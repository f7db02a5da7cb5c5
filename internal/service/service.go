// Package service implements the public file operations of folderstore:
// get_file, put_file, delete_file and list_files.
//
// Each operation resolves the target instance through the registry, resolves
// keys through the path resolver, delegates to the store client and
// translates results back into caller terms: relative keys out, taxonomy
// errors with entry and key context attached. The dispatcher never retries;
// retry policy belongs to the host.
package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/metrics"
	"github.com/folderstore/folderstore/internal/registry"
	"github.com/folderstore/folderstore/internal/s3path"
	"github.com/folderstore/folderstore/internal/storage"
	"github.com/folderstore/folderstore/internal/uid"
)

// Listing defaults, matching the store's native single-page limits.
const (
	DefaultDelimiter = "/"
	DefaultMaxKeys   = 1000
)

// Dispatcher routes file operations to the right configured instance.
type Dispatcher struct {
	reg *registry.Registry
}

// New returns a Dispatcher resolving instances from reg.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// GetFile downloads the object at the relative key into localPath. The
// download goes through a temp file in the destination directory and is
// renamed into place only on success, so an interrupted transfer never leaves
// a truncated file at localPath.
func (d *Dispatcher) GetFile(ctx context.Context, entryID, key, localPath string) error {
	h, err := d.reg.Resolve(entryID)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("get_file", "error").Inc()
		return err
	}
	absKey, err := s3path.ToAbsolute(h.Config.BasePath, key)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("get_file", "error").Inc()
		return withContext(err, h.EntryID, "")
	}

	if err := d.getFile(ctx, h, absKey, localPath); err != nil {
		metrics.FileOperationsTotal.WithLabelValues("get_file", "error").Inc()
		return withContext(err, h.EntryID, absKey)
	}
	metrics.FileOperationsTotal.WithLabelValues("get_file", "success").Inc()
	return nil
}

func (d *Dispatcher) getFile(ctx context.Context, h *registry.Handle, absKey, localPath string) error {
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferr.Wrap(ferr.KindFileNotFound, err)
	}

	body, _, err := h.Client.GetObject(ctx, absKey)
	if err != nil {
		return err
	}
	defer body.Close()

	tmpPath := filepath.Join(dir, "."+uid.New()+".part")
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return ferr.Wrap(ferr.KindFileNotFound, err)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ferr.Wrap(ferr.KindCannotConnect, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ferr.Wrap(ferr.KindUnknown, err)
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return ferr.Wrap(ferr.KindFileNotFound, err)
	}

	slog.Debug("downloaded object", "entry", h.EntryID, "key", absKey, "local", localPath)
	return nil
}

// PutFile uploads the local file to the relative key. The local file is
// checked before any network I/O so a missing source never causes a partial
// upload. Existing objects are overwritten unconditionally.
func (d *Dispatcher) PutFile(ctx context.Context, entryID, key, localPath, contentType string) error {
	h, err := d.reg.Resolve(entryID)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("put_file", "error").Inc()
		return err
	}
	absKey, err := s3path.ToAbsolute(h.Config.BasePath, key)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("put_file", "error").Inc()
		return withContext(err, h.EntryID, "")
	}

	if err := d.putFile(ctx, h, absKey, localPath, contentType); err != nil {
		metrics.FileOperationsTotal.WithLabelValues("put_file", "error").Inc()
		return withContext(err, h.EntryID, absKey)
	}
	metrics.FileOperationsTotal.WithLabelValues("put_file", "success").Inc()
	return nil
}

func (d *Dispatcher) putFile(ctx context.Context, h *registry.Handle, absKey, localPath, contentType string) error {
	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		return ferr.Wrap(ferr.KindFileNotFound, err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return ferr.Wrap(ferr.KindFileNotFound, err)
	}
	defer f.Close()

	if err := h.Client.PutObject(ctx, absKey, f, info.Size(), contentType); err != nil {
		return err
	}

	slog.Debug("uploaded object", "entry", h.EntryID, "key", absKey, "size", info.Size())
	return nil
}

// DeleteFile removes the object at the relative key. Deleting an absent key
// succeeds silently.
func (d *Dispatcher) DeleteFile(ctx context.Context, entryID, key string) error {
	h, err := d.reg.Resolve(entryID)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("delete_file", "error").Inc()
		return err
	}
	absKey, err := s3path.ToAbsolute(h.Config.BasePath, key)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("delete_file", "error").Inc()
		return withContext(err, h.EntryID, "")
	}

	if err := h.Client.DeleteObject(ctx, absKey); err != nil {
		metrics.FileOperationsTotal.WithLabelValues("delete_file", "error").Inc()
		return withContext(err, h.EntryID, absKey)
	}
	metrics.FileOperationsTotal.WithLabelValues("delete_file", "success").Inc()
	return nil
}

// ListFiles lists one page of objects under the relative prefix. Keys and
// common prefixes come back relative to the instance's base path -- this is
// the contract that distinguishes the façade from a raw store client. An
// empty prefix lists from the base path root.
func (d *Dispatcher) ListFiles(ctx context.Context, entryID, prefix, delimiter string, maxKeys int32, cursor string) (*storage.ListResult, error) {
	h, err := d.reg.Resolve(entryID)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("list_files", "error").Inc()
		return nil, err
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	absPrefix, err := s3path.ToAbsolute(h.Config.BasePath, prefix)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("list_files", "error").Inc()
		return nil, withContext(err, h.EntryID, "")
	}

	result, err := h.Client.ListObjects(ctx, absPrefix, delimiter, maxKeys, cursor)
	if err != nil {
		metrics.FileOperationsTotal.WithLabelValues("list_files", "error").Inc()
		return nil, withContext(err, h.EntryID, absPrefix)
	}

	for i := range result.Objects {
		result.Objects[i].Key = s3path.ToRelative(h.Config.BasePath, result.Objects[i].Key)
	}
	for i := range result.Prefixes {
		result.Prefixes[i] = s3path.ToRelative(h.Config.BasePath, result.Prefixes[i])
	}

	metrics.FileOperationsTotal.WithLabelValues("list_files", "success").Inc()
	return result, nil
}

// withContext attaches entry and key context to taxonomy errors without
// overwriting context set by a lower layer.
func withContext(err error, entryID, key string) error {
	var e *ferr.Error
	if !ferr.As(err, &e) {
		return err
	}
	if e.EntryID == "" && entryID != "" {
		e = e.WithEntry(entryID)
	}
	if e.Key == "" && key != "" {
		e = e.WithKey(key)
	}
	return e
}
