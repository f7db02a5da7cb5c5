// Package backup implements the backup-destination provider over a configured
// connection.
//
// Backups live under a reserved "backups/" prefix beneath the instance's base
// path: the archive at backups/<id>.tar and a JSON metadata record at
// backups/<id>.metadata.json. Uploads and downloads are streamed end to end;
// no call buffers a whole backup in memory. The agent is stateless between
// calls and resolves its instance through the registry on every call.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/registry"
	"github.com/folderstore/folderstore/internal/s3path"
	"github.com/folderstore/folderstore/internal/service"
)

// Prefix is the reserved relative prefix for backup objects.
const Prefix = "backups/"

const (
	archiveSuffix  = ".tar"
	metadataSuffix = ".metadata.json"
)

// Backup is one stored backup record.
type Backup struct {
	// ID identifies the backup; it is also the key stem under the prefix.
	ID string `json:"backup_id"`
	// Name is the human-readable backup name.
	Name string `json:"name"`
	// Size is the archive size in bytes.
	Size int64 `json:"size"`
	// CreatedAt is when the backup was produced.
	CreatedAt time.Time `json:"date"`
	// Protected marks backups excluded from automatic retention cleanup.
	Protected bool `json:"protected,omitempty"`
}

// Agent is the backup provider for one entry selector. An empty entry id
// targets the first configured instance, like every other operation.
type Agent struct {
	reg     *registry.Registry
	entryID string
}

// NewAgent returns an Agent resolving its instance from reg on each call.
func NewAgent(reg *registry.Registry, entryID string) *Agent {
	return &Agent{reg: reg, entryID: entryID}
}

func (a *Agent) archiveKey(basePath, backupID string) (string, error) {
	return s3path.ToAbsolute(basePath, Prefix+backupID+archiveSuffix)
}

func (a *Agent) metadataKey(basePath, backupID string) (string, error) {
	return s3path.ToAbsolute(basePath, Prefix+backupID+metadataSuffix)
}

// List enumerates stored backups. It pages through the full listing under the
// reserved prefix, then builds one record per archive: from the sidecar
// metadata object when present, synthesized from the listing otherwise.
func (a *Agent) List(ctx context.Context) ([]Backup, error) {
	h, err := a.reg.Resolve(a.entryID)
	if err != nil {
		return nil, err
	}
	absPrefix, err := s3path.ToAbsolute(h.Config.BasePath, Prefix)
	if err != nil {
		return nil, err
	}

	archives := make(map[string]Backup)
	hasMetadata := make(map[string]bool)
	cursor := ""
	for {
		// No delimiter: backups are a flat namespace under the prefix.
		page, err := h.Client.ListObjects(ctx, absPrefix, "", service.DefaultMaxKeys, cursor)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			rel := s3path.ToRelative(h.Config.BasePath, obj.Key)
			stem := strings.TrimPrefix(rel, Prefix)
			switch {
			case strings.HasSuffix(stem, metadataSuffix):
				hasMetadata[strings.TrimSuffix(stem, metadataSuffix)] = true
			case strings.HasSuffix(stem, archiveSuffix):
				id := strings.TrimSuffix(stem, archiveSuffix)
				archives[id] = Backup{
					ID:        id,
					Name:      id,
					Size:      obj.Size,
					CreatedAt: obj.LastModified,
				}
			}
		}
		if !page.Truncated || page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	backups := make([]Backup, 0, len(archives))
	for id, b := range archives {
		if hasMetadata[id] {
			if meta, err := a.readMetadata(ctx, h, id); err == nil {
				meta.Size = b.Size
				b = meta
			} else {
				slog.Warn("unreadable backup metadata, using listing record",
					"entry", h.EntryID, "backup_id", id, "error", err)
			}
		}
		backups = append(backups, b)
	}
	return backups, nil
}

func (a *Agent) readMetadata(ctx context.Context, h *registry.Handle, backupID string) (Backup, error) {
	key, err := a.metadataKey(h.Config.BasePath, backupID)
	if err != nil {
		return Backup{}, err
	}
	body, _, err := h.Client.GetObject(ctx, key)
	if err != nil {
		return Backup{}, err
	}
	defer body.Close()

	var b Backup
	if err := json.NewDecoder(body).Decode(&b); err != nil {
		return Backup{}, ferr.Wrap(ferr.KindUnknown, err)
	}
	if b.ID == "" {
		b.ID = backupID
	}
	return b, nil
}

// Upload streams a backup archive to the store and then writes its metadata
// record. The stream is consumed exactly once and never buffered whole;
// meta.Size must match the stream length.
func (a *Agent) Upload(ctx context.Context, meta Backup, archive io.Reader) error {
	h, err := a.reg.Resolve(a.entryID)
	if err != nil {
		return err
	}
	key, err := a.archiveKey(h.Config.BasePath, meta.ID)
	if err != nil {
		return err
	}
	if err := h.Client.PutObject(ctx, key, archive, meta.Size, "application/x-tar"); err != nil {
		return err
	}

	metaKey, err := a.metadataKey(h.Config.BasePath, meta.ID)
	if err != nil {
		return err
	}
	record, err := json.Marshal(meta)
	if err != nil {
		return ferr.Wrap(ferr.KindUnknown, err)
	}
	if err := h.Client.PutObject(ctx, metaKey, bytes.NewReader(record), int64(len(record)), "application/json"); err != nil {
		return err
	}

	slog.Info("uploaded backup", "entry", h.EntryID, "backup_id", meta.ID, "size", meta.Size)
	return nil
}

// Download returns a lazy stream of the backup archive. The caller must
// close it. A missing backup fails with not_found.
func (a *Agent) Download(ctx context.Context, backupID string) (io.ReadCloser, int64, error) {
	h, err := a.reg.Resolve(a.entryID)
	if err != nil {
		return nil, 0, err
	}
	key, err := a.archiveKey(h.Config.BasePath, backupID)
	if err != nil {
		return nil, 0, err
	}
	return h.Client.GetObject(ctx, key)
}

// Delete removes the backup archive and its metadata record. Deleting a
// backup that does not exist succeeds silently.
func (a *Agent) Delete(ctx context.Context, backupID string) error {
	h, err := a.reg.Resolve(a.entryID)
	if err != nil {
		return err
	}
	key, err := a.archiveKey(h.Config.BasePath, backupID)
	if err != nil {
		return err
	}
	if err := h.Client.DeleteObject(ctx, key); err != nil {
		return err
	}
	metaKey, err := a.metadataKey(h.Config.BasePath, backupID)
	if err != nil {
		return err
	}
	if err := h.Client.DeleteObject(ctx, metaKey); err != nil {
		return err
	}
	slog.Info("deleted backup", "entry", h.EntryID, "backup_id", backupID)
	return nil
}
