package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/folderstore/folderstore/internal/backup"
	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/metrics"
	"github.com/folderstore/folderstore/internal/storage"
)

// EntryInfo describes one loaded connection entry. Credentials are never
// echoed back.
type EntryInfo struct {
	EntryID     string `json:"entry_id"`
	Bucket      string `json:"bucket"`
	EndpointURL string `json:"endpoint_url"`
	Path        string `json:"path,omitempty"`
}

// CreateEntryInput is the setup/validation request.
type CreateEntryInput struct {
	Body struct {
		AccessKeyID     string `json:"access_key_id" required:"true" doc:"Access key id"`
		SecretAccessKey string `json:"secret_access_key" required:"true" doc:"Secret access key"`
		Bucket          string `json:"bucket" required:"true" doc:"Bucket name"`
		EndpointURL     string `json:"endpoint_url" required:"true" doc:"S3 endpoint URL"`
		Path            string `json:"path,omitempty" doc:"Base folder inside the bucket"`
		Region          string `json:"region,omitempty" doc:"Signing region"`
		UsePathStyle    bool   `json:"use_path_style,omitempty" doc:"Force path-style addressing"`
	}
}

// CreateEntryOutput returns the registered entry.
type CreateEntryOutput struct {
	Status int
	Body   EntryInfo
}

// EntryStatusOutput is one entry plus the result of a live bucket check.
// Status is "ok" or the taxonomy code of the failed check.
type EntryStatusOutput struct {
	Body struct {
		EntryInfo
		Status string `json:"status"`
	}
}

// ListEntriesOutput lists loaded entries in registration order.
type ListEntriesOutput struct {
	Body struct {
		Entries []EntryInfo `json:"entries"`
	}
}

// StatusBody is the minimal success body for side-effect operations.
type StatusBody struct {
	Status string `json:"status" example:"ok"`
}

// StatusOutput wraps StatusBody.
type StatusOutput struct {
	Body StatusBody
}

func entryInfo(id string, cc storage.ConnectionConfig) EntryInfo {
	return EntryInfo{
		EntryID:     id,
		Bucket:      cc.Bucket,
		EndpointURL: cc.EndpointURL,
		Path:        cc.BasePath,
	}
}

func (s *Server) registerEntryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "create-entry",
		Method:      http.MethodPost,
		Path:        "/api/entries",
		Summary:     "Validate and register a connection entry",
	}, func(ctx context.Context, input *CreateEntryInput) (*CreateEntryOutput, error) {
		cc := storage.ConnectionConfig{
			AccessKeyID:     input.Body.AccessKeyID,
			SecretAccessKey: input.Body.SecretAccessKey,
			Bucket:          input.Body.Bucket,
			EndpointURL:     input.Body.EndpointURL,
			BasePath:        input.Body.Path,
			Region:          input.Body.Region,
			UsePathStyle:    input.Body.UsePathStyle,
		}

		cc, err := s.validator.Validate(ctx, cc)
		if err != nil {
			metrics.ValidationsTotal.WithLabelValues(string(ferr.KindOf(err))).Inc()
			return nil, humaError(err)
		}
		metrics.ValidationsTotal.WithLabelValues("success").Inc()

		client, err := storage.NewClient(ctx, cc)
		if err != nil {
			return nil, humaError(err)
		}

		entryID := uuid.NewString()
		s.reg.Register(entryID, cc, client)
		metrics.EntriesLoaded.Set(float64(s.reg.Len()))
		slog.Info("registered connection entry", "entry", entryID, "bucket", cc.Bucket, "path", cc.BasePath)

		return &CreateEntryOutput{
			Status: http.StatusCreated,
			Body:   entryInfo(entryID, cc),
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-entries",
		Method:      http.MethodGet,
		Path:        "/api/entries",
		Summary:     "List loaded connection entries",
	}, func(ctx context.Context, _ *struct{}) (*ListEntriesOutput, error) {
		out := &ListEntriesOutput{}
		out.Body.Entries = []EntryInfo{}
		for _, h := range s.reg.Handles() {
			out.Body.Entries = append(out.Body.Entries, entryInfo(h.EntryID, h.Config))
		}
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-entry",
		Method:      http.MethodGet,
		Path:        "/api/entries/{id}",
		Summary:     "Show a connection entry and check its bucket is reachable",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*EntryStatusOutput, error) {
		h, err := s.reg.Resolve(input.ID)
		if err != nil {
			return nil, humaError(err)
		}
		out := &EntryStatusOutput{}
		out.Body.EntryInfo = entryInfo(h.EntryID, h.Config)
		out.Body.Status = "ok"
		if err := h.Client.HeadBucket(ctx); err != nil {
			out.Body.Status = string(ferr.KindOf(err))
		}
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-entry",
		Method:      http.MethodDelete,
		Path:        "/api/entries/{id}",
		Summary:     "Unregister a connection entry",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*StatusOutput, error) {
		if _, err := s.reg.Resolve(input.ID); err != nil {
			return nil, humaError(err)
		}
		s.reg.Unregister(input.ID)
		metrics.EntriesLoaded.Set(float64(s.reg.Len()))
		slog.Info("unregistered connection entry", "entry", input.ID)
		return &StatusOutput{Body: StatusBody{Status: "ok"}}, nil
	})
}

// GetFileInput requests a download into a local path.
type GetFileInput struct {
	Body struct {
		EntryID   string `json:"entry_id,omitempty" doc:"Entry selector, defaults to first configured"`
		Key       string `json:"key" required:"true" doc:"Relative object key"`
		LocalFile string `json:"local_file" required:"true" doc:"Local destination path"`
	}
}

// PutFileInput requests an upload from a local path.
type PutFileInput struct {
	Body struct {
		EntryID     string `json:"entry_id,omitempty"`
		Key         string `json:"key" required:"true"`
		LocalFile   string `json:"local_file" required:"true"`
		ContentType string `json:"content_type,omitempty" doc:"Defaults to application/octet-stream"`
	}
}

// DeleteFileInput requests an object deletion.
type DeleteFileInput struct {
	Body struct {
		EntryID string `json:"entry_id,omitempty"`
		Key     string `json:"key" required:"true"`
	}
}

// ListFilesInput requests one page of a folder listing.
type ListFilesInput struct {
	Body struct {
		EntryID   string `json:"entry_id,omitempty"`
		Prefix    string `json:"prefix,omitempty" doc:"Relative prefix, defaults to the base path root"`
		Delimiter string `json:"delimiter,omitempty" doc:"Defaults to /"`
		MaxKeys   int32  `json:"max_keys,omitempty" doc:"Defaults to 1000"`
		Cursor    string `json:"cursor,omitempty" doc:"Continuation cursor from a previous page"`
	}
}

// ListFilesOutput is one page of relative keys and prefixes.
type ListFilesOutput struct {
	Body storage.ListResult
}

func (s *Server) registerFileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-file",
		Method:      http.MethodPost,
		Path:        "/api/files/get",
		Summary:     "Download an object into a local file",
	}, func(ctx context.Context, input *GetFileInput) (*StatusOutput, error) {
		if err := s.dispatcher.GetFile(ctx, input.Body.EntryID, input.Body.Key, input.Body.LocalFile); err != nil {
			return nil, humaError(err)
		}
		return &StatusOutput{Body: StatusBody{Status: "ok"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "put-file",
		Method:      http.MethodPost,
		Path:        "/api/files/put",
		Summary:     "Upload a local file to an object",
	}, func(ctx context.Context, input *PutFileInput) (*StatusOutput, error) {
		if err := s.dispatcher.PutFile(ctx, input.Body.EntryID, input.Body.Key, input.Body.LocalFile, input.Body.ContentType); err != nil {
			return nil, humaError(err)
		}
		return &StatusOutput{Body: StatusBody{Status: "ok"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-file",
		Method:      http.MethodPost,
		Path:        "/api/files/delete",
		Summary:     "Delete an object",
	}, func(ctx context.Context, input *DeleteFileInput) (*StatusOutput, error) {
		if err := s.dispatcher.DeleteFile(ctx, input.Body.EntryID, input.Body.Key); err != nil {
			return nil, humaError(err)
		}
		return &StatusOutput{Body: StatusBody{Status: "ok"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-files",
		Method:      http.MethodPost,
		Path:        "/api/files/list",
		Summary:     "List objects under a relative prefix",
	}, func(ctx context.Context, input *ListFilesInput) (*ListFilesOutput, error) {
		result, err := s.dispatcher.ListFiles(ctx, input.Body.EntryID, input.Body.Prefix,
			input.Body.Delimiter, input.Body.MaxKeys, input.Body.Cursor)
		if err != nil {
			return nil, humaError(err)
		}
		return &ListFilesOutput{Body: *result}, nil
	})
}

// ListBackupsOutput enumerates stored backups.
type ListBackupsOutput struct {
	Body struct {
		Backups []backup.Backup `json:"backups"`
	}
}

func (s *Server) registerBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-backups",
		Method:      http.MethodGet,
		Path:        "/api/backups",
		Summary:     "Enumerate stored backups",
	}, func(ctx context.Context, input *struct {
		EntryID string `query:"entry_id"`
	}) (*ListBackupsOutput, error) {
		agent := backup.NewAgent(s.reg, input.EntryID)
		backups, err := agent.List(ctx)
		if err != nil {
			return nil, humaError(err)
		}
		out := &ListBackupsOutput{}
		out.Body.Backups = backups
		if out.Body.Backups == nil {
			out.Body.Backups = []backup.Backup{}
		}
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-backup",
		Method:      http.MethodDelete,
		Path:        "/api/backups/{id}",
		Summary:     "Delete a stored backup",
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		EntryID string `query:"entry_id"`
	}) (*StatusOutput, error) {
		agent := backup.NewAgent(s.reg, input.EntryID)
		if err := agent.Delete(ctx, input.ID); err != nil {
			return nil, humaError(err)
		}
		return &StatusOutput{Body: StatusBody{Status: "ok"}}, nil
	})

	// Upload and download move raw archive bytes, so they bypass Huma's JSON
	// plumbing and stream through plain chi handlers.
	s.router.Post("/api/backups/{id}", s.handleBackupUpload)
	s.router.Get("/api/backups/{id}/download", s.handleBackupDownload)
}

func (s *Server) handleBackupUpload(w http.ResponseWriter, r *http.Request) {
	backupID := chi.URLParam(r, "id")
	if r.ContentLength < 0 {
		http.Error(w, "Content-Length required", http.StatusLengthRequired)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = backupID
	}
	meta := backup.Backup{
		ID:        backupID,
		Name:      name,
		Size:      r.ContentLength,
		CreatedAt: time.Now().UTC(),
	}

	agent := backup.NewAgent(s.reg, r.URL.Query().Get("entry_id"))
	if err := agent.Upload(r.Context(), meta, r.Body); err != nil {
		writeJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleBackupDownload(w http.ResponseWriter, r *http.Request) {
	backupID := chi.URLParam(r, "id")
	agent := backup.NewAgent(s.reg, r.URL.Query().Get("entry_id"))

	body, size, err := agent.Download(r.Context(), backupID)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-tar")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		// Headers are already out; just log the broken transfer.
		slog.Warn("backup download interrupted", "backup_id", backupID, "error", err)
	}
}

// errorBody is the JSON error shape for the raw (non-Huma) endpoints.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	EntryID string `json:"entry_id,omitempty"`
	Key     string `json:"key,omitempty"`
}

func writeJSONError(w http.ResponseWriter, err error) {
	body := errorBody{Code: string(ferr.KindUnknown), Message: "internal error"}
	status := http.StatusInternalServerError

	var e *ferr.Error
	if ferr.As(err, &e) {
		body = errorBody{
			Code:    string(e.Kind),
			Message: e.Message,
			EntryID: e.EntryID,
			Key:     e.Key,
		}
		status = statusFor(e.Kind)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
