package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folderstore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9400 {
		t.Errorf("Server.Port = %d, want 9400", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30 {
		t.Errorf("Server.ShutdownTimeout = %d, want 30", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.Validation.AllowAnyEndpoint {
		t.Error("Validation.AllowAnyEndpoint = true, want false by default")
	}
	if len(cfg.Entries) != 0 {
		t.Errorf("Entries = %+v, want none", cfg.Entries)
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9500
logging:
  level: debug
  format: json
validation:
  allow_any_endpoint: true
entries:
  - id: e1
    access_key_id: AKIATEST
    secret_access_key: secret
    bucket: test-bucket
    endpoint_url: https://s3.eu-central-1.amazonaws.com/
    path: home/
    region: eu-central-1
  - access_key_id: AKIAOTHER
    secret_access_key: other
    bucket: other-bucket
    endpoint_url: https://minio.local:9000/
    use_path_style: true
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9500 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.ShutdownTimeout != 30 {
		t.Errorf("ShutdownTimeout = %d, want default 30", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Validation.AllowAnyEndpoint {
		t.Error("AllowAnyEndpoint = false, want true")
	}
	if len(cfg.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(cfg.Entries))
	}

	e1 := cfg.Entries[0]
	if e1.ID != "e1" {
		t.Errorf("entry id = %q, want e1", e1.ID)
	}
	if e1.Bucket != "test-bucket" || e1.BasePath != "home/" || e1.Region != "eu-central-1" {
		t.Errorf("entry connection = %+v", e1.ConnectionConfig)
	}
	if e1.AccessKeyID != "AKIATEST" || e1.SecretAccessKey != "secret" {
		t.Errorf("entry credentials not parsed: %+v", e1.ConnectionConfig)
	}

	e2 := cfg.Entries[1]
	if e2.ID == "" {
		t.Error("second entry did not get a generated id")
	}
	if e2.ID == e1.ID {
		t.Error("generated id collides with configured id")
	}
	if e2.Region != "us-east-1" {
		t.Errorf("second entry region = %q, want default us-east-1", e2.Region)
	}
	if !e2.UsePathStyle {
		t.Error("use_path_style not parsed")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load(absent) = nil error, want failure")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not a map\n")); err == nil {
		t.Error("Load(malformed) = nil error, want failure")
	}
}
