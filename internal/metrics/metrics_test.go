package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/docs", "/docs"},
		{"/docs/index.html", "/docs"},
		{"/api/entries", "/api/entries"},
		{"/api/entries/0123abcd", "/api/entries/{id}"},
		{"/api/files/get", "/api/files/get"},
		{"/api/files/list", "/api/files/list"},
		{"/api/backups", "/api/backups"},
		{"/api/backups/b1", "/api/backups/{id}"},
		{"/api/backups/b1/download", "/api/backups/{id}/download"},
		{"/favicon.ico", "/other"},
		{"/api/unknown", "/other"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.path); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRegisterIdempotent(t *testing.T) {
	// MustRegister panics on duplicate registration; the sync.Once guard must
	// absorb repeated calls.
	Register()
	Register()
}
