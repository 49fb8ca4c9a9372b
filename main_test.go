package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"editiond/server"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"err", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tc := range cases {
		got, err := parseLogLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestProbeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GitHub answers bare HEADs with 404; that still proves reachability.
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := probeURL(context.Background(), srv.URL); err != nil {
		t.Errorf("probeURL(%s) returned error: %v", srv.URL, err)
	}
}

func TestProbeURLServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := probeURL(context.Background(), srv.URL); err == nil {
		t.Errorf("probeURL should report 5xx answers")
	}
}

func TestProbeURLUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if err := probeURL(context.Background(), srv.URL); err == nil {
		t.Errorf("probeURL should fail against a closed listener")
	}
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editiond.yaml")

	if err := runConfigInit(path); err != nil {
		t.Fatalf("runConfigInit returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// LoadConfig must accept its own generated file shape once credentials
	// arrive from the environment.
	t.Setenv("GITHUB_CLIENT_ID_USER", "user-app")
	t.Setenv("GITHUB_CLIENT_SECRET_USER", "user-secret")
	t.Setenv("GITHUB_CLIENT_ID_ORGANIZATION", "org-app")
	t.Setenv("GITHUB_CLIENT_SECRET_ORGANIZATION", "org-secret")
	if _, err := server.LoadConfig(path); err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}

	if err := runConfigInit(path); err == nil {
		t.Fatalf("runConfigInit should refuse to overwrite an existing file")
	}
}

func TestProbeTargets(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.GitHub.APIBaseURL = "https://api.github.test/"
	cfg.GitHub.TokenURL = "https://github.test/login/oauth/access_token"

	targets := probeTargets(cfg)
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}
	if targets[0] != "https://api.github.test" {
		t.Errorf("API target = %q, want trailing slash trimmed", targets[0])
	}
	if targets[1] != cfg.GitHub.TokenURL {
		t.Errorf("token target = %q, want %q", targets[1], cfg.GitHub.TokenURL)
	}
}
