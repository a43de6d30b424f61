package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/onnwee/golocal/internal/config"
	"github.com/onnwee/golocal/internal/prefs"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLoadCatalog_Embedded(t *testing.T) {
	catalog, err := loadCatalog(&config.Config{}, testLogger)
	if err != nil {
		t.Fatalf("loadCatalog() error = %v", err)
	}
	if catalog.Len() == 0 {
		t.Error("embedded catalog is empty")
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	cfg := &config.Config{DatasetPath: filepath.Join(t.TempDir(), "absent.json")}
	if _, err := loadCatalog(cfg, testLogger); err == nil {
		t.Error("loadCatalog() with a missing file returned no error")
	}
}

func TestOpenBackend(t *testing.T) {
	tests := []struct {
		name         string
		cfg          config.Config
		wantDeps     int
		wantCritical bool
	}{
		{
			name: "memory",
			cfg:  config.Config{PrefsBackend: config.PrefsBackendMemory},
		},
		{
			name: "file",
			cfg:  config.Config{PrefsBackend: config.PrefsBackendFile, PrefsFile: filepath.Join(t.TempDir(), "prefs.json")},
		},
		{
			// sqlx.Open does not dial; an unreachable server is logged, not fatal.
			name:         "postgres",
			cfg:          config.Config{PrefsBackend: config.PrefsBackendPostgres, DatabaseURL: "postgres://golocal@127.0.0.1:1/golocal?sslmode=disable&connect_timeout=1"},
			wantDeps:     1,
			wantCritical: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, err := openBackend(context.Background(), &tt.cfg, nil, testLogger)
			if err != nil {
				t.Fatalf("openBackend() error = %v", err)
			}
			defer be.close()

			if be.store == nil {
				t.Fatal("store is nil")
			}
			if len(be.deps) != tt.wantDeps {
				t.Fatalf("deps = %d, want %d", len(be.deps), tt.wantDeps)
			}
			if tt.wantDeps > 0 && be.deps[0].Critical != tt.wantCritical {
				t.Errorf("critical = %v, want %v", be.deps[0].Critical, tt.wantCritical)
			}
		})
	}
}

func TestOpenBackend_FileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	cfg := &config.Config{PrefsBackend: config.PrefsBackendFile, PrefsFile: path}

	be, err := openBackend(context.Background(), cfg, nil, testLogger)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	ctx := context.Background()
	if err := be.store.Set(ctx, "device-1", prefs.KeyDarkMode, "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reopened, err := openBackend(ctx, cfg, nil, testLogger)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	v, found, err := reopened.store.Get(ctx, "device-1", prefs.KeyDarkMode)
	if err != nil || !found || v != "true" {
		t.Errorf("Get() = %q, %v, %v; want persisted value", v, found, err)
	}
}
