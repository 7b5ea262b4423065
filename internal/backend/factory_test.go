package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"savings/internal/config"
	"savings/internal/storage"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"unknown", Config{Type: "postgres"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "sqlite,memory" {
		t.Fatalf("got %s", got)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(quiet()).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.KV.(*storage.MemoryKV); !ok {
		t.Fatalf("expected MemoryKV, got %T", res.KV)
	}
	if res.Cleanup != nil {
		t.Fatal("memory backend needs no cleanup")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "savings.db")
	res, err := NewFactory(quiet()).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if err := res.KV.Set(ctx, storage.GoalsKey, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	v, ok, err := res.KV.Get(ctx, storage.GoalsKey)
	if err != nil || !ok || string(v) != "[]" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
}

func TestCreateExporter(t *testing.T) {
	f := NewFactory(quiet())
	res, err := f.CreateExporter(context.Background(), ExporterConfig{})
	if err != nil || res.Kind != "memory" {
		t.Fatalf("expected memory exporter, got %+v %v", res, err)
	}

	_, err = f.CreateExporter(context.Background(), ExporterConfig{GoogleSpreadsheetID: "sheet-1"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}
