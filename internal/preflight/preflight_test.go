package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"wspsr/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryReadable_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if result := CheckDirectoryReadable("watch", dir); !result.Passed {
		t.Fatalf("expected read-only dir to be readable: %s", result.Detail)
	}
	if result := CheckDirectoryAccess("state", dir); result.Passed {
		t.Fatal("expected read-only dir to fail write check")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %#v", failed)
	}

	if err := os.RemoveAll(cfg.Paths.WatchDir); err != nil {
		t.Fatal(err)
	}
	failed := Failed(RunAll(cfg))
	if len(failed) != 1 || failed[0].Name != "Watched directory" {
		t.Fatalf("expected watched directory failure, got %#v", failed)
	}
}

func TestCheckSystemDepsUsesStubs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	for _, status := range CheckSystemDeps(cfg) {
		if !status.Available {
			t.Fatalf("expected %s to resolve from stub PATH: %s", status.Name, status.Detail)
		}
	}
}
