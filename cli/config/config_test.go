package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `target_flake_ref: github:NixOS/nixpkgs
target_system: x86_64-linux
target_attribute_path: hello
n_workers: 8
offline: true

evaluator:
  path: /usr/bin/nix
  finder_expr_path: ./finder.nix
  describer_expr_path: ./describer.nix

sink:
  type: s3
  s3:
    bucket: my-bucket
    prefix: graphs/
    region: us-east-1
    endpoint: https://example.com
    use_path_style: true
    flush_interval: 10s
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "target_flake_ref", cfg.TargetFlakeRef, "github:NixOS/nixpkgs")
	assertEqual(t, "target_system", cfg.TargetSystem, "x86_64-linux")
	assertEqual(t, "target_attribute_path", cfg.TargetAttributePath, "hello")
	if cfg.NWorkers != 8 {
		t.Errorf("expected n_workers=8, got %d", cfg.NWorkers)
	}
	if !cfg.Offline {
		t.Error("expected offline=true")
	}

	assertEqual(t, "evaluator.path", cfg.Evaluator.Path, "/usr/bin/nix")
	assertEqual(t, "evaluator.finder_expr_path", cfg.Evaluator.FinderExprPath, "./finder.nix")
	assertEqual(t, "evaluator.describer_expr_path", cfg.Evaluator.DescriberExprPath, "./describer.nix")

	assertEqual(t, "sink.type", cfg.Sink.Type, "s3")
	assertEqual(t, "sink.s3.bucket", cfg.Sink.S3.Bucket, "my-bucket")
	assertEqual(t, "sink.s3.prefix", cfg.Sink.S3.Prefix, "graphs/")
	assertEqual(t, "sink.s3.region", cfg.Sink.S3.Region, "us-east-1")
	assertEqual(t, "sink.s3.endpoint", cfg.Sink.S3.Endpoint, "https://example.com")
	if !cfg.Sink.S3.UsePathStyle {
		t.Error("expected sink.s3.use_path_style=true")
	}
	if cfg.Sink.S3.FlushInterval.Duration != 10*time.Second {
		t.Errorf("expected sink.s3.flush_interval=10s, got %v", cfg.Sink.S3.FlushInterval.Duration)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TargetFlakeRef != "" {
		t.Errorf("expected empty target_flake_ref, got %q", cfg.TargetFlakeRef)
	}
	if cfg.NWorkers != 0 {
		t.Errorf("expected zero-value n_workers, got %d", cfg.NWorkers)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/nixtract.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_FLAKE_REF", "github:NixOS/nixpkgs")

	yaml := `target_flake_ref: ${TEST_FLAKE_REF}`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "target_flake_ref", cfg.TargetFlakeRef, "github:NixOS/nixpkgs")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `target_flake_ref: github:NixOS/nixpkgs
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `sink:
  type: local
  path: ./out.jsonl
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	yaml := "sink:\n  s3:\n    flush_interval: 30s\n"
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sink.S3.FlushInterval.Duration != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Sink.S3.FlushInterval.Duration)
	}
}

func TestS3Config_Validate_RequiresBucket(t *testing.T) {
	var s3cfg S3Config
	if err := s3cfg.Validate(); err == nil {
		t.Fatal("expected error for missing bucket")
	}
	s3cfg.Bucket = "my-bucket"
	if err := s3cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nixtract.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
