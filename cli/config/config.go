package config

import (
	"fmt"
	"time"
)

// Config represents a nixtract.yaml configuration file. All values are
// optional and act as defaults for nixtract extract flags. CLI flags
// always override config values.
type Config struct {
	TargetFlakeRef      string     `yaml:"target_flake_ref"`
	TargetSystem        string     `yaml:"target_system"`
	TargetAttributePath string     `yaml:"target_attribute_path"`
	NWorkers            int        `yaml:"n_workers"`
	Offline             bool       `yaml:"offline"`
	Evaluator           Evaluator  `yaml:"evaluator"`
	Sink                SinkConfig `yaml:"sink"`
}

// Evaluator names the evaluator binary and the finder/describer
// expression files it is invoked with.
type Evaluator struct {
	Path              string `yaml:"path"`
	FinderExprPath    string `yaml:"finder_expr_path"`
	DescriberExprPath string `yaml:"describer_expr_path"`
}

// SinkConfig selects and configures the output sink for an extraction run.
type SinkConfig struct {
	// Type is "local" (default) or "s3".
	Type string   `yaml:"type"`
	Path string   `yaml:"path"`
	S3   S3Config `yaml:"s3"`
}

// S3Config holds configuration for the S3-backed output sink.
type S3Config struct {
	// Bucket is the S3 bucket name (required when Sink.Type is "s3").
	Bucket string `yaml:"bucket"`
	// Prefix is the key prefix within the bucket (optional).
	Prefix string `yaml:"prefix"`
	// Region is the AWS region (optional, uses default chain if empty).
	Region string `yaml:"region"`
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string `yaml:"endpoint"`
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool `yaml:"use_path_style"`
	// FlushInterval bounds how long buffered records may sit before an
	// upload, trading fewer PUTs for larger at-risk windows on crash.
	FlushInterval Duration `yaml:"flush_interval"`
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	return nil
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
