package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
service:
  port: 9090
s3:
  bucket: data-bucket
  region: us-west-2
massive:
  base_url: https://api.example.com
  api_key: secret
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Service.Port != 9090 {
		t.Errorf("port = %d", config.Service.Port)
	}
	if config.Service.Name != "datamanager" || config.Service.ReadTimeoutSeconds != 30 {
		t.Errorf("defaults not applied: %+v", config.Service)
	}
	if config.S3.Bucket != "data-bucket" || config.Massive.APIKey != "secret" {
		t.Errorf("config = %+v", config)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
s3:
  bucket: from-file
  region: us-east-1
massive:
  base_url: https://file.example.com
`)
	t.Setenv("AWS_S3_DATA_BUCKET_NAME", "from-env")
	t.Setenv("MASSIVE_API_KEY", "env-key")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.S3.Bucket != "from-env" {
		t.Errorf("bucket = %q, want env override", config.S3.Bucket)
	}
	if config.Massive.APIKey != "env-key" {
		t.Errorf("api key = %q", config.Massive.APIKey)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	path := writeTempConfig(t, `
service:
  port: 8080
`)
	for _, env := range []string{"AWS_S3_DATA_BUCKET_NAME", "AWS_REGION", "MASSIVE_BASE_URL", "MASSIVE_API_KEY"} {
		t.Setenv(env, "")
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for missing bucket")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
