package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"GIZZLE_API_URL", "GIZZLE_UPLOAD_TRANSPORT", "GIZZLE_S3_BUCKET", "GIZZLE_METADATA_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "http://localhost:8001/api" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.UploadTransport != TransportHTTP {
		t.Fatalf("unexpected transport %q", cfg.UploadTransport)
	}
	if cfg.RateLimit != (RateLimitConfig{Requests: 10, Window: time.Second, Burst: 5}) {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.MetadataTimeout != 0 || cfg.MetadataCacheTTL != 15*time.Minute {
		t.Fatalf("unexpected metadata settings %+v", cfg)
	}
	if cfg.ObjectStore.Region != "us-east-1" {
		t.Fatalf("unexpected region %q", cfg.ObjectStore.Region)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GIZZLE_API_URL", "https://media.example.com/api")
	t.Setenv("GIZZLE_HTTP_TIMEOUT", "5s")
	t.Setenv("GIZZLE_UPLOAD_TRANSPORT", "S3")
	t.Setenv("GIZZLE_S3_BUCKET", "uploads")
	t.Setenv("GIZZLE_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("GIZZLE_METADATA_TIMEOUT", "20s")
	t.Setenv("GIZZLE_RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.MetadataTimeout != 20*time.Second {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.UploadTransport != TransportS3 || cfg.ObjectStore.Bucket != "uploads" || cfg.ObjectStore.Endpoint != "http://localhost:9000" {
		t.Fatalf("unexpected object store settings %+v", cfg)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Fatalf("malformed integer should fall back, got %d", cfg.RateLimit.Burst)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("GIZZLE_API_URL", "localhost")
	t.Setenv("GIZZLE_UPLOAD_TRANSPORT", "s3")
	t.Setenv("GIZZLE_S3_BUCKET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"GIZZLE_API_URL", "GIZZLE_S3_BUCKET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidateUnknownTransport(t *testing.T) {
	cfg := Config{
		APIURL:          "http://localhost:8001/api",
		HTTPTimeout:     time.Second,
		RateLimit:       RateLimitConfig{Requests: 1, Window: time.Second, Burst: 1},
		UploadTransport: "ftp",
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ftp") {
		t.Fatalf("expected unknown transport error got %v", err)
	}
}
