package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Upload transports selectable through GIZZLE_UPLOAD_TRANSPORT.
const (
	TransportHTTP = "http"
	TransportS3   = "s3"
)

// Config captures the runtime configuration of the gizzle client.
type Config struct {
	APIURL      string
	LogLevel    string
	HTTPTimeout time.Duration
	RateLimit   RateLimitConfig

	UploadTransport string
	ObjectStore     ObjectStoreConfig

	FFProbePath      string
	FFProbeTimeout   time.Duration
	MetadataCacheTTL time.Duration
	MetadataTimeout  time.Duration
}

// RateLimitConfig bounds outbound requests per host.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// ObjectStoreConfig describes the S3-compatible store used by the s3 upload
// transport.
type ObjectStoreConfig struct {
	Bucket        string
	Endpoint      string
	Region        string
	PublicBaseURL string
}

// Load reads configuration from environment variables, applying defaults
// suited to a local content service.
func Load() (Config, error) {
	cfg := Config{
		APIURL:      getString("GIZZLE_API_URL", "http://localhost:8001/api"),
		LogLevel:    getString("GIZZLE_LOG_LEVEL", "info"),
		HTTPTimeout: getDuration("GIZZLE_HTTP_TIMEOUT", 30*time.Second),
		RateLimit: RateLimitConfig{
			Requests: getInt("GIZZLE_RATE_LIMIT_REQUESTS", 10),
			Window:   getDuration("GIZZLE_RATE_LIMIT_WINDOW", time.Second),
			Burst:    getInt("GIZZLE_RATE_LIMIT_BURST", 5),
		},
		UploadTransport: strings.ToLower(getString("GIZZLE_UPLOAD_TRANSPORT", TransportHTTP)),
		ObjectStore: ObjectStoreConfig{
			Bucket:        getString("GIZZLE_S3_BUCKET", ""),
			Endpoint:      getString("GIZZLE_S3_ENDPOINT", ""),
			Region:        getString("GIZZLE_S3_REGION", "us-east-1"),
			PublicBaseURL: getString("GIZZLE_S3_PUBLIC_URL", ""),
		},
		FFProbePath:      getString("GIZZLE_FFPROBE_PATH", "ffprobe"),
		FFProbeTimeout:   getDuration("GIZZLE_FFPROBE_TIMEOUT", 30*time.Second),
		MetadataCacheTTL: getDuration("GIZZLE_METADATA_CACHE_TTL", 15*time.Minute),
		MetadataTimeout:  getDuration("GIZZLE_METADATA_TIMEOUT", 0),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("GIZZLE_API_URL: %q is not an absolute URL", c.APIURL))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GIZZLE_HTTP_TIMEOUT: must be positive"))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("GIZZLE_RATE_LIMIT_*: requests, window and burst must be positive"))
	}
	switch c.UploadTransport {
	case TransportHTTP:
	case TransportS3:
		if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
			errs = append(errs, fmt.Errorf("GIZZLE_S3_BUCKET: required when GIZZLE_UPLOAD_TRANSPORT=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("GIZZLE_UPLOAD_TRANSPORT: unknown transport %q", c.UploadTransport))
	}
	if c.MetadataTimeout < 0 {
		errs = append(errs, fmt.Errorf("GIZZLE_METADATA_TIMEOUT: must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
