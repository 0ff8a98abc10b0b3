package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/gizzletv/client/internal/config"
	"github.com/gizzletv/client/internal/logging"
	"github.com/gizzletv/client/internal/upload"
)

// PartSize is the multipart chunk size used for object uploads.
const PartSize = 5 * 1024 * 1024

// ErrBucketRequired indicates the object store was configured without a bucket.
var ErrBucketRequired = errors.New("s3 storage: bucket is required")

// objectUploader is the subset of manager.Uploader used by S3Transport.
type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Transport implements upload.Transport by writing directly to an
// S3-compatible object store.
type S3Transport struct {
	uploader objectUploader
	bucket   string
	baseURL  string
	newID    func() string
}

var _ upload.Transport = (*S3Transport)(nil)

// NewS3Transport configures an uploader targeting the provided object store.
func NewS3Transport(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Transport, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrBucketRequired
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = PartSize
		u.LeavePartsOnError = false
	})

	return newS3Transport(uploader, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newS3Transport(uploader objectUploader, bucket, publicBaseURL string) *S3Transport {
	return &S3Transport{
		uploader: uploader,
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/"),
		newID:    uuid.NewString,
	}
}

// Upload stores the file under <category>/<id><ext>. Failed multipart uploads
// are aborted; nothing is resumed.
func (s *S3Transport) Upload(ctx context.Context, req upload.Request, progress upload.ProgressFunc) error {
	if req.File.Body == nil {
		return fmt.Errorf("s3 storage: empty body for %s", req.File.Name)
	}
	key := s.objectKey(req)
	logger := logging.FromContext(ctx)

	description := req.Description
	if description == "" {
		description = upload.DefaultDescription(req.Category)
	}
	contentType := upload.DetectContentType(req.File.Name, req.File.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if progress != nil {
		progress(0, req.File.Size)
	}
	body := upload.NewProgressReader(req.File.Body, req.File.Size, progress)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"category":          string(req.Category),
			"description":       headerSafe(description),
			"original-filename": headerSafe(req.File.Name),
			"tags":              headerSafe(strings.Join(req.Tags, ",")),
		},
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	location := s.PublicURL(key)
	if location == "" && out != nil {
		location = out.Location
	}
	logger.Info("object stored", "bucket", s.bucket, "key", key, "bytes", body.BytesRead(), "location", location)
	return nil
}

// PublicURL returns the public location of key, or "" without a configured
// public base URL.
func (s *S3Transport) PublicURL(key string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.baseURL, strings.TrimLeft(key, "/"))
}

func (s *S3Transport) objectKey(req upload.Request) string {
	ext := strings.ToLower(filepath.Ext(req.File.Name))
	return fmt.Sprintf("%s/%s%s", req.Category, s.newID(), ext)
}

// headerSafe encodes non-ASCII metadata values, which S3 rejects in headers.
func headerSafe(v string) string {
	return mime.QEncoding.Encode("utf-8", v)
}
