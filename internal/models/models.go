package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentRecord describes a stored item as returned by the content service.
type ContentRecord struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	FileSize         int64     `json:"file_size"`
	Category         string    `json:"category"`
	UploadTimestamp  Timestamp `json:"upload_timestamp"`
	Tags             []string  `json:"tags"`
	Description      string    `json:"description,omitempty"`
	ThumbnailID      string    `json:"thumbnail_id,omitempty"`
	ProcessingStatus string    `json:"processing_status"`
}

const (
	ProcessingStatusPending    = "pending"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusFailed     = "failed"
)

// UploadResult is the service's acknowledgement of an accepted upload.
type UploadResult struct {
	Message   string `json:"message"`
	ContentID string `json:"content_id"`
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp Timestamp `json:"timestamp"`
}

// ErrorResponse is the error body the service sends with non-2xx statuses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Timestamp decodes RFC 3339 times as well as the zone-less ISO 8601 form
// the service emits for stored records, which is UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("decode timestamp: unrecognised format %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
