package upload

import (
	"fmt"
	"strings"
)

// Category selects the size ceiling and accepted media types of an upload.
// Values are the wire names used by the content service.
type Category string

const (
	CategoryVideos   Category = "videos"
	CategoryPictures Category = "pictures"
)

// Size ceilings are policy constants and not configurable.
const (
	VideoCeiling   int64 = 10 << 30
	PictureCeiling int64 = 100 << 20
)

// ParseCategory accepts the wire names as well as their singular forms.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "videos", "video":
		return CategoryVideos, nil
	case "pictures", "picture":
		return CategoryPictures, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryVideos || c == CategoryPictures
}

// Ceiling returns the maximum permitted size in bytes, or 0 for unknown categories.
func (c Category) Ceiling() int64 {
	switch c {
	case CategoryVideos:
		return VideoCeiling
	case CategoryPictures:
		return PictureCeiling
	default:
		return 0
	}
}

// MediaClass is the top-level MIME type accepted for the category.
func (c Category) MediaClass() string {
	switch c {
	case CategoryVideos:
		return "video"
	case CategoryPictures:
		return "image"
	default:
		return ""
	}
}

// Singular is the display noun for one item, e.g. "video".
func (c Category) Singular() string {
	return strings.TrimSuffix(string(c), "s")
}
