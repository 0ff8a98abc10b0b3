package upload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// mediaExtensions covers common media types missing from the builtin table
// when the host has no mime.types file.
var mediaExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".heic": "image/heic",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
}

// File is a locally selected file ready to be submitted.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// OpenFile opens path for upload. The caller closes the returned closer once
// the transfer has finished.
func OpenFile(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("open upload file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return File{}, nil, fmt.Errorf("stat upload file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return File{}, nil, fmt.Errorf("open upload file: %s is a directory", path)
	}

	name := filepath.Base(path)
	return File{
		Name:        name,
		Size:        info.Size(),
		ContentType: DetectContentType(name, ""),
		Body:        f,
	}, f, nil
}

// DetectContentType returns declared when set, otherwise the type registered
// for the file extension, stripped of parameters.
func DetectContentType(name, declared string) string {
	ct := strings.TrimSpace(declared)
	if ct == "" {
		ext := strings.ToLower(filepath.Ext(name))
		ct = mime.TypeByExtension(ext)
		if ct == "" {
			ct = mediaExtensions[ext]
		}
	}
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mediaType
}

// Validate checks file against the ceiling and media class of category.
// Validation never touches the transport.
func Validate(file File, category Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if file.Size > category.Ceiling() {
		return fmt.Errorf("%w: %d bytes exceeds %s ceiling of %s", ErrFileTooLarge, file.Size, category, FormatBytes(category.Ceiling()))
	}

	ct := DetectContentType(file.Name, file.ContentType)
	class, _, _ := strings.Cut(ct, "/")
	if class != category.MediaClass() {
		return fmt.Errorf("%w: %q is not %s/*", ErrUnsupportedType, ct, category.MediaClass())
	}
	return nil
}
