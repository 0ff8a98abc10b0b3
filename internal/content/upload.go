package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gizzletv/client/internal/logging"
	"github.com/gizzletv/client/internal/models"
	"github.com/gizzletv/client/internal/upload"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload streams req to the service as a multipart form. The file body is
// piped straight into the request and never buffered whole.
func (c *Client) Upload(ctx context.Context, req upload.Request, progress upload.ProgressFunc) error {
	if req.File.Body == nil {
		return fmt.Errorf("upload %s: empty file body", req.File.Name)
	}
	logger := logging.FromContext(ctx)

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(form, req, progress))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/content/upload", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	if progress != nil {
		progress(0, req.File.Size)
	}

	resp, err := c.uploads.Do(httpReq)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("send upload: %w", err)
	}
	defer resp.Body.Close()
	// unblocks the writer when the server answers before reading the whole body
	_ = pr.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload %s: %w", req.File.Name, rejection(resp))
	}

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Warn("upload acknowledged without readable body", "file", req.File.Name, "error", err)
		return nil
	}
	logger.Info("upload accepted", "file", req.File.Name, "contentId", result.ContentID)
	return nil
}

func writeForm(form *multipart.Writer, req upload.Request, progress upload.ProgressFunc) error {
	description := req.Description
	if description == "" {
		description = upload.DefaultDescription(req.Category)
	}
	fields := [][2]string{
		{"category", string(req.Category)},
		{"description", description},
		{"tags", strings.Join(req.Tags, ",")},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("write field %s: %w", field[0], err)
		}
	}

	contentType := upload.DetectContentType(req.File.Name, req.File.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.File.Name)))
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	body := upload.NewProgressReader(req.File.Body, req.File.Size, progress)
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("copy file body: %w", err)
	}
	return form.Close()
}
