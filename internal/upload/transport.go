package upload

import (
	"context"
	"fmt"
)

// Request is the payload submitted to the content service.
type Request struct {
	File        File
	Category    Category
	Description string
	Tags        []string
}

// DefaultDescription is the tag sent when the caller supplies no description.
func DefaultDescription(category Category) string {
	return fmt.Sprintf("Uploaded %s", category.Singular())
}

// Transport streams a request to remote storage, reporting cumulative
// progress. Implementations must not retry and must restart from byte 0 on
// every call.
type Transport interface {
	Upload(ctx context.Context, req Request, progress ProgressFunc) error
}
