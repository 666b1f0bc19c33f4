package types

import (
	"context"
	"errors"
	"io"
)

// Transport provides uniform CRUD operations against the remote resource API.
// Each call maps to GET/POST/PUT/DELETE /{resource}[/{id}] on the configured
// base URL. Non-2xx responses are returned as errors that implement
// StatusError.
type Transport interface {
	// List returns every row of the resource in server order.
	List(ctx context.Context, resource string) ([]Row, error)

	// Get retrieves a single row. Returns an error matching ErrNotFound when
	// the server answers 404.
	Get(ctx context.Context, resource string, id int64) (Row, error)

	// Create posts a new row and returns the server representation. The
	// returned row may lack an id when the backend omits it.
	Create(ctx context.Context, resource string, payload map[string]any) (Row, error)

	// Update replaces the editable fields of an existing row.
	Update(ctx context.Context, resource string, id int64, payload map[string]any) (Row, error)

	// Remove deletes the row with the given id.
	Remove(ctx context.Context, resource string, id int64) error
}

// FileUpload is one file attached to a multipart request.
type FileUpload struct {
	Name   string
	Reader io.Reader
}

// Uploader sends multipart requests to resource-specific sub-paths such as
// /product-images/upload or /merchant/users/{id}/photo.
type Uploader interface {
	// Upload posts file under fileField together with the plain form fields
	// and returns the decoded JSON response (nil when the body is empty).
	Upload(ctx context.Context, path, fileField string, file FileUpload, fields map[string]string) (Row, error)
}

// StatusError is implemented by transport errors that carry an HTTP status and
// the raw response body.
type StatusError interface {
	error
	StatusCode() int
	ResponseBody() []byte
}

// Transport errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidID      = errors.New("invalid record ID")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrForbidden      = errors.New("access denied")
	ErrNoUploadTarget = errors.New("resource has no upload target")
)
