// Package transport implements the REST collaborators of the console: the
// uniform resource API (types.Transport) and multipart uploads
// (types.Uploader).
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// HeaderRequestID carries a fresh id on every request.
const HeaderRequestID = "X-Request-ID"

// TokenSource returns the bearer token to attach to a request, or "" for
// none.
type TokenSource func() string

// Options configure a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Token      TokenSource
	Logger     *zap.Logger
	// HTTPClient replaces the default http.Client, e.g. in tests.
	HTTPClient *http.Client
}

// Client talks to the resource API at one base URL.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(opts.BaseURL).
		SetRetryCount(opts.RetryCount).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	token := opts.Token
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(HeaderRequestID, uuid.NewString())
		if token != nil {
			if t := token(); t != "" {
				r.SetAuthToken(t)
			}
		}
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("api request",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.String("request_id", resp.Request.Header.Get(HeaderRequestID)),
			zap.Duration("elapsed", resp.Time()),
		)
		return nil
	})
	return &Client{http: rc, logger: logger}
}

// Send issues one JSON request and decodes an object response. A nil body
// sends no payload; an empty response decodes to a nil row.
func (c *Client) Send(ctx context.Context, method, path string, body any) (types.Row, error) {
	raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return decodeRow(method, path, raw)
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return nil, newAPIError(method, path, resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

func resourcePath(resource string) string {
	return "/" + url.PathEscape(resource)
}

func recordPath(resource string, id int64) string {
	return resourcePath(resource) + "/" + types.FormatID(id)
}

// List returns every row of resource. The server may answer with a bare
// array or a {"data": [...]} envelope.
func (c *Client) List(ctx context.Context, resource string) ([]types.Row, error) {
	path := resourcePath(resource)
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(http.MethodGet, path, raw)
}

// Get returns the row of resource with id.
func (c *Client) Get(ctx context.Context, resource string, id int64) (types.Row, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	return c.Send(ctx, http.MethodGet, recordPath(resource, id), nil)
}

// Create posts payload to resource.
func (c *Client) Create(ctx context.Context, resource string, payload map[string]any) (types.Row, error) {
	if payload == nil {
		return nil, types.ErrInvalidPayload
	}
	return c.Send(ctx, http.MethodPost, resourcePath(resource), payload)
}

// Update puts payload to the row of resource with id.
func (c *Client) Update(ctx context.Context, resource string, id int64, payload map[string]any) (types.Row, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	if payload == nil {
		return nil, types.ErrInvalidPayload
	}
	return c.Send(ctx, http.MethodPut, recordPath(resource, id), payload)
}

// Remove deletes the row of resource with id.
func (c *Client) Remove(ctx context.Context, resource string, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	_, err := c.do(ctx, http.MethodDelete, recordPath(resource, id), nil)
	return err
}

// Upload posts file as multipart form data under fileField, together with
// the plain form fields.
func (c *Client) Upload(ctx context.Context, path, fileField string, file types.FileUpload, fields map[string]string) (types.Row, error) {
	if file.Reader == nil {
		return nil, fmt.Errorf("upload to %s: %w", path, types.ErrInvalidPayload)
	}
	req := c.http.R().
		SetContext(ctx).
		SetFileReader(fileField, file.Name, file.Reader)
	if len(fields) > 0 {
		req.SetFormData(fields)
	}
	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("upload to %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, newAPIError(http.MethodPost, path, resp.StatusCode(), resp.Body())
	}
	return decodeRow(http.MethodPost, path, resp.Body())
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func decodeRows(method, path string, raw []byte) ([]types.Row, error) {
	if len(raw) == 0 {
		return []types.Row{}, nil
	}
	var rows []types.Row
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
		return nil, fmt.Errorf("%s %s: decoding list: %w", method, path, types.ErrInvalidPayload)
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("%s %s: decoding list: %w", method, path, err)
	}
	if rows == nil {
		rows = []types.Row{}
	}
	return rows, nil
}

func decodeRow(method, path string, raw []byte) (types.Row, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var row types.Row
	if err := json.Unmarshal(raw, &row); err != nil {
		// Non-object bodies, e.g. a bare "ok", carry no row.
		var v any
		if json.Unmarshal(raw, &v) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	if data, ok := row["data"].(map[string]any); ok && len(row) == 1 {
		return types.Row(data), nil
	}
	return row, nil
}

var (
	_ types.Transport = (*Client)(nil)
	_ types.Uploader  = (*Client)(nil)
)
