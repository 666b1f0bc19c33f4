package engine

import (
	"context"
	"errors"
	"io"
	"maps"
	"net/url"
	"sync"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

type call struct {
	Method   string
	Resource string
	ID       int64
	Payload  map[string]any
}

// fakeTransport is an in-memory resource API that records every call.
type fakeTransport struct {
	mu       sync.Mutex
	rows     map[string][]types.Row
	calls    []call
	fail     map[string]error
	failWhen func(c call) error
	omitID   map[string]bool
	// listGate, when set, blocks List until it is closed.
	listGate chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		rows:   make(map[string][]types.Row),
		fail:   make(map[string]error),
		omitID: make(map[string]bool),
	}
}

func (f *fakeTransport) seed(resource string, rows ...types.Row) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[resource] = append(f.rows[resource], rows...)
	return f
}

func (f *fakeTransport) failOn(method, resource string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method+" "+resource] = err
}

func (f *fakeTransport) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if err, ok := f.fail[c.Method+" "+c.Resource]; ok {
		return err
	}
	if f.failWhen != nil {
		return f.failWhen(c)
	}
	return nil
}

func (f *fakeTransport) callsOf(method, resource string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && (resource == "" || c.Resource == resource) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) allCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeTransport) List(ctx context.Context, resource string) ([]types.Row, error) {
	if f.listGate != nil {
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.record(call{Method: "LIST", Resource: resource}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Row, 0, len(f.rows[resource]))
	for _, r := range f.rows[resource] {
		out = append(out, maps.Clone(r))
	}
	return out, nil
}

func (f *fakeTransport) Get(_ context.Context, resource string, id int64) (types.Row, error) {
	if err := f.record(call{Method: "GET", Resource: resource, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows[resource] {
		if rid, _ := r.ID(); rid == id {
			return maps.Clone(r), nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeTransport) Create(_ context.Context, resource string, payload map[string]any) (types.Row, error) {
	if err := f.record(call{Method: "CREATE", Resource: resource, Payload: maps.Clone(payload)}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var next int64 = 1
	for _, r := range f.rows[resource] {
		if id, _ := r.ID(); id >= next {
			next = id + 1
		}
	}
	row := types.Row(maps.Clone(payload))
	row[types.ColumnID] = next
	f.rows[resource] = append(f.rows[resource], row)
	out := maps.Clone(row)
	if f.omitID[resource] {
		delete(out, types.ColumnID)
	}
	return out, nil
}

func (f *fakeTransport) Update(_ context.Context, resource string, id int64, payload map[string]any) (types.Row, error) {
	if err := f.record(call{Method: "UPDATE", Resource: resource, ID: id, Payload: maps.Clone(payload)}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows[resource] {
		if rid, _ := r.ID(); rid == id {
			maps.Copy(r, payload)
			return maps.Clone(r), nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeTransport) Remove(_ context.Context, resource string, id int64) error {
	if err := f.record(call{Method: "DELETE", Resource: resource, ID: id}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[resource]
	for i, r := range rows {
		if rid, _ := r.ID(); rid == id {
			f.rows[resource] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return types.ErrNotFound
}

type upload struct {
	Path      string
	FileField string
	FileName  string
	Content   string
	Fields    map[string]string
}

type fakeUploader struct {
	mu       sync.Mutex
	uploads  []upload
	response types.Row
	err      error
}

func (u *fakeUploader) Upload(_ context.Context, path, fileField string, file types.FileUpload, fields map[string]string) (types.Row, error) {
	data, _ := io.ReadAll(file.Reader)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads = append(u.uploads, upload{
		Path:      path,
		FileField: fileField,
		FileName:  file.Name,
		Content:   string(data),
		Fields:    maps.Clone(fields),
	})
	if u.err != nil {
		return nil, u.err
	}
	return maps.Clone(u.response), nil
}

// statusError is a transport error with an HTTP status and body.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string        { return "request failed: " + e.body }
func (e *statusError) StatusCode() int      { return e.status }
func (e *statusError) ResponseBody() []byte { return []byte(e.body) }

var errBoom = errors.New("boom")

// fakeLocation is an in-memory navigable location.
type fakeLocation struct {
	mu    sync.Mutex
	path  string
	query url.Values
}

func (l *fakeLocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *fakeLocation) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := url.Values{}
	for k, v := range l.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (l *fakeLocation) Navigate(path string, query url.Values) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path = path
	l.query = query
	return nil
}
