// Package location implements the navigable location of the console as a
// relative URL such as /merchant/products?merchant_id=1&branch_id=3.
package location

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/mesh-intelligence/codadmin/internal/catalog"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// URL is a types.Location backed by a path and query. It is safe for
// concurrent use.
type URL struct {
	mu    sync.Mutex
	path  string
	query url.Values
}

// Parse reads a relative location. Scheme and host, when present, are
// dropped.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing location %q: %w", raw, err)
	}
	path := u.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &URL{path: path, query: u.Query()}, nil
}

// New returns the location of path with no query.
func New(path string) *URL {
	return &URL{path: path, query: url.Values{}}
}

// ForResource returns the route of a resource, e.g. /merchant/products.
func ForResource(schema types.ResourceSchema) *URL {
	return New(catalog.RoutePath(schema))
}

// Path returns the route path.
func (u *URL) Path() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.path
}

// Query returns a copy of the query parameters.
func (u *URL) Query() url.Values {
	u.mu.Lock()
	defer u.mu.Unlock()
	return cloneValues(u.query)
}

// Navigate replaces the location.
func (u *URL) Navigate(path string, query url.Values) error {
	if path == "" {
		return fmt.Errorf("navigate: empty path")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.path = path
	u.query = cloneValues(query)
	return nil
}

// String renders the location with its query in key order.
func (u *URL) String() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.query) == 0 {
		return u.path
	}
	return u.path + "?" + u.query.Encode()
}

// Scope returns the scope selection carried by the query.
func (u *URL) Scope() types.ScopeState {
	return types.ScopeFromQuery(u.Query())
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

var _ types.Location = (*URL)(nil)
