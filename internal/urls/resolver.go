// Package urls resolves endpoint names against a gin route table, the way
// templates resolve view names into absolute URLs.
package urls

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrMissingParam    = errors.New("missing route parameter")
)

// Options carry the fixed parts of every URL built during one collection run.
type Options struct {
	Scheme string // defaults to "https"
	Host   string // defaults to "localhost"
}

// Scope is a frozen snapshot of an engine's GET route table plus the build
// options. It is acquired once per collection run and released afterwards;
// routes registered after the snapshot are not visible to it.
type Scope struct {
	scheme string
	host   string
	routes map[string]string // endpoint name -> path pattern
}

// NewScope snapshots the engine's GET routes. Endpoint names derive from the
// handler function names, the same names gin reports in RouteInfo.Handler;
// aliases map explicit endpoint names onto path patterns and win over
// derived names.
func NewScope(engine *gin.Engine, opts Options, aliases map[string]string) *Scope {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := opts.Host
	if host == "" {
		host = "localhost"
	}

	routes := make(map[string]string)
	for _, r := range engine.Routes() {
		if r.Method != "GET" {
			continue
		}
		name := EndpointName(r.Handler)
		if _, ok := routes[name]; !ok {
			routes[name] = r.Path
		}
	}
	for name, path := range aliases {
		routes[name] = path
	}

	return &Scope{scheme: scheme, host: host, routes: routes}
}

// Resolve builds the absolute URL for endpoint. Path parameters (":name",
// "*name") are filled from values; values not consumed by the path become a
// query string. Unknown endpoints and missing parameters surface as wrapped
// sentinel errors.
func (s *Scope) Resolve(endpoint string, values map[string]string) (string, error) {
	if s.routes == nil {
		return "", fmt.Errorf("urls: scope already released")
	}
	pattern, ok := s.routes[endpoint]
	if !ok {
		return "", fmt.Errorf("urls: %w: %q", ErrUnknownEndpoint, endpoint)
	}

	used := make(map[string]bool, len(values))
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if len(seg) == 0 || (seg[0] != ':' && seg[0] != '*') {
			continue
		}
		key := seg[1:]
		val, ok := values[key]
		if !ok {
			return "", fmt.Errorf("urls: %w: %q needs %q", ErrMissingParam, endpoint, key)
		}
		used[key] = true
		segments[i] = url.PathEscape(val)
	}

	// Segments are escaped already, so the URL is assembled as a string
	// rather than through url.URL, which would escape them a second time.
	resolved := s.scheme + "://" + s.host + strings.Join(segments, "/")

	if len(used) < len(values) {
		query := url.Values{}
		for key, val := range values {
			if !used[key] {
				query.Set(key, val)
			}
		}
		resolved += "?" + query.Encode()
	}

	return resolved, nil
}

// Release drops the snapshot. The scope is unusable afterwards.
func (s *Scope) Release() {
	s.routes = nil
}

// EndpointName reduces a gin handler name to its endpoint name:
// "github.com/acme/app/internal/api.(*Handler).GetPost-fm" -> "GetPost",
// "main.aboutHandler" -> "aboutHandler".
func EndpointName(handler string) string {
	name := handler
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// HasParams reports whether a route path pattern requires URL parameters.
func HasParams(path string) bool {
	return strings.ContainsAny(path, ":*")
}
