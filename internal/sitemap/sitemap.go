// Package sitemap generates an application's sitemap.xml from its own gin
// route table and from registered URL generators.
package sitemap

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/routekit/sitemap/internal/models"
	"github.com/routekit/sitemap/internal/urls"
)

// ErrAlreadyInitialized is returned by Attach when the collector is already
// wired to an engine.
var ErrAlreadyInitialized = errors.New("sitemap: already initialized")

// Generator supplies sitemap candidates. Generators run in registration
// order on every collection; an error aborts the whole run.
type Generator func() ([]Candidate, error)

// Options configure the collector. The zero value of a string option means
// its default; see the field comments.
type Options struct {
	// IncludeRoutesWithoutParams enables the built-in generator that yields
	// every GET route requiring zero URL parameters. It always runs first.
	IncludeRoutesWithoutParams bool

	// IgnoreEndpoints are endpoint names excluded from resolution-based
	// candidates. Raw URL candidates are never filtered.
	IgnoreEndpoints []string

	// URLScheme and URLHost form the fixed part of every resolved URL.
	// Defaults: "https" and "localhost".
	URLScheme string
	URLHost   string

	// Blueprint names the sub-application the sitemap routes mount under;
	// empty disables auto-mounting, leaving the handlers to be wired
	// manually. Default "sitemap".
	Blueprint          string
	BlueprintURLPrefix string

	// EndpointURL is the sitemap route path, default "/sitemap.xml".
	EndpointURL string

	// PageEndpointURL is the page route path when paging is active. It must
	// carry a ":page" parameter. Default "/sitemap/:page".
	PageEndpointURL string

	// MaxURLCount splits the sitemap into pages behind a sitemapindex once
	// the collection exceeds it. Zero means a single unbounded document.
	MaxURLCount int

	// Gzip compresses response bodies.
	Gzip bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		IncludeRoutesWithoutParams: true,
		URLScheme:                  "https",
		URLHost:                    "localhost",
		Blueprint:                  "sitemap",
		EndpointURL:                "/sitemap.xml",
		PageEndpointURL:            "/sitemap/:page",
	}
}

type entry struct {
	name string
	fn   Generator
}

// Sitemap collects URL records from its generators and serves them as
// sitemap XML. Construct with New, wire with Attach, extend with Register.
// Generators and named routes are set up once at initialization and must
// not be mutated during request handling.
type Sitemap struct {
	opts       Options
	engine     *gin.Engine
	generators []entry
	aliases    map[string]string
}

// New creates a collector with the routes-without-params generator
// pre-registered first.
func New(opts Options) *Sitemap {
	if opts.EndpointURL == "" {
		opts.EndpointURL = "/sitemap.xml"
	}
	if opts.PageEndpointURL == "" {
		opts.PageEndpointURL = "/sitemap/:page"
	}
	s := &Sitemap{
		opts:    opts,
		aliases: make(map[string]string),
	}
	s.generators = []entry{{name: "routes_without_params", fn: s.routesWithoutParams}}
	return s
}

// Attach wires the collector to engine and, when a blueprint is configured,
// mounts the sitemap routes under it. Attaching twice is an error.
func (s *Sitemap) Attach(engine *gin.Engine) error {
	if s.engine != nil {
		return ErrAlreadyInitialized
	}
	s.engine = engine

	if s.opts.Blueprint != "" {
		group := engine.Group(s.opts.BlueprintURLPrefix)
		group.GET(s.opts.EndpointURL, s.ServeSitemap)
		if s.opts.MaxURLCount > 0 {
			group.GET(s.opts.PageEndpointURL, s.ServePage)
		}
	}
	return nil
}

// Register appends a generator and returns it unchanged. Its endpoint name
// for Values candidates derives from the function name; use RegisterNamed
// to set it explicitly.
func (s *Sitemap) Register(g Generator) Generator {
	return s.RegisterNamed(generatorName(g), g)
}

// RegisterNamed appends a generator under an explicit name.
func (s *Sitemap) RegisterNamed(name string, g Generator) Generator {
	s.generators = append(s.generators, entry{name: name, fn: g})
	return g
}

// NameRoute gives endpoint an explicit path pattern for URL resolution,
// overriding the name derived from the route's handler function.
func (s *Sitemap) NameRoute(endpoint, pattern string) {
	s.aliases[endpoint] = pattern
}

// routesWithoutParams is the built-in generator: every GET route of the
// engine that needs no URL parameters, as endpoint candidates.
func (s *Sitemap) routesWithoutParams() ([]Candidate, error) {
	if !s.opts.IncludeRoutesWithoutParams || s.engine == nil {
		return nil, nil
	}
	var out []Candidate
	for _, r := range s.engine.Routes() {
		if r.Method == http.MethodGet && !urls.HasParams(r.Path) {
			out = append(out, Endpoint(urls.EndpointName(r.Handler), nil))
		}
	}
	return out, nil
}

// Each runs every generator in registration order and streams the
// normalized URL records to fn. A route-table scope is held for the whole
// run and released even when a generator or a resolution fails. Candidate
// order within a generator is preserved; nothing is deduplicated.
func (s *Sitemap) Each(fn func(models.URL) error) error {
	if s.engine == nil {
		return fmt.Errorf("sitemap: not attached to an engine")
	}

	ignore := make(map[string]bool, len(s.opts.IgnoreEndpoints))
	for _, endpoint := range s.opts.IgnoreEndpoints {
		ignore[endpoint] = true
	}

	scope := urls.NewScope(s.engine, urls.Options{
		Scheme: s.opts.URLScheme,
		Host:   s.opts.URLHost,
	}, s.aliases)
	defer scope.Release()

	for _, gen := range s.generators {
		candidates, err := gen.fn()
		if err != nil {
			return fmt.Errorf("sitemap: generator %q: %w", gen.name, err)
		}
		for _, c := range candidates {
			if c.err != nil {
				return fmt.Errorf("sitemap: generator %q: %w", gen.name, c.err)
			}

			rec := models.URL{
				LastMod:    c.lastMod,
				ChangeFreq: c.changeFreq,
				Priority:   c.priority,
			}

			switch c.kind {
			case kindRawURL:
				rec.Loc = c.loc
			case kindValues, kindEndpoint:
				endpoint := c.endpoint
				if c.kind == kindValues {
					endpoint = gen.name
				}
				if ignore[endpoint] {
					continue
				}
				loc, err := scope.Resolve(endpoint, c.values)
				if err != nil {
					return err
				}
				rec.Loc = loc
			default:
				return fmt.Errorf("sitemap: generator %q yielded an invalid candidate", gen.name)
			}

			if err := fn(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// URLs materializes the full collection.
func (s *Sitemap) URLs() ([]models.URL, error) {
	var out []models.URL
	err := s.Each(func(u models.URL) error {
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ServeSitemap handles GET sitemap.xml: the full urlset, or a sitemapindex
// pointing at page sitemaps once the collection exceeds MaxURLCount.
func (s *Sitemap) ServeSitemap(c *gin.Context) {
	all, err := s.URLs()
	if err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, "sitemap generation failed")
		return
	}

	var body []byte
	if s.opts.MaxURLCount > 0 && len(all) > s.opts.MaxURLCount {
		body, err = models.RenderIndex(s.pageRefs(len(all)))
	} else {
		body, err = models.RenderURLSet(all)
	}
	if err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, "sitemap rendering failed")
		return
	}
	s.write(c, body)
}

// ServePage handles one page of a split sitemap. Pages are counted from 1;
// out-of-range pages are 404.
func (s *Sitemap) ServePage(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		c.String(http.StatusNotFound, "no such sitemap page")
		return
	}

	all, err := s.URLs()
	if err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, "sitemap generation failed")
		return
	}

	size := s.opts.MaxURLCount
	if size <= 0 {
		size = len(all)
	}
	// Bound the page by the page count before any index arithmetic; a huge
	// page number would otherwise overflow start into a negative slice bound.
	pages := 0
	if size > 0 {
		pages = (len(all) + size - 1) / size
	}
	if page > pages {
		c.String(http.StatusNotFound, "no such sitemap page")
		return
	}
	start := (page - 1) * size
	end := min(start+size, len(all))

	body, err := models.RenderURLSet(all[start:end])
	if err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, "sitemap rendering failed")
		return
	}
	s.write(c, body)
}

// pageRefs builds the sitemapindex entries for count collected URLs.
func (s *Sitemap) pageRefs(count int) []models.SitemapRef {
	pages := (count + s.opts.MaxURLCount - 1) / s.opts.MaxURLCount
	refs := make([]models.SitemapRef, 0, pages)
	for n := 1; n <= pages; n++ {
		refs = append(refs, models.SitemapRef{Loc: s.pageURL(n)})
	}
	return refs
}

func (s *Sitemap) pageURL(page int) string {
	pattern := strings.Replace(s.opts.PageEndpointURL, ":page", strconv.Itoa(page), 1)
	scheme := s.opts.URLScheme
	if scheme == "" {
		scheme = "https"
	}
	host := s.opts.URLHost
	if host == "" {
		host = "localhost"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path.Join("/", s.opts.BlueprintURLPrefix, pattern),
	}
	return u.String()
}

func (s *Sitemap) write(c *gin.Context, body []byte) {
	const contentType = "application/xml; charset=utf-8"
	if s.opts.Gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err == nil && zw.Close() == nil {
			c.Header("Content-Encoding", "gzip")
			c.Data(http.StatusOK, contentType, buf.Bytes())
			return
		}
	}
	c.Data(http.StatusOK, contentType, body)
}

func generatorName(g Generator) string {
	return urls.EndpointName(runtime.FuncForPC(reflect.ValueOf(g).Pointer()).Name())
}
