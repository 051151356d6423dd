package sitemap

import (
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/routekit/sitemap/internal/models"
	"github.com/routekit/sitemap/internal/urls"
)

func homeHandler(c *gin.Context) {
	c.String(http.StatusOK, "home")
}

func aboutHandler(c *gin.Context) {
	c.String(http.StatusOK, "about")
}

func postHandler(c *gin.Context) {
	c.String(http.StatusOK, "post")
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/", homeHandler)
	engine.GET("/about", aboutHandler)
	engine.GET("/posts/:slug", postHandler)
	engine.POST("/about", aboutHandler)
	return engine
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.URLHost = "example.com"
	opts.Blueprint = "" // most tests exercise collection, not routing
	return opts
}

func mustAttach(t *testing.T, s *Sitemap, engine *gin.Engine) {
	t.Helper()
	if err := s.Attach(engine); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
}

func locs(urls []models.URL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.Loc
	}
	return out
}

func TestDefaultGeneratorRoutesWithoutParams(t *testing.T) {
	s := New(testOptions())
	mustAttach(t, s, newTestEngine())

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}

	want := map[string]bool{
		"https://example.com/":      true,
		"https://example.com/about": true,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records %v, want %d", len(got), locs(got), len(want))
	}
	for _, u := range got {
		if !want[u.Loc] {
			t.Errorf("unexpected record %q", u.Loc)
		}
	}
}

func TestDefaultGeneratorDisabled(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no records", locs(got))
	}
}

func TestRegistrationOrderPreserved(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{RawURL("/first"), RawURL("/second")}, nil
	})
	s.Register(func() ([]Candidate, error) {
		return []Candidate{RawURL("/third")}, nil
	})

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}

	want := []string{"/first", "/second", "/third"}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, loc := range want {
		if got[i].Loc != loc {
			t.Errorf("record %d = %q, want %q", i, got[i].Loc, loc)
		}
	}
}

func TestRawURLBypassesResolutionAndIgnoreSet(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	opts.IgnoreEndpoints = []string{"external"}
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.RegisterNamed("external", func() ([]Candidate, error) {
		return []Candidate{RawURL("https://elsewhere.example/page")}, nil
	})

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}
	if len(got) != 1 || got[0].Loc != "https://elsewhere.example/page" {
		t.Errorf("got %v, want the raw URL untouched", locs(got))
	}
}

func TestValuesEquivalentToEndpoint(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())
	s.NameRoute("news", "/news/:id")

	s.RegisterNamed("news", func() ([]Candidate, error) {
		return []Candidate{Values(map[string]string{"id": "3"})}, nil
	})
	s.Register(func() ([]Candidate, error) {
		return []Candidate{Endpoint("news", map[string]string{"id": "3"})}, nil
	})

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Loc != got[1].Loc {
		t.Errorf("values candidate resolved to %q, endpoint candidate to %q", got[0].Loc, got[1].Loc)
	}
	if want := "https://example.com/news/3"; got[0].Loc != want {
		t.Errorf("resolved to %q, want %q", got[0].Loc, want)
	}
}

func TestIgnoredEndpointNeverEmitted(t *testing.T) {
	opts := testOptions()
	opts.IgnoreEndpoints = []string{"aboutHandler"}
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{Endpoint("aboutHandler", nil)}, nil
	})

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}
	for _, u := range got {
		if u.Loc == "https://example.com/about" {
			t.Errorf("ignored endpoint emitted as %q", u.Loc)
		}
	}
}

func TestEndpointTrailingFields(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{
			Endpoint("aboutHandler", nil),
			Endpoint("aboutHandler", nil, "2024-01-01"),
			Endpoint("aboutHandler", nil, "2024-01-01", "daily"),
			Endpoint("aboutHandler", nil, "2024-01-01", "daily", "0.5"),
		}, nil
	})

	got, err := s.URLs()
	if err != nil {
		t.Fatalf("URLs failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d records, want 4", len(got))
	}

	want := []models.URL{
		{Loc: "https://example.com/about"},
		{Loc: "https://example.com/about", LastMod: "2024-01-01"},
		{Loc: "https://example.com/about", LastMod: "2024-01-01", ChangeFreq: "daily"},
		{Loc: "https://example.com/about", LastMod: "2024-01-01", ChangeFreq: "daily", Priority: "0.5"},
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("record %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestTooManyTrailingFields(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{Endpoint("aboutHandler", nil, "a", "b", "c", "d")}, nil
	})

	if _, err := s.URLs(); err == nil {
		t.Error("candidate with four trailing fields did not fail collection")
	}
}

func TestZeroCandidateFailsCollection(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{{}}, nil
	})

	if _, err := s.URLs(); err == nil {
		t.Error("zero candidate did not fail collection")
	}
}

func TestUnknownEndpointPropagates(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{Endpoint("missing", nil)}, nil
	})

	_, err := s.URLs()
	if !errors.Is(err, urls.ErrUnknownEndpoint) {
		t.Errorf("URLs error = %v, want ErrUnknownEndpoint", err)
	}
}

func TestGeneratorErrorAbortsCollection(t *testing.T) {
	opts := testOptions()
	opts.IncludeRoutesWithoutParams = false
	s := New(opts)
	mustAttach(t, s, newTestEngine())

	s.Register(func() ([]Candidate, error) {
		return []Candidate{RawURL("/ok")}, nil
	})
	s.Register(func() ([]Candidate, error) {
		return nil, fmt.Errorf("backend down")
	})

	got, err := s.URLs()
	if err == nil {
		t.Fatal("failing generator did not abort collection")
	}
	if got != nil {
		t.Errorf("got partial records %v, want none", locs(got))
	}
}

func TestAttachTwice(t *testing.T) {
	s := New(testOptions())
	mustAttach(t, s, newTestEngine())

	if err := s.Attach(newTestEngine()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Attach error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestEachNotAttached(t *testing.T) {
	s := New(testOptions())
	if err := s.Each(func(models.URL) error { return nil }); err == nil {
		t.Error("Each on an unattached collector did not fail")
	}
}

func serve(t *testing.T, engine *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestServeSitemap(t *testing.T) {
	opts := DefaultOptions()
	opts.URLHost = "example.com"
	opts.IgnoreEndpoints = []string{"ServeSitemap"}
	s := New(opts)

	engine := newTestEngine()
	mustAttach(t, s, engine)

	w := serve(t, engine, "/sitemap.xml")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Content-Type = %q, want application/xml", ct)
	}

	var set models.URLSet
	if err := xml.Unmarshal(w.Body.Bytes(), &set); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if set.Xmlns != models.Xmlns {
		t.Errorf("xmlns = %q, want %q", set.Xmlns, models.Xmlns)
	}

	found := false
	for _, u := range set.URLs {
		if u.Loc == "https://example.com/about" {
			found = true
		}
		if strings.Contains(u.Loc, "sitemap.xml") {
			t.Errorf("sitemap lists its own endpoint: %q", u.Loc)
		}
	}
	if !found {
		t.Errorf("sitemap is missing /about: %v", set.URLs)
	}
}

func TestServeSitemapPaged(t *testing.T) {
	opts := DefaultOptions()
	opts.URLHost = "example.com"
	opts.IncludeRoutesWithoutParams = false
	opts.MaxURLCount = 2
	s := New(opts)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	mustAttach(t, s, engine)

	s.Register(func() ([]Candidate, error) {
		return []Candidate{
			RawURL("/a"), RawURL("/b"), RawURL("/c"), RawURL("/d"), RawURL("/e"),
		}, nil
	})

	w := serve(t, engine, "/sitemap.xml")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var index models.SitemapIndex
	if err := xml.Unmarshal(w.Body.Bytes(), &index); err != nil {
		t.Fatalf("unmarshal index failed: %v", err)
	}
	if len(index.Sitemaps) != 3 {
		t.Fatalf("index has %d pages, want 3", len(index.Sitemaps))
	}
	if want := "https://example.com/sitemap/1"; index.Sitemaps[0].Loc != want {
		t.Errorf("first page ref = %q, want %q", index.Sitemaps[0].Loc, want)
	}

	var pages [][]string
	for n := 1; n <= 3; n++ {
		w := serve(t, engine, fmt.Sprintf("/sitemap/%d", n))
		if w.Code != http.StatusOK {
			t.Fatalf("page %d status = %d, want 200", n, w.Code)
		}
		var set models.URLSet
		if err := xml.Unmarshal(w.Body.Bytes(), &set); err != nil {
			t.Fatalf("unmarshal page %d failed: %v", n, err)
		}
		pages = append(pages, locs(set.URLs))
	}

	want := [][]string{{"/a", "/b"}, {"/c", "/d"}, {"/e"}}
	for n, w := range want {
		if len(pages[n]) != len(w) {
			t.Fatalf("page %d = %v, want %v", n+1, pages[n], w)
		}
		for i := range w {
			if pages[n][i] != w[i] {
				t.Errorf("page %d entry %d = %q, want %q", n+1, i, pages[n][i], w[i])
			}
		}
	}

	if w := serve(t, engine, "/sitemap/4"); w.Code != http.StatusNotFound {
		t.Errorf("out-of-range page status = %d, want 404", w.Code)
	}
	if w := serve(t, engine, "/sitemap/zero"); w.Code != http.StatusNotFound {
		t.Errorf("non-numeric page status = %d, want 404", w.Code)
	}
	// A page number near the int limit must 404 like any other
	// out-of-range page instead of overflowing into a slice panic.
	if w := serve(t, engine, "/sitemap/9223372036854775807"); w.Code != http.StatusNotFound {
		t.Errorf("huge page status = %d, want 404", w.Code)
	}
}

func TestServePageEmptyCollection(t *testing.T) {
	opts := DefaultOptions()
	opts.URLHost = "example.com"
	opts.IncludeRoutesWithoutParams = false
	opts.MaxURLCount = 2
	s := New(opts)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	mustAttach(t, s, engine)

	if w := serve(t, engine, "/sitemap/1"); w.Code != http.StatusNotFound {
		t.Errorf("page of an empty collection status = %d, want 404", w.Code)
	}
}

func TestServeSitemapGzip(t *testing.T) {
	opts := DefaultOptions()
	opts.URLHost = "example.com"
	opts.IncludeRoutesWithoutParams = false
	opts.Gzip = true
	s := New(opts)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	mustAttach(t, s, engine)

	s.Register(func() ([]Candidate, error) {
		return []Candidate{RawURL("/a")}, nil
	})

	w := serve(t, engine, "/sitemap.xml")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", enc)
	}

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader failed: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip failed: %v", err)
	}

	var set models.URLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(set.URLs) != 1 || set.URLs[0].Loc != "/a" {
		t.Errorf("got %v, want one /a entry", set.URLs)
	}
}

func TestBlueprintURLPrefix(t *testing.T) {
	opts := DefaultOptions()
	opts.URLHost = "example.com"
	opts.IncludeRoutesWithoutParams = false
	opts.BlueprintURLPrefix = "/meta"
	opts.MaxURLCount = 1
	s := New(opts)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	mustAttach(t, s, engine)

	s.Register(func() ([]Candidate, error) {
		return []Candidate{RawURL("/a"), RawURL("/b")}, nil
	})

	w := serve(t, engine, "/meta/sitemap.xml")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var index models.SitemapIndex
	if err := xml.Unmarshal(w.Body.Bytes(), &index); err != nil {
		t.Fatalf("unmarshal index failed: %v", err)
	}
	if want := "https://example.com/meta/sitemap/1"; index.Sitemaps[0].Loc != want {
		t.Errorf("page ref = %q, want %q", index.Sitemaps[0].Loc, want)
	}

	if w := serve(t, engine, "/meta/sitemap/1"); w.Code != http.StatusOK {
		t.Errorf("prefixed page status = %d, want 200", w.Code)
	}
}
