// sitemapcheck fetches a generated sitemap and crawls every listed URL,
// reporting response status, page title and link count for each entry.
package main

import (
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/routekit/sitemap/internal/models"
)

type report struct {
	checked int
	broken  []string
}

func main() {
	sitemapURL := flag.String("sitemap", "", "URL of the sitemap.xml to verify")
	userAgent := flag.String("useragent", "sitemapcheck/1.0", "User-Agent for crawling")
	limit := flag.Int("limit", 0, "check at most this many URLs (0 = all)")
	flag.Parse()

	if *sitemapURL == "" {
		log.Fatal("missing -sitemap URL")
	}

	locs, err := fetchLocations(*sitemapURL)
	if err != nil {
		log.Fatalf("Error fetching sitemap: %v", err)
	}
	fmt.Printf("Total URLs found: %d\n\n", len(locs))

	if *limit > 0 && len(locs) > *limit {
		locs = locs[:*limit]
	}

	rep := crawlLocations(locs, *userAgent)

	fmt.Printf("\nChecked %d URLs, %d broken\n", rep.checked, len(rep.broken))
	for _, loc := range rep.broken {
		fmt.Printf("  BROKEN: %s\n", loc)
	}
}

// fetchLocations downloads a sitemap document and returns every <loc>.
// Sitemap index documents are followed one level deep.
func fetchLocations(sitemapURL string) ([]string, error) {
	body, err := fetch(sitemapURL)
	if err != nil {
		return nil, err
	}

	var set models.URLSet
	if err := xml.Unmarshal(body, &set); err == nil {
		locs := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			locs = append(locs, u.Loc)
		}
		return locs, nil
	}

	var index models.SitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", sitemapURL, err)
	}

	var locs []string
	for _, ref := range index.Sitemaps {
		pageLocs, err := fetchLocations(ref.Loc)
		if err != nil {
			return nil, err
		}
		locs = append(locs, pageLocs...)
	}
	return locs, nil
}

func fetch(rawURL string) ([]byte, error) {
	resp, err := http.Get(rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func crawlLocations(locs []string, userAgent string) *report {
	rep := &report{}

	domains := make(map[string]bool)
	for _, loc := range locs {
		if u, err := url.Parse(loc); err == nil && u.Host != "" {
			domains[u.Hostname()] = true
		}
	}
	allowed := make([]string, 0, len(domains))
	for d := range domains {
		allowed = append(allowed, d)
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
		colly.AllowedDomains(allowed...),
	)

	c.OnResponse(func(r *colly.Response) {
		rep.checked++
		title, desc := pageMeta(r.Body)
		fmt.Printf("%d  %s\n", r.StatusCode, r.Request.URL)
		if title != "" {
			fmt.Printf("     title: %s\n", title)
		}
		if desc != "" {
			fmt.Printf("     description: %s\n", desc)
		}
		fmt.Printf("     links: %d\n", countLinks(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		rep.checked++
		rep.broken = append(rep.broken, r.Request.URL.String())
		log.Printf("Error visiting %s: %v", r.Request.URL, err)
	})

	for _, loc := range locs {
		if err := c.Visit(loc); err != nil {
			rep.checked++
			rep.broken = append(rep.broken, loc)
			log.Printf("Error visiting %s: %v", loc, err)
		}
	}
	c.Wait()

	return rep
}

// pageMeta extracts the title and meta description from an HTML body.
func pageMeta(body []byte) (title, description string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	description, _ = doc.Find("meta[name='description']").Attr("content")
	return title, strings.TrimSpace(description)
}

// countLinks counts anchor tags without building a full document tree.
func countLinks(body []byte) int {
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))
	count := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return count
		case html.StartTagToken:
			if name, _ := tokenizer.TagName(); string(name) == "a" {
				count++
			}
		}
	}
}
