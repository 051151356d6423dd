// internal/models/sitemap.go
package models

import "encoding/xml"

// Namespace of the sitemap protocol, carried on every rendered document.
const Xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URLSet represents the structure of an XML sitemap.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL entry in the sitemap.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// SitemapIndex represents a sitemap index document pointing at page sitemaps.
type SitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []SitemapRef `xml:"sitemap"`
}

// SitemapRef is one <sitemap> entry in a sitemap index.
type SitemapRef struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// RenderURLSet marshals urls into a complete sitemap document.
func RenderURLSet(urls []URL) ([]byte, error) {
	out, err := xml.MarshalIndent(URLSet{Xmlns: Xmlns, URLs: urls}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// RenderIndex marshals refs into a complete sitemap index document.
func RenderIndex(refs []SitemapRef) ([]byte, error) {
	out, err := xml.MarshalIndent(SitemapIndex{Xmlns: Xmlns, Sitemaps: refs}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
