package sitemap

import "fmt"

type candidateKind int

const (
	kindInvalid candidateKind = iota
	kindRawURL
	kindValues
	kindEndpoint
)

// Candidate is one item produced by a generator, before normalization into a
// sitemap URL entry. Construct candidates with RawURL, Values or Endpoint;
// the zero Candidate fails collection.
type Candidate struct {
	kind       candidateKind
	loc        string
	endpoint   string
	values     map[string]string
	lastMod    string
	changeFreq string
	priority   string
	err        error
}

// RawURL emits loc verbatim. It is never resolved against the route table
// and never checked against the ignore set.
func RawURL(loc string) Candidate {
	if loc == "" {
		return Candidate{err: fmt.Errorf("raw candidate with empty location")}
	}
	return Candidate{kind: kindRawURL, loc: loc}
}

// Values resolves the generator's own name as the endpoint, with values as
// route parameters. The endpoint defaults to the name of the generator
// function, just like view names do.
func Values(values map[string]string) Candidate {
	return Candidate{kind: kindValues, values: values}
}

// Endpoint resolves endpoint with values as route parameters. Up to three
// trailing fields are assigned in order to lastmod, changefreq and priority;
// omitted fields stay empty. More than three is a contract violation.
func Endpoint(endpoint string, values map[string]string, extra ...string) Candidate {
	c := Candidate{kind: kindEndpoint, endpoint: endpoint, values: values}
	switch len(extra) {
	case 0:
	case 1:
		c.lastMod = extra[0]
	case 2:
		c.lastMod, c.changeFreq = extra[0], extra[1]
	case 3:
		c.lastMod, c.changeFreq, c.priority = extra[0], extra[1], extra[2]
	default:
		c.err = fmt.Errorf("endpoint candidate %q carries %d trailing fields, want at most 3", endpoint, len(extra))
	}
	return c
}
