package domain

import (
	"fmt"
	"net/url"
)

// MediaItem is a single file found while scraping
type MediaItem struct {
	URL      string `json:"url"`
	Referer  string `json:"referer"`
	Filename string `json:"filename"`
}

// Album groups the files scraped from one album page
type Album struct {
	Title string      `json:"title"`
	Media []MediaItem `json:"media"`
}

// DomainItems holds every album scraped from one site, keyed by album title
type DomainItems struct {
	Albums map[string]Album `json:"albums"`
}

// Cascade holds the scrape results of a whole run, keyed by domain
type Cascade struct {
	Domains map[string]DomainItems `json:"domains"`
}

// IsEmpty checks if the cascade contains no media at all
func (c Cascade) IsEmpty() bool {
	for _, d := range c.Domains {
		for _, a := range d.Albums {
			if len(a.Media) > 0 {
				return false
			}
		}
	}
	return true
}

// DBPath returns the history key of a remote file: the escaped URL path with
// scheme, host, query and fragment stripped
func DBPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path, nil
}
