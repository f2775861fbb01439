// Package source holds the catalog of industry news pages the engine watches.
package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tells the fetcher how to read a source.
type Kind string

const (
	KindHTML Kind = "html"
	KindRSS  Kind = "rss"
)

// Category tags a source with the market segment it covers.
type Category string

const (
	CategoryBakery Category = "bakery"
	CategoryCoffee Category = "coffee"
)

// MarketDomain is the fetch selector exposed to the presentation layer.
type MarketDomain string

const (
	DomainBakery MarketDomain = "Bakery"
	DomainCoffee MarketDomain = "Coffee"
	DomainBoth   MarketDomain = "Both"
)

// ParseDomain normalizes a user-supplied market domain. Empty means Both.
func ParseDomain(s string) (MarketDomain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return DomainBoth, nil
	case "bakery":
		return DomainBakery, nil
	case "coffee":
		return DomainCoffee, nil
	}
	return "", fmt.Errorf("unknown market domain %q", s)
}

// Source is a single news index page or feed.
type Source struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Category Category `yaml:"category"`
	Kind     Kind     `yaml:"kind"`
}

// Catalog is the full set of configured sources.
type Catalog struct {
	Sources []Source
}

// catalogFile is the YAML config structure
// sources:
//   - name: ...
//     url: https://...
//     category: bakery|coffee
//     kind: html|rss
type catalogFile struct {
	Sources []Source `yaml:"sources"`
}

// Default returns the built-in catalog: the two trade index pages the
// engine has always watched. Used when no config file is present.
func Default() Catalog {
	return Catalog{Sources: []Source{
		{
			Name:     "Bakery & Snacks Trends",
			URL:      "https://www.bakeryandsnacks.com/Trends",
			Category: CategoryBakery,
			Kind:     KindHTML,
		},
		{
			Name:     "World Coffee Portal News",
			URL:      "https://www.worldcoffeeportal.com/News",
			Category: CategoryCoffee,
			Kind:     KindHTML,
		},
	}}
}

// Load reads the source catalog from a YAML file. A missing file is not an
// error: the built-in defaults are returned so the binary runs unconfigured.
func Load(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Catalog{}, err
	}
	defer f.Close()

	var cfg catalogFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return Catalog{}, fmt.Errorf("parse source catalog %s: %w", path, err)
	}

	cat := Catalog{Sources: make([]Source, 0, len(cfg.Sources))}
	for i, s := range cfg.Sources {
		if strings.TrimSpace(s.URL) == "" {
			return Catalog{}, fmt.Errorf("source %d in %s has no url", i, path)
		}
		if s.Kind == "" {
			s.Kind = KindHTML
		}
		if s.Kind != KindHTML && s.Kind != KindRSS {
			return Catalog{}, fmt.Errorf("source %q has unknown kind %q", s.URL, s.Kind)
		}
		if s.Category != CategoryBakery && s.Category != CategoryCoffee {
			return Catalog{}, fmt.Errorf("source %q has unknown category %q", s.URL, s.Category)
		}
		cat.Sources = append(cat.Sources, s)
	}

	if len(cat.Sources) == 0 {
		return Default(), nil
	}
	return cat, nil
}

// ForDomain selects the sources a fetch for the given market domain covers,
// preserving catalog order.
func (c Catalog) ForDomain(d MarketDomain) []Source {
	var out []Source
	for _, s := range c.Sources {
		switch d {
		case DomainBoth:
			out = append(out, s)
		case DomainBakery:
			if s.Category == CategoryBakery {
				out = append(out, s)
			}
		case DomainCoffee:
			if s.Category == CategoryCoffee {
				out = append(out, s)
			}
		}
	}
	return out
}
