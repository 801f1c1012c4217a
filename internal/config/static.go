package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"catchup-feed/internal/domain/entity"
)

// StaticSourceConfig is the YAML shape of one configured feed source.
type StaticSourceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	FeedURL  string `yaml:"feed_url"`
	Category string `yaml:"category"`
	Active   bool   `yaml:"active"`
}

// StaticSourcesFile is the top-level shape of the fixed sources file
// synced into the database at startup.
type StaticSourcesFile struct {
	Sources []StaticSourceConfig `yaml:"sources"`
}

// LoadSources reads the fixed list of feed sources from a YAML file.
func LoadSources(path string) ([]*entity.Source, error) {
	// #nosec G304 -- path is a trusted startup config path, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var file StaticSourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}

	sources := make([]*entity.Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		src := &entity.Source{
			ID:       s.ID,
			Name:     s.Name,
			FeedURL:  s.FeedURL,
			Category: entity.Category(s.Category),
			Active:   s.Active,
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("source %q: %w", s.ID, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// TagDictionary is a fixed keyword→tag map loaded from YAML and scanned
// case-insensitively against title+description at capture time.
type TagDictionary struct {
	Tags map[string][]string `yaml:"tags"`
}

// LoadTagDictionary reads the keyword→tag map from a YAML file. Each
// entry maps a tag name to the list of keywords that trigger it.
func LoadTagDictionary(path string) (*TagDictionary, error) {
	// #nosec G304 -- path is a trusted startup config path, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag dictionary: %w", err)
	}
	var dict TagDictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse tag dictionary: %w", err)
	}
	return &dict, nil
}

// Match scans text case-insensitively against every keyword in the
// dictionary and returns the set of tags whose keywords were found.
func (d *TagDictionary) Match(text string) []string {
	if d == nil {
		return nil
	}
	lower := toLowerASCII(text)
	var tags []string
	for tag, keywords := range d.Tags {
		for _, kw := range keywords {
			if containsASCII(lower, toLowerASCII(kw)) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func containsASCII(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
