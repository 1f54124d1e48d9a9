package site

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Link is one navigational footer entry. URLs may carry a $BASE_URL
// placeholder that templates rewrite against Config.BaseURL.
type Link struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Config is the site-wide configuration, loaded from config.yaml at the
// site root and exposed to every template as the read-only "config"
// namespace.
type Config struct {
	Title           string                 `yaml:"title"`
	Description     string                 `yaml:"description"`
	BaseURL         string                 `yaml:"base_url"`
	Author          string                 `yaml:"author,omitempty"`
	Image           string                 `yaml:"image,omitempty"`
	FooterLinks     []Link                 `yaml:"footer_links,omitempty"`
	GeneratorNotice string                 `yaml:"generator_notice,omitempty"`
	Extra           map[string]interface{} `yaml:"extra,omitempty"`
}

// LoadConfig reads and validates a site configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML site configuration.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing site config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the fields every template depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("site config: title is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("site config: base_url is required")
	}
	if strings.HasSuffix(c.BaseURL, "/") {
		return errors.New("site config: base_url must not end with a slash")
	}
	for i, link := range c.FooterLinks {
		if link.Name == "" || link.URL == "" {
			return fmt.Errorf("site config: footer_links[%d] needs both name and url", i)
		}
	}
	return nil
}
