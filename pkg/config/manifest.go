package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists the URLs the interception worker must cache at install
// time. Shell routes and assets go to the static generation; API listings
// go to the dynamic generation. Install is all-or-nothing across both sets.
type Manifest struct {
	ShellRoutes []string `yaml:"shellRoutes"`
	ShellAssets []string `yaml:"shellAssets"`
	APIListings []string `yaml:"apiListings"`
}

// DefaultManifest returns the built-in must-cache URL set.
func DefaultManifest() *Manifest {
	return &Manifest{
		ShellRoutes: []string{
			"/",
			"/offline-resources",
		},
		ShellAssets: []string{
			"/assets/main.js",
			"/assets/index.css",
		},
		APIListings: []string{
			ResourceListingPath + "?category=" + "emergency",
			ResourceListingPath + "?category=" + "first-aid",
			ResourceListingPath + "?category=" + "drugs",
		},
	}
}

// LoadManifest reads a manifest file, falling back to the built-in set
// when path is empty.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse cache manifest %s: %w", path, err)
	}

	if len(m.ShellRoutes) == 0 && len(m.APIListings) == 0 {
		return nil, fmt.Errorf("cache manifest %s lists no URLs", path)
	}

	return &m, nil
}

// StaticURLs returns every manifest URL destined for the static generation.
func (m *Manifest) StaticURLs() []string {
	urls := make([]string, 0, len(m.ShellRoutes)+len(m.ShellAssets))
	urls = append(urls, m.ShellRoutes...)
	urls = append(urls, m.ShellAssets...)
	return urls
}

// DynamicURLs returns every manifest URL destined for the dynamic generation.
func (m *Manifest) DynamicURLs() []string {
	urls := make([]string, 0, len(m.APIListings))
	urls = append(urls, m.APIListings...)
	return urls
}

// EssentialListingURLs are the two listing URLs mirrored into the content
// store by the coordinator's essential download.
func EssentialListingURLs() []string {
	return []string{
		ResourceListingPath + "?category=emergency",
		ResourceListingPath + "?category=first-aid",
	}
}
