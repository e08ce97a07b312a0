// Package sources decides which citations count as credible and extracts a
// normalized issuer name from each one.
package sources

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Outlet is a canonical issuer name and the substrings that identify it.
type Outlet struct {
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants"`
}

// Catalog is the allow-list, outlet dictionary, denylist and high-quality
// subset used by the Filter.
type Catalog struct {
	Domains     []string `yaml:"domains"`
	Outlets     []Outlet `yaml:"outlets"`
	Denylist    []string `yaml:"denylist"`
	HighQuality []string `yaml:"high_quality"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog override from path. An empty path returns
// the embedded catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sources: read catalog %s", path)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "sources: parse catalog")
	}
	if len(c.Outlets) == 0 {
		return nil, eris.New("sources: catalog has no outlets")
	}
	for _, o := range c.Outlets {
		if o.Name == "" || len(o.Variants) == 0 {
			return nil, eris.Errorf("sources: outlet %q needs a name and variants", o.Name)
		}
	}
	return &c, nil
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
