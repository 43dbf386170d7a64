package resolver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog describes the packages available for installation and what
// should be installed.
type Catalog struct {
	Packages []Package `yaml:"packages" validate:"required,dive"`
	// Requests are the packages that must be installed.
	Requests []string `yaml:"requests" validate:"required,min=1,dive,required"`
	// External packages are provided by the environment. Requirements
	// on them are set aside and reported rather than resolved.
	External []string `yaml:"external" validate:"dive,required"`
	Search   *Search  `yaml:"search"`
}

type Package struct {
	Name string `yaml:"name" validate:"required,excludes=@"`
	// Versions are listed in order of preference.
	Versions []Version `yaml:"versions" validate:"required,min=1,dive"`
}

type Version struct {
	Version string `yaml:"version" validate:"required"`
	// Requires lists packages of which some version must be installed
	// alongside this one.
	Requires []string `yaml:"requires" validate:"dive,required"`
	// Recommends lists packages that are installed when possible.
	Recommends []string `yaml:"recommends" validate:"dive,required"`
	// Conflicts lists packages, or single versions written as
	// name@version, that cannot be installed alongside this one.
	Conflicts []string `yaml:"conflicts" validate:"dive,required"`
}

// Search overrides the resolver's search settings.
type Search struct {
	MaxDepth        *int  `yaml:"maxDepth" validate:"omitnil,gte=0"`
	FailAtMaxDepth  *bool `yaml:"failAtMaxDepth"`
	MaxAlternatives *int  `yaml:"maxAlternatives" validate:"omitnil,gte=0"`
}

// LoadCatalog decodes and validates a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty catalog")
		}
		return nil, fmt.Errorf("error decoding catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening catalog (%s): %w", path, err)
	}
	defer f.Close()
	c, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog (%s): %w", path, err)
	}
	return c, nil
}

// Validate checks the catalog's fields and that every reference names
// a known package or version.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	var errs []error
	versions := make(map[string]map[string]struct{}, len(c.Packages))
	for _, p := range c.Packages {
		if _, ok := versions[p.Name]; ok {
			errs = append(errs, fmt.Errorf("package %q is listed twice", p.Name))
			continue
		}
		versions[p.Name] = make(map[string]struct{}, len(p.Versions))
		for _, v := range p.Versions {
			if _, ok := versions[p.Name][v.Version]; ok {
				errs = append(errs, fmt.Errorf("version %s@%s is listed twice", p.Name, v.Version))
			}
			versions[p.Name][v.Version] = struct{}{}
		}
	}
	external := make(map[string]struct{}, len(c.External))
	for _, name := range c.External {
		if _, ok := versions[name]; ok {
			errs = append(errs, fmt.Errorf("package %q is both external and in the catalog", name))
		}
		external[name] = struct{}{}
	}

	known := func(name string) bool {
		if _, ok := versions[name]; ok {
			return true
		}
		_, ok := external[name]
		return ok
	}
	for _, name := range c.Requests {
		if !known(name) {
			errs = append(errs, fmt.Errorf("requested package %q is unknown", name))
		}
	}
	for _, p := range c.Packages {
		for _, v := range p.Versions {
			for _, name := range append(append([]string{}, v.Requires...), v.Recommends...) {
				if !known(name) {
					errs = append(errs, fmt.Errorf("%s@%s depends on unknown package %q", p.Name, v.Version, name))
				}
			}
			for _, ref := range v.Conflicts {
				name, version, pinned := strings.Cut(ref, "@")
				vs, ok := versions[name]
				if !ok {
					errs = append(errs, fmt.Errorf("%s@%s conflicts with unknown package %q", p.Name, v.Version, name))
					continue
				}
				if _, ok := vs[version]; pinned && !ok {
					errs = append(errs, fmt.Errorf("%s@%s conflicts with unknown version %q", p.Name, v.Version, ref))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}
