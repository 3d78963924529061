// Package flavors generates per-release phase plans from flavor
// configuration. A flavor is the product/branch combination that determines
// which phases a release requires.
package flavors

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFlavor indicates no phase plan exists for the requested
// product/branch combination.
var ErrUnsupportedFlavor = errors.New("unsupported release flavor")

// UnsupportedFlavorError carries a human-readable description of the
// unsupported combination.
type UnsupportedFlavorError struct {
	Product string
	Branch  string
}

func (e *UnsupportedFlavorError) Error() string {
	return fmt.Sprintf("no phase plan for product %q on branch %q", e.Product, e.Branch)
}

// Description returns the caller-facing explanation.
func (e *UnsupportedFlavorError) Description() string {
	return e.Error()
}

func (e *UnsupportedFlavorError) Is(target error) bool {
	return target == ErrUnsupportedFlavor
}

// PhaseTemplate is one phase of a flavor's plan: a name plus the task
// skeleton rendered at release-creation time.
type PhaseTemplate struct {
	Name string         `yaml:"name"`
	Task map[string]any `yaml:"task"`
}

// Config maps product -> branch -> ordered phase templates.
type Config struct {
	Products map[string]map[string][]PhaseTemplate `yaml:"products"`
}

// Load reads flavor configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flavors config %s: %w", path, err)
	}

	var config Config

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flavors config: %w", err)
	}

	if len(config.Products) == 0 {
		return nil, fmt.Errorf("flavors config %s declares no products", path)
	}

	return &config, nil
}

// Templates returns the ordered phase templates for the given flavor, or an
// UnsupportedFlavorError.
func (c *Config) Templates(product, branch string) ([]PhaseTemplate, error) {
	branches, ok := c.Products[product]
	if !ok {
		return nil, &UnsupportedFlavorError{Product: product, Branch: branch}
	}

	templates, ok := branches[branch]
	if !ok || len(templates) == 0 {
		return nil, &UnsupportedFlavorError{Product: product, Branch: branch}
	}

	return templates, nil
}
