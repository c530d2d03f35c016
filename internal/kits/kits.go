package kits

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the static layout of one test kit: the ordered analyte list.
// Order is semantically meaningful; it is the positional alignment with the
// numeric array returned by the interpretation client.
type Profile struct {
	TestType string   `yaml:"test_type"`
	KitID    int      `yaml:"kit_id"`
	Name     string   `yaml:"name"`
	TwoSided bool     `yaml:"two_sided"`
	Analytes []string `yaml:"analytes"`
}

// Catalog holds every kit profile, read-only at runtime.
type Catalog struct {
	Kits []Profile `yaml:"kits"`
}

// Load reads and parses the kit catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kit catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kit catalog YAML: %w", err)
	}

	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for _, kit := range c.Kits {
		if kit.TestType != "urine" && kit.TestType != "saliva" {
			return fmt.Errorf("kit %q/%d: unknown test type", kit.TestType, kit.KitID)
		}
		if len(kit.Analytes) == 0 {
			return fmt.Errorf("kit %q/%d: empty analyte list", kit.TestType, kit.KitID)
		}
		key := fmt.Sprintf("%s-%d", kit.TestType, kit.KitID)
		if seen[key] {
			return fmt.Errorf("duplicate kit %s", key)
		}
		seen[key] = true
	}
	return nil
}

// Find returns the profile for a (testType, kitID) pair.
func (c *Catalog) Find(testType string, kitID int) (Profile, bool) {
	for _, kit := range c.Kits {
		if kit.TestType == testType && kit.KitID == kitID {
			return kit, true
		}
	}
	return Profile{}, false
}

// ForTestType lists the kits available for one test type, in catalog order.
func (c *Catalog) ForTestType(testType string) []Profile {
	var out []Profile
	for _, kit := range c.Kits {
		if kit.TestType == testType {
			out = append(out, kit)
		}
	}
	return out
}
