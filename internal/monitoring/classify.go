package monitoring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is assigned when no rule matches.
const DefaultCategory = "processing_error"

// Rule maps an error-message substring to a category. Rules are applied
// in order; the first match wins.
type Rule struct {
	Substring string `yaml:"substring"`
	Category  string `yaml:"category"`
}

// DefaultRules returns the built-in classification table.
func DefaultRules() []Rule {
	return []Rule{
		{Substring: "timeout", Category: "timeout"},
		{Substring: "memory", Category: "memory"},
		{Substring: "file type", Category: "invalid_file"},
		{Substring: "unsupported", Category: "invalid_file"},
		{Substring: "invalid", Category: "invalid_file"},
	}
}

// Classify buckets an error message using the given rules.
func Classify(message string, rules []Rule) string {
	for _, r := range rules {
		if strings.Contains(message, r.Substring) {
			return r.Category
		}
	}
	return DefaultCategory
}

// LoadRules reads a YAML rule list from path. The file must contain at
// least one rule, and every rule needs both a substring and a category.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading error rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing error rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("error rules file %s defines no rules", path)
	}
	for i, r := range rules {
		if r.Substring == "" || r.Category == "" {
			return nil, fmt.Errorf("error rule %d is missing a substring or category", i)
		}
	}
	return rules, nil
}
