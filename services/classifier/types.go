// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"fmt"
	"sort"
	"strings"
)

// Category names produced by the default rule file.
const (
	CategoryEngineFailure = "Engine Failure"
	CategoryTurbulence    = "Turbulence"
	CategoryHumanError    = "Human Error"
	CategoryWeatherIssue  = "Weather Issue"
	CategoryOther         = "Other"
)

// RuleFile is the YAML document describing keyword categories.
type RuleFile struct {
	DefaultCategory string     `yaml:"default_category"`
	Categories      []Category `yaml:"categories"`
}

// Category maps a set of lowercase keywords to an incident type.
type Category struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Priority    int             `yaml:"priority"`
	Keywords    []string        `yaml:"keywords"`
	keywordSet  map[string]bool `yaml:"-"`
}

// Validate checks the rule file and builds the keyword lookup sets.
func (f *RuleFile) Validate() error {
	if f.DefaultCategory == "" {
		return fmt.Errorf("default_category must be set")
	}
	seen := make(map[string]bool, len(f.Categories))
	for i := range f.Categories {
		c := &f.Categories[i]
		if c.Name == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Keywords) == 0 {
			return fmt.Errorf("category %q has no keywords", c.Name)
		}
		c.keywordSet = make(map[string]bool, len(c.Keywords))
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				return fmt.Errorf("category %q has an empty keyword", c.Name)
			}
			c.keywordSet[kw] = true
		}
	}
	return nil
}

// SortByPriority orders categories from highest to lowest priority.
// Categories sharing a priority keep their file order.
func (f *RuleFile) SortByPriority() {
	sort.SliceStable(f.Categories, func(i, j int) bool {
		return f.Categories[i].Priority > f.Categories[j].Priority
	})
}

// Match explains a classification decision.
type Match struct {
	Category string `json:"incidentType"`
	Keyword  string `json:"keyword,omitempty"`
	Token    int    `json:"tokenIndex"`
}
