// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier assigns coarse incident categories to free-text reports
// by keyword lookup.
//
// The rule table is embedded in the binary (see the rules package). A report
// is tokenized, then categories are tested from highest to lowest priority
// and the first category with any keyword among the tokens wins. Reports that
// match nothing get the default category "Other".
package classifier

import (
	"fmt"

	"github.com/AleutianAI/FlightRisk/services/classifier/rules"
	"gopkg.in/yaml.v3"
)

// Engine classifies incident descriptions. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	categories      []Category
	defaultCategory string
}

// NewEngine loads the embedded keyword rules.
//
// It unmarshals the embedded YAML, validates it, and sorts categories by
// priority. An error means the embedded file is malformed.
func NewEngine() (*Engine, error) {
	return NewEngineFromYAML(rules.IncidentKeywords)
}

// NewEngineFromYAML builds an engine from a rule document in the same format
// as the embedded file.
func NewEngineFromYAML(data []byte) (*Engine, error) {
	var ruleFile RuleFile
	if err := yaml.Unmarshal(data, &ruleFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classifier rules: %w", err)
	}
	if err := ruleFile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier rules: %w", err)
	}
	ruleFile.SortByPriority()

	return &Engine{
		categories:      ruleFile.Categories,
		defaultCategory: ruleFile.DefaultCategory,
	}, nil
}

// Classify returns the incident category for text.
//
//	engine.Classify("engine failure during turbulence") // "Engine Failure"
//	engine.Classify("routine flight, no issues")        // "Other"
func (e *Engine) Classify(text string) string {
	return e.Explain(text).Category
}

// Explain classifies text and reports which keyword decided the category.
// For the default category Keyword is empty and Token is -1.
func (e *Engine) Explain(text string) Match {
	tokens := Tokenize(text)
	for _, c := range e.categories {
		for i, tok := range tokens {
			if c.keywordSet[tok] {
				return Match{Category: c.Name, Keyword: tok, Token: i}
			}
		}
	}
	return Match{Category: e.defaultCategory, Token: -1}
}

// Categories lists category names in evaluation order followed by the default.
func (e *Engine) Categories() []string {
	names := make([]string, 0, len(e.categories)+1)
	for _, c := range e.categories {
		names = append(names, c.Name)
	}
	return append(names, e.defaultCategory)
}
