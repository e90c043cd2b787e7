// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	_ "embed"
)

// IncidentKeywords holds the raw content of incident_keywords.yaml.
//
// The rule file is compiled into the binary so every replica classifies with
// the same keyword table and it cannot drift on the host filesystem.
//
//	err := yaml.Unmarshal(rules.IncidentKeywords, &ruleFile)
//
//go:embed incident_keywords.yaml
var IncidentKeywords []byte
