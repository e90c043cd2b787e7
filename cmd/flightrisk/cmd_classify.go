// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strings"

	"github.com/AleutianAI/FlightRisk/pkg/ux"
	"github.com/AleutianAI/FlightRisk/services/classifier"
	"github.com/spf13/cobra"
)

func newClassifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Classify an incident description offline",
		Example: `  flightrisk classify "engine failure during turbulence"
  flightrisk classify -o machine Heavy rain on final approach`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := classifier.NewEngine()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			m := engine.Explain(text)

			keyword := m.Keyword
			if keyword == "" {
				keyword = "(none)"
			}
			p := root.printer(cmd)
			p.Box(string(ux.IconPlane)+" Classification",
				ux.Field{Label: "Incident type", Value: m.Category},
				ux.Field{Label: "Keyword", Value: keyword},
			)
			return nil
		},
	}
}
