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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/ux"
	"github.com/AleutianAI/FlightRisk/services/riskservice/datatypes"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/spf13/cobra"
)

type predictOptions struct {
	flight  string
	route   string
	kind    string
	server  string
	timeout time.Duration
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Ask a running risk service for an incident risk score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			res, err := requestPrediction(ctx, http.DefaultClient, opts)
			if err != nil {
				return err
			}
			renderPrediction(root.printer(cmd), opts, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.flight, "flight", "", "flight number, e.g. AA100")
	f.StringVar(&opts.route, "route", "", "route, e.g. JFK-LAX")
	f.StringVar(&opts.kind, "type", "", "incident type, e.g. Turbulence")
	f.StringVar(&opts.server, "server", envOr("FLIGHTRISK_SERVER_URL", "http://localhost:8080"), "risk service base URL")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("flight")
	_ = cmd.MarkFlagRequired("route")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// requestPrediction calls POST {server}/predict_risk.
func requestPrediction(ctx context.Context, client *http.Client, opts *predictOptions) (risk.Result, error) {
	flight, route, kind := opts.flight, opts.route, opts.kind
	body, err := json.Marshal(datatypes.PredictRiskRequest{
		FlightNumber: &flight,
		Route:        &route,
		IncidentType: &kind,
	})
	if err != nil {
		return risk.Result{}, err
	}

	url := strings.TrimRight(opts.server, "/") + "/predict_risk"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return risk.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return risk.Result{}, fmt.Errorf("risk service unreachable at %s: %w", opts.server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return risk.Result{}, fmt.Errorf("risk service returned %d: %s", resp.StatusCode, apiErr.Error)
	}

	var res risk.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return risk.Result{}, fmt.Errorf("decode prediction: %w", err)
	}
	return res, nil
}

func renderPrediction(p *ux.Printer, opts *predictOptions, res risk.Result) {
	band := ux.BandFor(res.Risk)
	p.Box(string(ux.IconPlane)+" Incident risk",
		ux.Field{Label: "Flight", Value: opts.flight},
		ux.Field{Label: "Route", Value: opts.route},
		ux.Field{Label: "Incident type", Value: opts.kind},
		ux.Field{Label: "Risk", Value: p.Bar(res.Risk, 20)},
		ux.Field{Label: "Score", Value: strconv.FormatFloat(res.Risk, 'f', 4, 64)},
		ux.Field{Label: "Band", Value: p.RenderBand(band)},
		ux.Field{Label: "Message", Value: res.Message},
	)
	if res == risk.InsufficientData() {
		p.Warning("no matching incident history; the score is a fixed low default")
	}
}
