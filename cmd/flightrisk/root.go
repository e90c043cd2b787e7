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
	"log/slog"
	"os"

	"github.com/AleutianAI/FlightRisk/pkg/logging"
	"github.com/AleutianAI/FlightRisk/pkg/ux"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	logLevel string
	output   string
}

func (o *rootOptions) printer(cmd *cobra.Command) *ux.Printer {
	return ux.NewPrinter(cmd.OutOrStdout(), ux.ParseMode(o.output))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "flightrisk",
		Short: "Generate, seed, classify and score aviation incident data",
		Long: `flightrisk works with the FlightRisk incident store and risk service.

It generates reproducible sample datasets, seeds MongoDB or InfluxDB,
classifies incident reports offline and asks a running risk service for
a prediction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Config{
				Level:   opts.logLevel,
				Format:  logging.FormatPretty,
				Service: "flightrisk",
				Output:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			slog.SetDefault(logger.Slog())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("FLIGHTRISK_LOG_LEVEL", "warn"), "log level: debug, info, warn, error")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "pretty", "output style: pretty or machine")

	root.AddCommand(
		newGenerateCmd(opts),
		newSeedCmd(opts),
		newClassifyCmd(opts),
		newPredictCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
