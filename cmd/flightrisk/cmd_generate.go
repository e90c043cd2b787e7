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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/ux"
	"github.com/AleutianAI/FlightRisk/services/dataset"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	rows  int
	seed  uint64
	start string
	end   string
	out   string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	def := dataset.DefaultOptions()
	opts := &generateOptions{
		rows:  def.Rows,
		seed:  def.Seed,
		start: def.Start.Format(time.DateOnly),
		end:   def.End.Format(time.DateOnly),
		out:   "-",
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a reproducible synthetic incident CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	cmd.Flags().IntVar(&opts.rows, "rows", opts.rows, "number of incidents")
	cmd.Flags().Uint64Var(&opts.seed, "seed", opts.seed, "random seed")
	cmd.Flags().StringVar(&opts.start, "start", opts.start, "first possible date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", opts.end, "end date, exclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.out, "out", opts.out, `output file, or "-" for stdout`)
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	start, err := time.Parse(time.DateOnly, opts.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, opts.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}

	records, err := dataset.Generate(dataset.Options{
		Rows:  opts.rows,
		Seed:  opts.seed,
		Start: start,
		End:   end,
	})
	if err != nil {
		return err
	}

	if opts.out == "-" {
		w := bufio.NewWriter(cmd.OutOrStdout())
		if err := dataset.WriteCSV(w, records); err != nil {
			return err
		}
		return w.Flush()
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	p := root.printer(cmd)
	p.Success(fmt.Sprintf("wrote %d incidents", len(records)))
	p.Box("Dataset",
		ux.Field{Label: "File", Value: opts.out},
		ux.Field{Label: "Seed", Value: strconv.FormatUint(opts.seed, 10)},
		ux.Field{Label: "Dates", Value: opts.start + " to " + opts.end},
	)
	return nil
}
