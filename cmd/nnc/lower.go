// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/gx-org/nn/build/analyzer"
	"github.com/gx-org/nn/build/lower"
	"github.com/gx-org/nn/build/module"
)

// target is a flow to analyze or lower, from the command line or
// from the [lower] section of the project file.
type target struct {
	files  []string
	source string
	flow   string
	output string
	sizes  map[string]int64
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("flow", "", "name of the flow")
	cmd.Flags().StringToInt64("size", nil, "values of the sizes of the flow (S=v,...)")
}

func (s *session) target(args []string) (*target, error) {
	flags := s.cmd.Flags()
	tg := &target{files: args}
	if len(args) == 0 {
		mod, err := s.project()
		if err != nil {
			return nil, err
		}
		tg.files = mod.Sources()
		cfg := mod.Config.Lower
		tg.flow = cfg.Flow
		tg.sizes = cfg.Sizes
		if cfg.Target != "" {
			tg.source = mod.Path(cfg.Target)
		}
		if cfg.Output != "" {
			tg.output = mod.Path(cfg.Output)
		}
		if tg.source != "" && len(tg.files) == 0 {
			tg.files = []string{tg.source}
		}
	} else {
		tg.source = args[0]
	}
	if tg.source == "" && len(tg.files) > 0 {
		tg.source = tg.files[0]
	}
	if flags.Changed("flow") {
		flow, err := flags.GetString("flow")
		if err != nil {
			return nil, err
		}
		tg.flow = flow
	}
	if flags.Changed("size") {
		sizes, err := flags.GetStringToInt64("size")
		if err != nil {
			return nil, err
		}
		tg.sizes = sizes
	}
	if tg.flow == "" {
		return nil, errors.Errorf("no flow given: use --flow or set flow in the [lower] section of %s", module.FileName)
	}
	if len(tg.files) == 0 {
		return nil, errors.Errorf("no source file given")
	}
	return tg, nil
}

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params --flow F [file]",
		Short: "Print the number of trainable parameters of a flow",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			tg, err := s.target(args)
			if err != nil {
				return err
			}
			c, err := s.check(tg.files)
			if err != nil {
				return err
			}
			if err := s.report(c); err != nil {
				return err
			}
			count, err := analyzer.Analyze(c, analyzer.Target{Source: tg.source, Flow: tg.flow}, tg.sizes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", tg.flow, count)
			return err
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func newLowerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lower --flow F [-o output] [file]",
		Short: "Lower a flow into an operator graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			tg, err := s.target(args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				if tg.output, err = cmd.Flags().GetString("output"); err != nil {
					return err
				}
			}
			text, err := cmd.Flags().GetBool("text")
			if err != nil {
				return err
			}
			c, err := s.check(tg.files)
			if err != nil {
				return err
			}
			if err := s.report(c); err != nil {
				return err
			}
			g, err := lower.Lower(c, lower.Target{Source: tg.source, Flow: tg.flow, Sizes: tg.sizes})
			if err != nil {
				return err
			}
			if text {
				_, err = fmt.Fprint(cmd.OutOrStdout(), g.String())
				return err
			}
			if tg.output == "" {
				tg.output = tg.flow + ".nngraph"
			}
			var buf bytes.Buffer
			if err := g.Encode(&buf); err != nil {
				return err
			}
			if err := s.fsys.WriteFile(s.ctx, tg.output, buf.Bytes()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s written: %d node(s), %d initializer(s)\n", tg.output, len(g.Nodes), len(g.Initializers))
			return err
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "file to which the graph is written (default: <flow>.nngraph)")
	cmd.Flags().Bool("text", false, "print the graph as text instead of writing it")
	return cmd
}
