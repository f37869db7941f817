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

// Command nnc checks the shapes of neural network flows.
//
// Usage:
//
//	nnc check [files]
//	nnc graph [files]
//	nnc params --flow F [--size S=v,...] [file]
//	nnc lower --flow F [--size S=v,...] [-o output] [file]
//
// Without files, the sources and the lowering target are read from
// the nn.toml project file found in the working directory or its parents.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nnc",
		Short:         "Shape checker for neural network flows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("verbose", false, "log the phases of the check on stderr")
	root.PersistentFlags().String("dir", "", "directory of the project (default: working directory)")
	root.AddCommand(
		newCheckCmd(),
		newGraphCmd(),
		newParamsCmd(),
		newLowerCmd(),
	)
	return root
}

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, errDiagnostics) {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
	}
	os.Exit(1)
}
