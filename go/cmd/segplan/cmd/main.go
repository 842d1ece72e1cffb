/*
Copyright 2026 The Segplan Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cmd holds the segplan command tree: explain, rewrite and hash
// over YAML plan files.
package cmd

import (
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"segplan.io/segplan/go/trace"
	"segplan.io/segplan/go/vt/log"
	"segplan.io/segplan/go/vt/planner"
	"segplan.io/segplan/go/vt/utils"
	"segplan.io/segplan/go/vt/vterrors"
)

var (
	configFile string
	noColor    bool

	tracingCloser io.Closer
)

func Main() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "segplan",
		Short:        "Inspect how plans are refined for a segmented cluster",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			tracingCloser = trace.StartTracing("segplan")
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if tracingCloser == nil {
				return nil
			}
			return tracingCloser.Close()
		},
		Run: func(cmd *cobra.Command, _ []string) { cmd.Help() },
	}

	fs := rootCmd.PersistentFlags()
	fs.SetNormalizeFunc(utils.NormalizeUnderscoresToDashes)
	fs.StringVarP(
		&configFile,
		"config", "c",
		"",
		"a YAML or JSON file with planner settings; flags and SEGPLAN_* variables override it")
	rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml", "json")
	fs.BoolVar(&noColor, "no-color", false, "disable colored section headers")
	log.RegisterFlags(fs)
	trace.RegisterFlags(fs)
	planner.RegisterFlags(fs)

	rootCmd.AddCommand(Explain())
	rootCmd.AddCommand(Rewrite())
	rootCmd.AddCommand(Hash())

	return rootCmd
}

// loadConfig merges the config file, the environment and the flags of
// cmd into a planner configuration.
func loadConfig(fs *pflag.FlagSet) (planner.Config, error) {
	v, err := planner.NewViper(fs)
	if err != nil {
		return planner.Config{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return planner.Config{}, vterrors.Wrapf(err, "reading config file %s", configFile)
		}
	}
	return planner.LoadConfig(v)
}

var heading = color.New(color.FgCyan, color.Bold)

func section(w io.Writer, title string) {
	heading.Fprintln(w, title)
}
