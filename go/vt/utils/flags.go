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

// Package utils holds flag registration helpers shared by the planner
// packages and the segplan command.
package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every setting name when it is read from the
// environment.
const EnvPrefix = "SEGPLAN"

// flagVariants returns the underscored and dashed spellings of name,
// keeping a leading "--" if present.
func flagVariants(name string) (underscored, dashed string) {
	prefix := "--"
	if strings.HasPrefix(name, prefix) {
		bare := strings.TrimPrefix(name, prefix)
		underscored = prefix + strings.ReplaceAll(bare, "-", "_")
		dashed = prefix + strings.ReplaceAll(bare, "_", "-")
	} else {
		underscored = strings.ReplaceAll(name, "-", "_")
		dashed = strings.ReplaceAll(name, "_", "-")
	}
	return
}

// EnvName returns the environment variable that backs the setting name,
// e.g. max-dispatch-combinations becomes SEGPLAN_MAX_DISPATCH_COMBINATIONS.
func EnvName(name string) string {
	underscored, _ := flagVariants(strings.TrimPrefix(name, "--"))
	return EnvPrefix + "_" + strings.ToUpper(underscored)
}

// setFlagVar registers the dashed spelling of name through setFunc and a
// hidden, deprecated underscored alias sharing the same value.
func setFlagVar[T any](fs *pflag.FlagSet, p *T, name string, def T, usage string,
	setFunc func(fs *pflag.FlagSet, p *T, name string, def T, usage string)) {
	underscored, dashed := flagVariants(name)
	setFunc(fs, p, dashed, def, usage)
	addAlias(fs, underscored, dashed)
}

func addAlias(fs *pflag.FlagSet, underscored, dashed string) {
	if underscored == dashed || fs.Lookup(underscored) != nil {
		return
	}
	primary := fs.Lookup(dashed)
	fs.AddFlag(&pflag.Flag{
		Name:       underscored,
		Value:      primary.Value,
		DefValue:   primary.DefValue,
		Hidden:     true,
		Deprecated: fmt.Sprintf("use %s instead", dashed),
	})
}

func SetFlagIntVar(fs *pflag.FlagSet, p *int, name string, def int, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).IntVar)
}

func SetFlagInt64Var(fs *pflag.FlagSet, p *int64, name string, def int64, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).Int64Var)
}

func SetFlagBoolVar(fs *pflag.FlagSet, p *bool, name string, def bool, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).BoolVar)
}

func SetFlagStringVar(fs *pflag.FlagSet, p *string, name string, def string, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).StringVar)
}

func SetFlagDurationVar(fs *pflag.FlagSet, p *time.Duration, name string, def time.Duration, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).DurationVar)
}

func SetFlagStringSliceVar(fs *pflag.FlagSet, p *[]string, name string, def []string, usage string) {
	setFlagVar(fs, p, name, def, usage, (*pflag.FlagSet).StringSliceVar)
}

// SetFlagVar registers a pflag.Value under the dashed spelling of name.
func SetFlagVar(fs *pflag.FlagSet, value pflag.Value, name, usage string) {
	underscored, dashed := flagVariants(name)
	fs.Var(value, dashed, usage)
	addAlias(fs, underscored, dashed)
}

var deprecationWarningsEmitted = make(map[string]bool)

// NormalizeUnderscoresToDashes is a pflag normalize func translating
// underscored names to dashes, warning once per name.
func NormalizeUnderscoresToDashes(f *pflag.FlagSet, name string) pflag.NormalizedName {
	// glog owns these.
	if name == "log_dir" || name == "log_link" || name == "log_backtrace_at" {
		return pflag.NormalizedName(name)
	}
	if !strings.Contains(name, "_") || strings.Contains(name, "-") {
		return pflag.NormalizedName(name)
	}

	normalized := strings.ReplaceAll(name, "_", "-")
	if !deprecationWarningsEmitted[name] {
		deprecationWarningsEmitted[name] = true
		fmt.Fprintf(os.Stderr, "Flag --%s has been deprecated, use --%s instead\n", name, normalized)
	}
	return pflag.NormalizedName(normalized)
}
