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

package planner

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"segplan.io/segplan/go/vt/planner/decorrelate"
	"segplan.io/segplan/go/vt/planner/dispatch"
	"segplan.io/segplan/go/vt/utils"
	"segplan.io/segplan/go/vt/vterrors"
)

// Setting names, shared by flags, config files and SEGPLAN_* variables.
const (
	KeyEnableDirectDispatch    = "enable-direct-dispatch"
	KeyMaxDispatchCombinations = "max-dispatch-combinations"
	KeyEmptyDispatchSeed       = "empty-dispatch-seed"
	KeyEnableDecorrelateScalar = "enable-decorrelate-scalar"
	KeyEnableNotInAntiJoin     = "enable-notin-antijoin"
	KeyEnableExistsSemiJoin    = "enable-exists-semijoin"
	KeyEnableInSemiJoin        = "enable-in-semijoin"
)

// Config holds every planner toggle.
type Config struct {
	Dispatch    dispatch.Config
	Decorrelate decorrelate.Config
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Dispatch:    dispatch.DefaultConfig(),
		Decorrelate: decorrelate.DefaultConfig(),
	}
}

// RegisterFlags adds the planner settings to fs. The flag values are only
// read back through the viper instance fs is bound to.
func RegisterFlags(fs *pflag.FlagSet) {
	def := DefaultConfig()
	utils.SetFlagBoolVar(fs, new(bool), KeyEnableDirectDispatch, def.Dispatch.Enabled, "narrow slices to the segments their filters can reach")
	utils.SetFlagIntVar(fs, new(int), KeyMaxDispatchCombinations, def.Dispatch.MaxCombinations, "maximum distribution key tuples hashed for one scan")
	utils.SetFlagIntVar(fs, new(int), KeyEmptyDispatchSeed, def.Dispatch.EmptySeed, "seed choosing the segment of slices proven empty")
	utils.SetFlagBoolVar(fs, new(bool), KeyEnableDecorrelateScalar, def.Decorrelate.Scalar, "pull correlated scalar aggregate subqueries up into joins")
	utils.SetFlagBoolVar(fs, new(bool), KeyEnableNotInAntiJoin, def.Decorrelate.NotIn, "turn NOT IN subqueries into anti joins")
	utils.SetFlagBoolVar(fs, new(bool), KeyEnableExistsSemiJoin, def.Decorrelate.Exists, "turn correlated EXISTS subqueries into semi and anti joins")
	utils.SetFlagBoolVar(fs, new(bool), KeyEnableInSemiJoin, def.Decorrelate.In, "turn IN subqueries into semi joins")
}

// NewViper returns a viper instance reading SEGPLAN_* variables, with the
// defaults set and fs bound when it is not nil.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(utils.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault(KeyEnableDirectDispatch, def.Dispatch.Enabled)
	v.SetDefault(KeyMaxDispatchCombinations, def.Dispatch.MaxCombinations)
	v.SetDefault(KeyEmptyDispatchSeed, def.Dispatch.EmptySeed)
	v.SetDefault(KeyEnableDecorrelateScalar, def.Decorrelate.Scalar)
	v.SetDefault(KeyEnableNotInAntiJoin, def.Decorrelate.NotIn)
	v.SetDefault(KeyEnableExistsSemiJoin, def.Decorrelate.Exists)
	v.SetDefault(KeyEnableInSemiJoin, def.Decorrelate.In)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, vterrors.Wrap(err, "binding planner flags")
		}
	}
	return v, nil
}

// LoadConfig reads the planner settings from v.
func LoadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	var err error
	boolean := func(key string) bool {
		if err != nil {
			return false
		}
		var b bool
		b, err = castBool(v, key)
		return b
	}
	integer := func(key string, lo int) int {
		if err != nil {
			return 0
		}
		var n int
		n, err = castInt(v, key, lo)
		return n
	}

	cfg.Dispatch.Enabled = boolean(KeyEnableDirectDispatch)
	cfg.Dispatch.MaxCombinations = integer(KeyMaxDispatchCombinations, 1)
	cfg.Dispatch.EmptySeed = integer(KeyEmptyDispatchSeed, 0)
	cfg.Decorrelate.Scalar = boolean(KeyEnableDecorrelateScalar)
	cfg.Decorrelate.NotIn = boolean(KeyEnableNotInAntiJoin)
	cfg.Decorrelate.Exists = boolean(KeyEnableExistsSemiJoin)
	cfg.Decorrelate.In = boolean(KeyEnableInSemiJoin)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func castBool(v *viper.Viper, key string) (bool, error) {
	switch raw := v.Get(key).(type) {
	case bool:
		return raw, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "t", "true", "on", "yes":
			return true, nil
		case "0", "f", "false", "off", "no":
			return false, nil
		}
		return false, vterrors.VT09001(key, raw)
	case nil:
		return false, vterrors.VT09001(key, "<unset>")
	default:
		return false, vterrors.VT09001(key, raw)
	}
}

func castInt(v *viper.Viper, key string, lo int) (int, error) {
	raw := v.Get(key)
	var n int
	switch x := raw.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != float64(int(x)) {
			return 0, vterrors.VT09001(key, raw)
		}
		n = int(x)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, vterrors.VT09001(key, raw)
		}
		n = parsed
	default:
		return 0, vterrors.VT09001(key, raw)
	}
	if n < lo {
		return 0, vterrors.VT09001(key, raw)
	}
	return n, nil
}
