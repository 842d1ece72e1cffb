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

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"segplan.io/segplan/go/sqltypes"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/planner/planfile"
	"segplan.io/segplan/go/vt/planner/seghash"
	"segplan.io/segplan/go/vt/vterrors"
)

var (
	hashOptPlan   string
	hashOptTable  string
	hashOptValues []string
)

func runHash(cmd *cobra.Command, _ []string) error {
	l, err := planfile.Load(hashOptPlan)
	if err != nil {
		return err
	}
	t, err := l.Catalog.Table(hashOptTable)
	if err != nil {
		return err
	}
	if t.Distribution.Policy != catalog.PolicyPartitioned {
		return vterrors.VT03001(fmt.Sprintf("table %s is %s, not partitioned", t.Name, t.Distribution.Policy))
	}
	keys := t.KeyColumns()
	if len(hashOptValues) != len(keys) {
		return vterrors.VT03001(fmt.Sprintf("table %s has %d distribution key columns, got %d values", t.Name, len(keys), len(hashOptValues)))
	}
	vals := make([]sqltypes.Value, 0, len(keys))
	for i, raw := range hashOptValues {
		v := sqltypes.NULL
		if !strings.EqualFold(raw, "null") {
			if v, err = sqltypes.NewValue(keys[i].Type, []byte(raw)); err != nil {
				return vterrors.Wrapf(err, "key column %s", keys[i].Name)
			}
		}
		vals = append(vals, v)
	}

	h, err := seghash.New(t.Distribution.HashFunc, t.Distribution.NumSegments)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "segment %d\n", h.Segment(vals))
	return nil
}

func Hash() *cobra.Command {
	hashCmd := &cobra.Command{
		Use:   "hash",
		Short: "Prints the segment a distribution key tuple hashes to",
		Args:  cobra.NoArgs,
		RunE:  runHash,
	}
	hashCmd.Flags().StringVarP(
		&hashOptPlan,
		"plan", "p",
		"",
		"the YAML plan file holding the table (required)")
	hashCmd.Flags().StringVarP(
		&hashOptTable,
		"table", "t",
		"",
		"the partitioned table (required)")
	hashCmd.Flags().StringSliceVarP(
		&hashOptValues,
		"values", "v",
		nil,
		"the distribution key values in key order; null for NULL")

	for _, f := range []string{"plan", "table"} {
		hashCmd.MarkFlagRequired(f)
	}
	return hashCmd
}
