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
	"github.com/spf13/cobra"

	"segplan.io/segplan/go/vt/planner"
	"segplan.io/segplan/go/vt/planner/catalog"
	"segplan.io/segplan/go/vt/planner/planfile"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

var (
	rewriteOptPlan  string
	rewriteOptQuery string
)

func runRewrite(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	cat := catalog.New()
	var stmt sqlast.SelectStatement
	if rewriteOptPlan != "" {
		l, err := planfile.Load(rewriteOptPlan)
		if err != nil {
			return err
		}
		cat, stmt = l.Catalog, l.Query
	}
	if rewriteOptQuery != "" {
		if stmt, err = sqlast.ParseSelect(rewriteOptQuery); err != nil {
			return err
		}
	}
	if stmt == nil {
		return vterrors.VT03001("no query to rewrite")
	}
	outcomes := planner.RewriteQuery(cmd.Context(), stmt, cat, cfg)
	return printRewrite(cmd.OutOrStdout(), outcomes, stmt)
}

func Rewrite() *cobra.Command {
	rewriteCmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Decorrelates the subqueries of a query and prints the result",
		Args:  cobra.NoArgs,
		RunE:  runRewrite,
	}
	rewriteCmd.Flags().StringVarP(
		&rewriteOptPlan,
		"plan", "p",
		"",
		"a YAML plan file providing the tables and, unless --query is set, the query")
	rewriteCmd.Flags().StringVarP(
		&rewriteOptQuery,
		"query", "q",
		"",
		"the SELECT statement to rewrite")
	rewriteCmd.MarkFlagFilename("plan", "yaml", "yml")
	return rewriteCmd
}
