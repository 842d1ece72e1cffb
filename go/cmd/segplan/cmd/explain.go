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
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"segplan.io/segplan/go/stats/prometheusbackend"
	"segplan.io/segplan/go/vt/planner"
	"segplan.io/segplan/go/vt/planner/decorrelate"
	"segplan.io/segplan/go/vt/planner/plan"
	"segplan.io/segplan/go/vt/planner/planfile"
	"segplan.io/segplan/go/vt/planner/shareinput"
	"segplan.io/segplan/go/vt/sqlast"
	"segplan.io/segplan/go/vt/vterrors"
)

var (
	explainOptPlan    string
	explainOptMetrics bool
)

func runExplain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	l, err := planfile.Load(explainOptPlan)
	if err != nil {
		return err
	}
	if l.Plan == nil && l.Query == nil {
		return vterrors.VT03001(explainOptPlan + " has neither a plan nor a query")
	}

	var metrics *prometheus.Registry
	if explainOptMetrics {
		metrics = prometheus.NewRegistry()
		prometheusbackend.Init("segplan", metrics)
	}

	w := cmd.OutOrStdout()
	ctx := cmd.Context()
	if l.Query != nil {
		if err := printRewrite(w, planner.RewriteQuery(ctx, l.Query, l.Catalog, cfg), l.Query); err != nil {
			return err
		}
	}
	if l.Plan != nil {
		reg, err := planner.FinalizePlan(ctx, l.Plan, cfg)
		if err != nil {
			return err
		}
		section(w, "Plan")
		fmt.Fprint(w, plan.ToTree(l.Plan))
		fmt.Fprintln(w)
		if err := printSlices(w, l.Plan); err != nil {
			return err
		}
		if err := printShares(w, l.Plan, reg); err != nil {
			return err
		}
	}
	if metrics == nil {
		return nil
	}
	return printMetrics(w, metrics)
}

func printRewrite(w io.Writer, outcomes []decorrelate.Outcome, stmt sqlast.SelectStatement) error {
	section(w, "Query")
	fmt.Fprintln(w, sqlast.String(stmt))
	fmt.Fprintln(w)
	if len(outcomes) == 0 {
		return nil
	}
	section(w, "Subqueries")
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "Result", "Detail")
	for _, o := range outcomes {
		result, detail := "kept", o.Reason
		if o.Converted {
			result, detail = "converted", o.Alias
		}
		if err := table.Append([]string{o.Kind.String(), result, detail}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printSlices(w io.Writer, p *plan.Plan) error {
	section(w, "Slices")
	table := tablewriter.NewWriter(w)
	table.Header("Slice", "Parent", "Sender", "Locus", "Dispatch")
	for _, s := range p.Slices {
		parent, sender := "-", "-"
		if s.Parent >= 0 {
			parent = strconv.Itoa(s.Parent)
		}
		if s.Motion != plan.InvalidNodeID {
			m := p.MustNode(s.Motion)
			sender = fmt.Sprintf("%d (%s)", m.PlanNodeID, m.Motion.Type)
		}
		dispatch := s.Dispatch.String()
		if s.Dispatch != nil && s.Dispatch.Empty {
			dispatch += " empty"
		}
		if err := table.Append([]string{strconv.Itoa(s.ID), parent, sender, s.Locus.String(), dispatch}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printShares(w io.Writer, p *plan.Plan, reg *shareinput.Registry) error {
	if len(reg.Shares()) == 0 {
		return nil
	}
	section(w, "Shares")
	table := tablewriter.NewWriter(w)
	table.Header("Share", "Producer", "Consumers", "Slices", "Cross-slice")
	for _, s := range reg.Shares() {
		consumers := make([]string, 0, len(s.Consumers))
		for _, c := range s.Consumers {
			consumers = append(consumers, strconv.Itoa(p.MustNode(c).PlanNodeID))
		}
		slices := make([]string, 0, len(s.Slices))
		for _, id := range s.Slices {
			slices = append(slices, strconv.Itoa(id))
		}
		row := []string{
			strconv.Itoa(s.ID),
			strconv.Itoa(p.MustNode(s.Producer).PlanNodeID),
			strings.Join(consumers, ","),
			strings.Join(slices, ","),
			strconv.FormatBool(s.CrossSlice),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// printMetrics prints the planner counters as exported to Prometheus. The
// counters are process wide.
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return vterrors.Wrap(err, "gathering metrics")
	}
	section(w, "Metrics")
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Labels", "Value")
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "segplan_planner_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			row := []string{mf.GetName(), strings.Join(labels, ","), strconv.FormatFloat(value, 'f', -1, 64)}
			if err := table.Append(row); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

func Explain() *cobra.Command {
	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "Finalizes the plan of a plan file and prints it with its slices and shares",
		Long: `Finalizes the plan of a plan file and prints it with its slices and shares.
When the file has a query, the query is decorrelated and printed first.`,
		Args: cobra.NoArgs,
		RunE: runExplain,
	}
	explainCmd.Flags().StringVarP(
		&explainOptPlan,
		"plan", "p",
		"",
		"the YAML plan file (required)")
	explainCmd.Flags().BoolVar(
		&explainOptMetrics,
		"metrics",
		false,
		"print the planner counters after the plan")
	explainCmd.MarkFlagRequired("plan")
	explainCmd.MarkFlagFilename("plan", "yaml", "yml")
	return explainCmd
}
