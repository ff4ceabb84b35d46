// Package validate checks generated dashboards and rule files: every PromQL
// expression must parse and every referenced series should be a known metric.
package validate

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/car-deal-tracker/tools/dashgen/rules"
)

// Result collects validation findings. Errors fail generation, warnings
// are reported only.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// Expr parses a single expression and checks its metric names.
func Expr(where, expr string, known map[string]bool) Result {
	var res Result

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", where, err))
		return res
	}

	for _, name := range MetricNames(node) {
		if !known[name] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unknown metric %q", where, name))
		}
	}
	return res
}

// MetricNames returns the sorted, distinct series names selected by node.
func MetricNames(node parser.Node) []string {
	var names []string
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		if vs, ok := n.(*parser.VectorSelector); ok && vs.Name != "" {
			names = append(names, vs.Name)
		}
		return nil
	})
	slices.Sort(names)
	return slices.Compact(names)
}

// DashboardJSON validates every "expr" field found in a marshaled dashboard.
func DashboardJSON(data []byte, known map[string]bool) Result {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{Errors: []string{fmt.Sprintf("decoding dashboard: %v", err)}}
	}

	var res Result
	for i, expr := range collectExprs(doc, nil) {
		res.merge(Expr(fmt.Sprintf("target %d", i), expr, known))
	}
	return res
}

func collectExprs(v any, acc []string) []string {
	switch t := v.(type) {
	case map[string]any:
		if expr, ok := t["expr"].(string); ok && expr != "" {
			acc = append(acc, expr)
		}
		for _, child := range t {
			acc = collectExprs(child, acc)
		}
	case []any:
		for _, child := range t {
			acc = collectExprs(child, acc)
		}
	}
	return acc
}

// Rules validates every rule expression in a PrometheusRule resource and
// checks that rules carry the fields Prometheus Operator expects.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for _, g := range cr.Spec.Groups {
		for _, r := range g.Rules {
			name := r.Name()
			if name == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: rule without record or alert name", g.Name))
				continue
			}
			if r.Alert != "" && r.Labels["severity"] == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: alert missing severity label", name))
			}
			res.merge(Expr(g.Name+"/"+name, r.Expr, known))
		}
	}
	return res
}
