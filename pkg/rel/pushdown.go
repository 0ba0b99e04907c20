// Copyright 2024-2025 framehq
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rel

import (
	"go.uber.org/zap"

	"github.com/framehq/frame/pkg/util"
)

// ApplyFilter incorporates predicates into a table expression, preferring
// fusion with the nearest Selection or Aggregation over wrapping. Pushing
// a predicate closer to its source makes cleaner plans and fewer
// referential errors downstream.
func ApplyFilter(expr *Expr, predicates []*Expr) (*Expr, error) {
	if expr == nil || !expr.Typ.isTable() {
		return nil, expressionErr("filter on non table expression")
	}
	for _, pred := range predicates {
		if pred == nil || pred.DataTyp != DataTypeBool {
			return nil, expressionErr("filter predicate must be boolean")
		}
	}

	switch expr.Typ {
	case ET_Selection:
		return filterSelection(expr, predicates)
	case ET_Aggregation:
		// fusion opportunity: a predicate over the aggregation's own
		// output may ride on the aggregation's predicate list once its
		// table reference is rewritten. raw reductions never ride; the
		// scalar reduction rewriter handles those before this point.
		simplified := make([]*Expr, 0, len(predicates))
		for _, pred := range predicates {
			if !IsReduction(pred) {
				simplified = append(simplified, subFor(pred, expr.Table, expr))
			} else {
				simplified = append(simplified, pred)
			}
		}
		if SharesAllRoots(simplified, expr.Table) {
			ret := expr.shallowCopy()
			ret.Predicates = appendExprs(expr.Predicates, simplified)
			return ret, nil
		}
	}

	if len(predicates) == 0 {
		return expr, nil
	}
	return newSelection(expr, nil, predicates, nil)
}

func appendExprs(a, b []*Expr) []*Expr {
	ret := make([]*Expr, 0, len(a)+len(b))
	ret = append(ret, a...)
	ret = append(ret, b...)
	return ret
}

func filterSelection(expr *Expr, predicates []*Expr) (*Expr, error) {
	// a filter commonly references the selection itself. when pushdown is
	// possible the table refs must be rewritten in terms of the child
	// table, otherwise the pushed predicate dangles.
	if !expr.blocks() {
		simplified := make([]*Expr, 0, len(predicates))
		for _, pred := range predicates {
			if !IsReduction(pred) {
				simplified = append(simplified, subFor(pred, expr, expr.Table))
			} else {
				simplified = append(simplified, pred)
			}
		}
		if SharesAllRoots(simplified, expr.Table) {
			return newSelection(expr.Table, nil,
				appendExprs(expr.Predicates, simplified), expr.SortKeys)
		}
	}

	if canPushdown(expr, predicates) {
		simplified := make([]*Expr, 0, len(predicates))
		for _, pred := range predicates {
			simplified = append(simplified, SubstituteParents(pred, true))
		}
		return newSelection(expr.Table, expr.Selections,
			appendExprs(expr.Predicates, simplified), expr.SortKeys)
	}

	util.Debug("filter pushdown rejected, wrapping",
		zap.Int("predicates", len(predicates)))
	return newSelection(expr, nil, predicates, nil)
}

// canPushdown holds when every referenced table column is a plain,
// unaliased column that appears in the parent's selection list, either
// through a whole table entry or as a single column selection.
func canPushdown(parent *Expr, predicates []*Expr) bool {
	for _, pred := range predicates {
		if !validatePushdown(parent, pred) {
			return false
		}
	}
	return true
}

func validatePushdown(parent *Expr, pred *Expr) bool {
	// any reduction anywhere in the predicate disqualifies it
	if IsReduction(pred) {
		return false
	}
	validate := func(e *Expr) (Visit, bool, bool) {
		if e.Typ == ET_Column {
			return VisitProceed, validateProjection(parent, e), true
		}
		return VisitProceed, false, false
	}
	return allOf(Traverse(validate, []*Expr{pred}, true, ClassValue))
}

func validateProjection(parent *Expr, col *Expr) bool {
	valid := false
	for _, val := range parent.Selections {
		if val.Typ == ET_Table && tableProvides(val, col.Name) {
			valid = true
		} else if val.Typ == ET_Column && val.Alias == "" &&
			col.Name == val.outputName() {
			// aliased table columns are no good
			colTable := val.Table
			lifted := SubstituteParents(col, false)
			if colTable.equal(col.Table) {
				valid = true
			} else if lifted.Typ == ET_Column && colTable.equal(lifted.Table) {
				valid = true
			}
		}
	}
	return valid
}
