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

import "github.com/framehq/frame/pkg/util"

// distributeExpr factors the common conjuncts out of a disjunction:
// (a and b) or (a and c) => a and (b or c). Factored predicates flatten
// into more terms, and more terms push down further.
func distributeExpr(expr *Expr) *Expr {
	if expr == nil {
		return nil
	}
	orExprs := splitExprByOr(expr)
	candidates := splitExprByAnd(orExprs[0])
	for i := 1; i < len(orExprs); i++ {
		next := splitExprByAnd(orExprs[i])
		intersect := make([]*Expr, 0)
		for _, cand := range candidates {
			if hasEqualExpr(next, cand) {
				intersect = append(intersect, cand)
			}
		}
		candidates = intersect
	}
	if len(candidates) == 0 {
		//no common expr. return original
		return expr
	}

	//remove cand from children in original exprs
	resChildren := make([]*Expr, 0)
	for _, orExpr := range orExprs {
		retElems := util.RemoveIf(splitExprByAnd(orExpr), func(t *Expr) bool {
			return t == nil || hasEqualExpr(candidates, t)
		})
		if len(retElems) > 0 {
			resChildren = append(resChildren, combineExprsByAnd(retElems...))
		}
	}
	//result: candidates && (resChildren[0] || resChildren[1] ...)
	if len(resChildren) == 0 {
		return combineExprsByAnd(candidates...)
	}
	return andExpr(
		combineExprsByAnd(candidates...),
		combineExprsByOr(resChildren...))
}

func splitExprByAnd(expr *Expr) []*Expr {
	if expr.Typ == ET_Func && expr.SubTyp == ET_And {
		return append(splitExprByAnd(expr.Children[0]),
			splitExprByAnd(expr.Children[1])...)
	}
	return []*Expr{expr}
}

func splitExprByOr(expr *Expr) []*Expr {
	if expr.Typ == ET_Func && expr.SubTyp == ET_Or {
		return append(splitExprByOr(expr.Children[0]),
			splitExprByOr(expr.Children[1])...)
	}
	return []*Expr{expr}
}

func combineExprsByAnd(exprs ...*Expr) *Expr {
	util.AssertFunc(len(exprs) > 0)
	if len(exprs) == 1 {
		return exprs[0]
	}
	return andExpr(
		combineExprsByAnd(exprs[:len(exprs)-1]...),
		exprs[len(exprs)-1])
}

func combineExprsByOr(exprs ...*Expr) *Expr {
	util.AssertFunc(len(exprs) > 0)
	if len(exprs) == 1 {
		return exprs[0]
	}
	return orExpr(
		combineExprsByOr(exprs[:len(exprs)-1]...),
		exprs[len(exprs)-1])
}
