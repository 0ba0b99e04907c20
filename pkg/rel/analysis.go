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

import "github.com/tidwall/btree"

// RootSet is a set of normalized root tables, ordered by structural key
// so scans and comparisons are deterministic.
type RootSet struct {
	m btree.Map[string, *Expr]
}

func (s *RootSet) add(e *Expr) {
	s.m.Set(e.key(), e)
}

func (s *RootSet) Len() int {
	return s.m.Len()
}

func (s *RootSet) Contains(e *Expr) bool {
	_, has := s.m.Get(e.key())
	return has
}

func (s *RootSet) SubsetOf(o *RootSet) bool {
	ok := true
	s.m.Scan(func(k string, _ *Expr) bool {
		if _, has := o.m.Get(k); !has {
			ok = false
			return false
		}
		return true
	})
	return ok
}

func (s *RootSet) Intersects(o *RootSet) bool {
	found := false
	s.m.Scan(func(k string, _ *Expr) bool {
		if _, has := o.m.Get(k); has {
			found = true
			return false
		}
		return true
	})
	return found
}

func (s *RootSet) Scan(fn func(e *Expr) bool) {
	s.m.Scan(func(_ string, e *Expr) bool {
		return fn(e)
	})
}

// findRootTable normalizes lineage: a Selection is replaced by a copy with
// predicates and sort keys erased before descent continues, so two
// selections differing only in filter or sort compare equal. Blocking
// nodes terminate descent and become the roots.
func findRootTable(e *Expr) (Visit, *Expr) {
	if e.Typ == ET_Selection {
		stripped := e.shallowCopy()
		stripped.Predicates = nil
		stripped.SortKeys = nil
		return VisitProceed, stripped
	}
	if e.blocks() {
		return VisitHalt, e
	}
	return VisitProceed, nil
}

// RootTables computes the minimal set of normalized base table
// dependencies the expressions rest on.
func RootTables(exprs ...*Expr) *RootSet {
	set := &RootSet{}
	for e := range TraverseExprs(findRootTable, exprs, true, ClassAny) {
		set.add(e)
	}
	return set
}

// SharesAllRoots reports whether every table dependency of exprs is also a
// dependency of parent.
func SharesAllRoots(exprs []*Expr, parent *Expr) bool {
	return RootTables(exprs...).SubsetOf(RootTables(parent))
}

// SharesSomeRoots reports whether exprs and parent have at least one table
// dependency in common.
func SharesSomeRoots(exprs []*Expr, parent *Expr) bool {
	return RootTables(exprs...).Intersects(RootTables(parent))
}

// immediateRoots is the per node root list used by projection fusion: a
// table node is its own root (a join unions its inputs), a value node
// collects the distinct roots of its arguments.
func immediateRoots(e *Expr) []*Expr {
	if e.Typ.isTable() {
		if e.Typ == ET_Join {
			return distinctExprs(append(immediateRoots(e.Left), immediateRoots(e.Right)...))
		}
		return []*Expr{e}
	}
	var ret []*Expr
	for _, arg := range e.args() {
		ret = append(ret, immediateRoots(arg)...)
	}
	return distinctExprs(ret)
}

func distinctExprs(exprs []*Expr) []*Expr {
	seen := make(map[string]struct{}, len(exprs))
	ret := make([]*Expr, 0, len(exprs))
	for _, e := range exprs {
		k := e.key()
		if _, has := seen[k]; has {
			continue
		}
		seen[k] = struct{}{}
		ret = append(ret, e)
	}
	return ret
}

// FindImmediateParentTables yields the first table expression on every
// path of expr, without descending below it. The underlying physical
// table of a Selection is not reported.
func FindImmediateParentTables(expr *Expr) []*Expr {
	finder := func(e *Expr) (Visit, *Expr) {
		if e.Typ.isTable() {
			return VisitHalt, e
		}
		return VisitProceed, nil
	}
	return collect(TraverseExprs(finder, []*Expr{expr}, true, ClassAny))
}

// FindFirstBaseTable returns the first table expression reachable from
// expr, or nil.
func FindFirstBaseTable(expr *Expr) *Expr {
	finder := func(e *Expr) (Visit, *Expr) {
		if e.Typ.isTable() {
			return VisitHalt, e
		}
		return VisitProceed, nil
	}
	for e := range TraverseExprs(finder, []*Expr{expr}, true, ClassAny) {
		return e
	}
	return nil
}

// FlattenPredicate splits a conjunction into its terms.
func FlattenPredicate(expr *Expr) []*Expr {
	finder := func(e *Expr) (Visit, *Expr) {
		if e.DataTyp != DataTypeBool {
			return VisitHalt, nil
		}
		if e.Typ == ET_Func && e.SubTyp == ET_And {
			return VisitProceed, nil
		}
		return VisitHalt, e
	}
	return collect(TraverseExprs(finder, []*Expr{expr}, true, ClassValue))
}

// FindPredicates collects the boolean terms of expr, descending through
// conjunctions when flatten is set.
func FindPredicates(expr *Expr, flatten bool) []*Expr {
	finder := func(e *Expr) (Visit, *Expr) {
		if e.Typ.isValue() && e.DataTyp == DataTypeBool {
			if flatten && e.Typ == ET_Func && e.SubTyp == ET_And {
				return VisitProceed, nil
			}
			return VisitHalt, e
		}
		return VisitProceed, nil
	}
	return collect(TraverseExprs(finder, []*Expr{expr}, true, ClassAny))
}

// IsReduction reports whether the expression contains a reduction without
// descending below table nodes. A reduction bound to a separate table is
// an aggregation from that table's point of view, not this one's.
func IsReduction(expr *Expr) bool {
	finder := func(e *Expr) (Visit, bool, bool) {
		if e.Typ == ET_Agg {
			return VisitHalt, true, true
		}
		if e.Typ.isTable() {
			return VisitHalt, false, false
		}
		return VisitProceed, false, false
	}
	return anyOf(Traverse(finder, []*Expr{expr}, true, ClassAny))
}

// IsAnalytic reports whether the expression contains a reduction or an
// analytic function.
func IsAnalytic(expr *Expr) bool {
	finder := func(e *Expr) (Visit, bool, bool) {
		if e.Typ == ET_Agg || e.Typ == ET_Analytic {
			return VisitHalt, true, true
		}
		return VisitProceed, false, false
	}
	return anyOf(Traverse(finder, []*Expr{expr}, true, ClassAny))
}

// IsScalarReduction reports whether expr is a scalar shaped value
// containing a reduction, the shape the scalar aggregate rewrite targets.
func IsScalarReduction(expr *Expr) bool {
	return isScalarShape(expr) && IsReduction(expr)
}

func isScalarShape(e *Expr) bool {
	switch {
	case e.Typ.isConst():
		return true
	case e.Typ == ET_Agg:
		return true
	case e.Typ == ET_Column, e.Typ == ET_Window, e.Typ == ET_Analytic:
		return false
	case e.Typ.isTable():
		return false
	case e.Typ == ET_Any, e.Typ == ET_NotAny,
		e.Typ == ET_ExistsSub, e.Typ == ET_NotExistsSub:
		return false
	default:
		for _, arg := range e.args() {
			if !arg.Typ.isValue() || !isScalarShape(arg) {
				return false
			}
		}
		return true
	}
}

func hasMultipleBases(expr *Expr) bool {
	return len(FindImmediateParentTables(expr)) > 1
}

// SubqueryCount pairs a table subexpression with the number of paths that
// reach it. Code generators use the counts to decide what becomes a
// common table expression.
type SubqueryCount struct {
	Node  *Expr
	Count int
}

// FindSubqueries counts Selection and Aggregation usage below expr,
// keeping duplicates so multiply referenced subqueries are visible.
func FindSubqueries(expr *Expr) []SubqueryCount {
	counts := make(map[string]int)
	var order []*Expr
	finder := func(e *Expr) (Visit, struct{}, bool) {
		switch e.Typ {
		case ET_Join:
			return VisitInto(e.Left, e.Right), struct{}{}, false
		case ET_Table:
			return VisitHalt, struct{}{}, false
		case ET_SelfRef:
			return VisitProceed, struct{}{}, false
		case ET_Selection, ET_Aggregation:
			k := e.key()
			if counts[k] == 0 {
				order = append(order, e)
			}
			counts[k]++
			return VisitInto(e.Table), struct{}{}, false
		case ET_Column:
			// descend only when the column's table has not been
			// counted yet through a table path.
			if counts[e.Table.key()] > 0 {
				return VisitHalt, struct{}{}, false
			}
			return VisitProceed, struct{}{}, false
		default:
			return VisitProceed, struct{}{}, false
		}
	}
	// keep duplicates so usage multiplicity is observable
	for range Traverse(finder, []*Expr{expr}, false, ClassAny) {
	}
	ret := make([]SubqueryCount, 0, len(order))
	for _, e := range order {
		ret = append(ret, SubqueryCount{Node: e, Count: counts[e.key()]})
	}
	return ret
}

// MakeAny builds the existential marker for expr. Spanning more than one
// table produces the unresolved form carrying tables and predicates.
func MakeAny(expr *Expr) *Expr {
	return makeAny(expr, ET_Any, ET_ExistsSub)
}

// MakeNotAny is the negated form of MakeAny.
func MakeNotAny(expr *Expr) *Expr {
	return makeAny(expr, ET_NotAny, ET_NotExistsSub)
}

func makeAny(expr *Expr, anyTyp ET, unresolvedTyp ET) *Expr {
	tables := FindImmediateParentTables(expr)
	if len(tables) > 1 {
		return &Expr{
			Typ:        unresolvedTyp,
			DataTyp:    DataTypeBool,
			Tables:     tables,
			Predicates: FindPredicates(expr, true),
		}
	}
	return &Expr{
		Typ:      anyTyp,
		DataTyp:  DataTypeBool,
		Children: []*Expr{expr},
	}
}
