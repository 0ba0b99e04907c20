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
	dec "github.com/govalues/decimal"

	"github.com/framehq/frame/pkg/util"
)

// NewTable declares a named base relation.
func NewTable(name string, schema *Schema) *Expr {
	util.AssertFunc(name != "" && schema != nil)
	return &Expr{
		Typ:    ET_Table,
		TabDef: &TableDef{Name: name, Schema: schema},
	}
}

// Column references a column of a table expression by name.
func Column(table *Expr, name string) (*Expr, error) {
	if table == nil || !table.Typ.isTable() {
		return nil, expressionErr("column over non table expression")
	}
	schema, err := table.Schema()
	if err != nil {
		return nil, err
	}
	f, has := schema.Field(name)
	if !has {
		return nil, expressionErr("table does not have column %s", name)
	}
	return &Expr{
		Typ:     ET_Column,
		DataTyp: f.Typ,
		Name:    name,
		Table:   table,
	}, nil
}

// Col is Column for call sites where a missing column is a programming
// error.
func (e *Expr) Col(name string) *Expr {
	c, err := Column(e, name)
	if err != nil {
		panic(err)
	}
	return c
}

// As assigns the user visible output name.
func (e *Expr) As(name string) *Expr {
	return e.withAlias(name)
}

// View is a self reference to the table, used to correlate a table with
// itself in subqueries.
func (e *Expr) View() *Expr {
	util.AssertFunc(e.Typ.isTable())
	return &Expr{Typ: ET_SelfRef, Table: e}
}

func ConstInt(v int64) *Expr {
	return &Expr{Typ: ET_IConst, DataTyp: DataTypeInteger, Ivalue: v}
}

func ConstStr(v string) *Expr {
	return &Expr{Typ: ET_SConst, DataTyp: DataTypeVarchar, Svalue: v}
}

func ConstFloat(v float64) *Expr {
	return &Expr{Typ: ET_FConst, DataTyp: DataTypeFloat64, Fvalue: v}
}

func ConstBool(v bool) *Expr {
	return &Expr{Typ: ET_BConst, DataTyp: DataTypeBool, Bvalue: v}
}

func ConstDec(v dec.Decimal) *Expr {
	return &Expr{Typ: ET_DecConst, DataTyp: DataTypeDecimal, Dvalue: v}
}

func binFunc(subTyp ET_SubTyp, dataTyp DataType, left, right *Expr) *Expr {
	util.AssertFunc(left != nil && right != nil)
	return &Expr{
		Typ:      ET_Func,
		SubTyp:   subTyp,
		DataTyp:  dataTyp,
		Children: []*Expr{left, right},
	}
}

func Add(l, r *Expr) *Expr { return binFunc(ET_Add, l.DataTyp, l, r) }
func Sub(l, r *Expr) *Expr { return binFunc(ET_Sub, l.DataTyp, l, r) }
func Mul(l, r *Expr) *Expr { return binFunc(ET_Mul, l.DataTyp, l, r) }
func Div(l, r *Expr) *Expr { return binFunc(ET_Div, l.DataTyp, l, r) }

func Equal(l, r *Expr) *Expr        { return binFunc(ET_Equal, DataTypeBool, l, r) }
func NotEqual(l, r *Expr) *Expr     { return binFunc(ET_NotEqual, DataTypeBool, l, r) }
func Greater(l, r *Expr) *Expr      { return binFunc(ET_Greater, DataTypeBool, l, r) }
func GreaterEqual(l, r *Expr) *Expr { return binFunc(ET_GreaterEqual, DataTypeBool, l, r) }
func Less(l, r *Expr) *Expr         { return binFunc(ET_Less, DataTypeBool, l, r) }
func LessEqual(l, r *Expr) *Expr    { return binFunc(ET_LessEqual, DataTypeBool, l, r) }

func andExpr(l, r *Expr) *Expr {
	return binFunc(ET_And, DataTypeBool, l, r)
}

func orExpr(l, r *Expr) *Expr {
	return binFunc(ET_Or, DataTypeBool, l, r)
}

func And(l, r *Expr) *Expr { return andExpr(l, r) }
func Or(l, r *Expr) *Expr  { return orExpr(l, r) }

func Not(e *Expr) *Expr {
	return &Expr{
		Typ:      ET_Func,
		SubTyp:   ET_Not,
		DataTyp:  DataTypeBool,
		Children: []*Expr{e},
	}
}

func aggExpr(aggrTyp AggrType, dataTyp DataType, arg *Expr) *Expr {
	util.AssertFunc(arg != nil && arg.Typ.isValue())
	return &Expr{
		Typ:      ET_Agg,
		AggrTyp:  aggrTyp,
		DataTyp:  dataTyp,
		Children: []*Expr{arg},
	}
}

func Sum(arg *Expr) *Expr { return aggExpr(AggrTypeSum, arg.DataTyp, arg) }
func Avg(arg *Expr) *Expr { return aggExpr(AggrTypeAvg, DataTypeFloat64, arg) }
func Min(arg *Expr) *Expr { return aggExpr(AggrTypeMin, arg.DataTyp, arg) }
func Max(arg *Expr) *Expr { return aggExpr(AggrTypeMax, arg.DataTyp, arg) }
func Count(arg *Expr) *Expr {
	return aggExpr(AggrTypeCount, DataTypeInteger, arg)
}

func anlExpr(anlTyp AnalyticType, dataTyp DataType, args ...*Expr) *Expr {
	return &Expr{
		Typ:      ET_Analytic,
		AnlTyp:   anlTyp,
		DataTyp:  dataTyp,
		Children: args,
	}
}

func RowNumber() *Expr     { return anlExpr(AnalyticRowNumber, DataTypeInteger) }
func Rank() *Expr          { return anlExpr(AnalyticRank, DataTypeInteger) }
func Lag(arg *Expr) *Expr  { return anlExpr(AnalyticLag, arg.DataTyp, arg) }
func Lead(arg *Expr) *Expr { return anlExpr(AnalyticLead, arg.DataTyp, arg) }

func Asc(e *Expr) *Expr {
	return &Expr{Typ: ET_Orderby, DataTyp: e.DataTyp, Children: []*Expr{e}}
}

func Desc(e *Expr) *Expr {
	return &Expr{Typ: ET_Orderby, DataTyp: e.DataTyp, Children: []*Expr{e}, Desc: true}
}

// newSelection builds a Selection node and validates that its output
// schema is derivable with no silent name collisions.
func newSelection(table *Expr, selections, predicates, sortKeys []*Expr) (*Expr, error) {
	if table == nil || !table.Typ.isTable() {
		return nil, expressionErr("selection over non table expression")
	}
	for _, pred := range predicates {
		if pred == nil || !pred.Typ.isValue() || pred.DataTyp != DataTypeBool {
			return nil, expressionErr("selection predicate must be boolean")
		}
	}
	for _, key := range sortKeys {
		if key == nil || !key.Typ.isValue() {
			return nil, expressionErr("selection sort key must be a value")
		}
	}
	ret := &Expr{
		Typ:        ET_Selection,
		Table:      table,
		Selections: selections,
		Predicates: predicates,
		SortKeys:   sortKeys,
	}
	if _, err := ret.Schema(); err != nil {
		return nil, err
	}
	return ret, nil
}

func newAggregation(table *Expr, metrics, groupBys, having []*Expr) (*Expr, error) {
	if table == nil || !table.Typ.isTable() {
		return nil, expressionErr("aggregation over non table expression")
	}
	for _, m := range metrics {
		if m == nil || !m.Typ.isValue() || !IsReduction(m) {
			return nil, expressionErr("aggregate metric must be a reduction")
		}
	}
	for _, by := range groupBys {
		if by == nil || !by.Typ.isValue() {
			return nil, expressionErr("group key must be a value")
		}
	}
	for _, h := range having {
		if h == nil || h.DataTyp != DataTypeBool {
			return nil, expressionErr("having term must be boolean")
		}
	}
	ret := &Expr{
		Typ:      ET_Aggregation,
		Table:    table,
		Metrics:  metrics,
		GroupBys: groupBys,
		Having:   having,
	}
	if _, err := ret.Schema(); err != nil {
		return nil, err
	}
	return ret, nil
}

func crossJoin(left, right *Expr) *Expr {
	util.AssertFunc(left.Typ.isTable() && right.Typ.isTable())
	return &Expr{
		Typ:     ET_Join,
		JoinTyp: ET_JoinTypeCross,
		Left:    left,
		Right:   right,
	}
}

// Project builds a projection over the table, fusing with an existing
// parent Selection whenever the candidates allow it.
func (e *Expr) Project(exprs ...*Expr) (*Expr, error) {
	return FuseProjection(e, exprs)
}

// Filter incorporates the predicates, after normalizing conjunctions and
// rewriting reductions found inside them.
func (e *Expr) Filter(preds ...*Expr) (*Expr, error) {
	var flat []*Expr
	for _, p := range preds {
		if p == nil || p.DataTyp != DataTypeBool {
			return nil, expressionErr("filter predicate must be boolean")
		}
		flat = append(flat, FlattenPredicate(distributeExpr(p))...)
	}
	rewritten := make([]*Expr, 0, len(flat))
	for _, p := range flat {
		rp, err := rewriteFilter(p, "")
		if err != nil {
			return nil, err
		}
		rewritten = append(rewritten, rp)
	}
	return ApplyFilter(e, rewritten)
}

// Aggregate groups the table by the optional keys and computes metrics.
func (e *Expr) Aggregate(metrics []*Expr, by ...*Expr) (*Expr, error) {
	return newAggregation(e, metrics, by, nil)
}

// AggregateHaving is Aggregate with post aggregation predicates.
func (e *Expr) AggregateHaving(metrics, by, having []*Expr) (*Expr, error) {
	return newAggregation(e, metrics, by, having)
}

func (e *Expr) CrossJoin(other *Expr) *Expr {
	return crossJoin(e, other)
}

func (e *Expr) InnerJoin(other *Expr, conds ...*Expr) (*Expr, error) {
	if !e.Typ.isTable() || other == nil || !other.Typ.isTable() {
		return nil, expressionErr("join over non table expression")
	}
	for _, cond := range conds {
		if cond == nil || cond.DataTyp != DataTypeBool {
			return nil, expressionErr("join condition must be boolean")
		}
	}
	return &Expr{
		Typ:        ET_Join,
		JoinTyp:    ET_JoinTypeInner,
		Left:       e,
		Right:      other,
		Predicates: conds,
	}, nil
}

// SortBy appends sort keys, fusing into an existing Selection.
func (e *Expr) SortBy(keys ...*Expr) (*Expr, error) {
	if !e.Typ.isTable() {
		return nil, expressionErr("sort over non table expression")
	}
	for i, key := range keys {
		if key == nil || !key.Typ.isValue() {
			return nil, expressionErr("sort key must be a value")
		}
		if key.Typ != ET_Orderby {
			keys[i] = Asc(key)
		}
	}
	if e.Typ == ET_Selection {
		ret := e.shallowCopy()
		ret.SortKeys = appendExprs(e.SortKeys, keys)
		return ret, nil
	}
	return newSelection(e, nil, nil, keys)
}

// Mutate projects the table plus the given expressions. An expression
// named like an existing column overwrites it in place; new names land at
// the end.
func (e *Expr) Mutate(exprs ...*Expr) (*Expr, error) {
	if !e.Typ.isTable() {
		return nil, expressionErr("mutate over non table expression")
	}
	schema, err := e.Schema()
	if err != nil {
		return nil, err
	}
	overwriting := make(map[string]*Expr)
	var nonOverwriting []*Expr
	for _, expr := range exprs {
		if expr == nil || !expr.Typ.isValue() {
			return nil, expressionErr("mutation expression must be a value")
		}
		name := expr.outputName()
		if name == "" {
			return nil, expressionErr("mutation expression requires a name")
		}
		if schema.Contains(name) {
			overwriting[name] = expr
		} else {
			nonOverwriting = append(nonOverwriting, expr)
		}
	}
	var proj []*Expr
	if len(overwriting) > 0 {
		for _, col := range schema.Names() {
			if expr, has := overwriting[col]; has {
				proj = append(proj, expr)
			} else {
				c, err := Column(e, col)
				if err != nil {
					return nil, err
				}
				proj = append(proj, c)
			}
		}
		proj = append(proj, nonOverwriting...)
	} else {
		proj = append([]*Expr{e}, exprs...)
	}
	return e.Project(proj...)
}
