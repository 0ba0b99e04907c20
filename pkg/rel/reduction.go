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

// ReductionToAggregation converts a bare scalar reduction into a grouped
// aggregation over its source tables. One source table becomes a plain
// aggregate; several become per table aggregates cross joined together
// with the original expression projected over the join.
func ReductionToAggregation(expr *Expr) (*Expr, error) {
	tables := FindImmediateParentTables(expr)
	if len(tables) == 1 {
		return newAggregation(tables[0], []*Expr{expr}, nil, nil)
	}
	return scalarAggregate(expr)
}

type scalarAggregator struct {
	tables []*Expr
}

func scalarAggregate(expr *Expr) (*Expr, error) {
	sa := &scalarAggregator{}
	subbed, err := sa.visit(expr)
	if err != nil {
		return nil, err
	}
	if len(sa.tables) == 0 {
		return nil, unsupportedErr("no base table under scalar reduction")
	}
	if !subbed.hasName() {
		subbed = subbed.withAlias("tmp")
	}
	table := sa.tables[0]
	for _, other := range sa.tables[1:] {
		table = crossJoin(table, other)
	}
	return FuseProjection(table, []*Expr{subbed})
}

func (sa *scalarAggregator) visit(expr *Expr) (*Expr, error) {
	if IsScalarReduction(expr) && !hasMultipleBases(expr) {
		// an aggregation unit
		if !expr.hasName() {
			expr = expr.withAlias("tmp")
		}
		aggExpr, err := ReductionToAggregation(expr)
		if err != nil {
			return nil, err
		}
		sa.tables = append(sa.tables, aggExpr)
		return columnRef(aggExpr, expr.outputName())
	}

	args := expr.args()
	subbedArgs := make([]*Expr, len(args))
	changed := false
	for i, arg := range args {
		subbed, err := sa.visit(arg)
		if err != nil {
			return nil, err
		}
		changed = changed || subbed != arg
		subbedArgs[i] = subbed
	}
	if !changed {
		return expr, nil
	}
	return expr.withArgs(subbedArgs)
}

// RewriteFilter turns reductions found in a filter context into aggregate
// then extract form. Columns, literals, windowed values and existential
// markers pass through untouched; other value nodes recurse into their
// arguments.
func RewriteFilter(expr *Expr) (*Expr, error) {
	return rewriteFilter(expr, "")
}

func rewriteFilter(expr *Expr, name string) (*Expr, error) {
	if expr.Typ.isTable() {
		return nil, unsupportedErr("table expression in filter rewrite")
	}
	switch expr.Typ {
	case ET_Agg:
		e := expr
		if name != "" {
			e = e.withAlias(name)
		}
		aggregation, err := ReductionToAggregation(e)
		if err != nil {
			return nil, err
		}
		return toArray(aggregation)
	case ET_IConst, ET_SConst, ET_FConst, ET_BConst, ET_DecConst,
		ET_Column, ET_Window, ET_Any, ET_NotAny,
		ET_ExistsSub, ET_NotExistsSub:
		return expr, nil
	default:
		// a named value hands the requested output name down to the
		// reduction it wraps
		if name == "" {
			name = expr.Alias
		}
		args := expr.args()
		visited := make([]*Expr, len(args))
		changed := false
		for i, arg := range args {
			v, err := rewriteFilter(arg, name)
			if err != nil {
				return nil, err
			}
			changed = changed || v != arg
			visited[i] = v
		}
		if !changed {
			return expr, nil
		}
		ret, err := expr.withArgs(visited)
		if err != nil {
			return nil, err
		}
		if ret.outputName() == "" {
			ret = ret.withAlias("tmp")
		}
		return ret, nil
	}
}

// toArray views a one column table as a column expression.
func toArray(table *Expr) (*Expr, error) {
	schema, err := table.Schema()
	if err != nil {
		return nil, err
	}
	if schema.Len() != 1 {
		return nil, expressionErr("to array on %d column table", schema.Len())
	}
	f := schema.Fields[0]
	return &Expr{
		Typ:     ET_Column,
		DataTyp: f.Typ,
		Name:    f.Name,
		Table:   table,
	}, nil
}

func columnRef(table *Expr, name string) (*Expr, error) {
	schema, err := table.Schema()
	if err != nil {
		return nil, err
	}
	f, has := schema.Field(name)
	if !has {
		return nil, expressionErr("no column %s in aggregate", name)
	}
	return &Expr{
		Typ:     ET_Column,
		DataTyp: f.Typ,
		Name:    name,
		Table:   table,
	}, nil
}
