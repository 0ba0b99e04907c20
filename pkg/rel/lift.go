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

// SubstituteParents canonicalizes an expression by lifting column
// references past redundant intermediate projections, straight onto the
// physical table that provides them. With pastProjection false the lift
// stops at projection boundaries and only the recursive cleanup runs.
//
// The result is semantically equivalent to the input. Unchanged subtrees
// come back as the original objects.
func SubstituteParents(expr *Expr, pastProjection bool) *Expr {
	s := &simplifier{blockProjection: !pastProjection}
	return s.getResult(expr)
}

// simplifier rewrites the parts of an expression that belong to a
// commutative table operation unit: operations that can be reordered
// without changing the semantic result.
type simplifier struct {
	blockProjection bool
}

func (s *simplifier) getResult(expr *Expr) *Expr {
	if expr.Typ.isConst() {
		return expr
	}

	// For table column references sitting on top of a projection, the
	// ref must come from the base table itself, not a derived field.
	// Only then may the projection be skipped.
	if expr.Typ == ET_Column {
		if result := s.liftTableColumn(expr, s.blockProjection); result != expr {
			return result
		}
	} else if expr.Typ == ET_Selection {
		// frozen boundary. lifting rewrites through a Selection from
		// above, never its own contents.
		return expr
	}

	unchanged := true
	args := expr.args()
	liftedArgs := make([]*Expr, len(args))
	for i, arg := range args {
		liftedArg := s.lift(arg, s.blockProjection)
		unchanged = unchanged && liftedArg == arg
		liftedArgs[i] = liftedArg
	}

	// do not modify unnecessarily
	if unchanged {
		return expr
	}

	result, err := expr.withArgs(liftedArgs)
	if err != nil {
		return expr
	}
	result.Alias = expr.Alias
	return result
}

func (s *simplifier) lift(expr *Expr, block bool) *Expr {
	switch {
	case expr.Typ == ET_Selection:
		return expr
	case expr.Typ.isTable():
		return expr
	default:
		return s.sub(expr, block)
	}
}

func (s *simplifier) liftTableColumn(expr *Expr, block bool) *Expr {
	root := expr.Table
	result := expr

	if root.Typ == ET_Selection {
		canLift := false
		var liftedRoot *Expr
		for _, val := range root.Selections {
			if val.Typ == ET_Table && tableProvides(val, expr.Name) {
				canLift = true
				liftedRoot = s.lift(val, false)
			}
		}
		if canLift && !block {
			lifted := &Expr{
				Typ:     ET_Column,
				DataTyp: expr.DataTyp,
				Name:    expr.Name,
				Alias:   expr.Alias,
				Table:   liftedRoot,
			}
			result = lifted
		}
	}

	return result
}

func tableProvides(table *Expr, name string) bool {
	schema, err := table.Schema()
	if err != nil {
		return false
	}
	return schema.Contains(name)
}

// sub is the catchall recursive rewriter.
func (s *simplifier) sub(expr *Expr, block bool) *Expr {
	helper := &simplifier{blockProjection: block}
	return helper.getResult(expr)
}
