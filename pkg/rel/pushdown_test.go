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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterPushdownIntoProjection(t *testing.T) {
	tt := tableT()
	p, err := tt.Project(tt.Col("x"), tt.Col("y"))
	require.NoError(t, err)

	f, err := p.Filter(Greater(tt.Col("x"), ConstInt(0)))
	require.NoError(t, err)

	// the predicate joined the existing Selection instead of wrapping it
	require.Equal(t, ET_Selection, f.Typ)
	require.True(t, f.Table.equal(tt))
	require.Len(t, f.Selections, 2)
	require.Len(t, f.Predicates, 1)
}

func TestFilterOnFilterFuses(t *testing.T) {
	tt := tableT()
	f1, err := tt.Filter(Greater(tt.Col("x"), ConstInt(0)))
	require.NoError(t, err)

	f2, err := f1.Filter(Less(tt.Col("y"), ConstInt(9)))
	require.NoError(t, err)

	require.Equal(t, ET_Selection, f2.Typ)
	require.True(t, f2.Table.equal(tt))
	require.Len(t, f2.Predicates, 2)
}

func TestFilterReferencingParentIsRewritten(t *testing.T) {
	tt := tableT()
	f1, err := tt.Filter(Greater(tt.Col("x"), ConstInt(0)))
	require.NoError(t, err)

	// the predicate references the filter itself; pushdown rewrites the
	// table ref in terms of the child
	f2, err := f1.Filter(Less(f1.Col("y"), ConstInt(9)))
	require.NoError(t, err)

	require.Equal(t, ET_Selection, f2.Typ)
	require.True(t, f2.Table.equal(tt))
	require.Len(t, f2.Predicates, 2)
	require.True(t, f2.Predicates[1].Children[0].Table.equal(tt))
}

func TestFilterWrapsAliasedProjection(t *testing.T) {
	tt := tableT()
	p, err := tt.Project(tt.Col("x").As("a"), tt.Col("y"))
	require.NoError(t, err)

	// filtering on an aliased column cannot push down
	f, err := p.Filter(Greater(p.Col("a"), ConstInt(0)))
	require.NoError(t, err)

	require.Equal(t, ET_Selection, f.Typ)
	require.Same(t, p, f.Table)
	require.Empty(t, f.Selections)
	require.Len(t, f.Predicates, 1)
}

func TestFilterWrapsDerivedColumn(t *testing.T) {
	tt := tableT()
	p, err := tt.Project(Add(tt.Col("x"), ConstInt(1)).As("x1"))
	require.NoError(t, err)

	f, err := p.Filter(Greater(p.Col("x1"), ConstInt(0)))
	require.NoError(t, err)

	require.Equal(t, ET_Selection, f.Typ)
	require.Same(t, p, f.Table)
}

func TestFilterPredicateWithReductionNeverPushesRaw(t *testing.T) {
	tt := tableT()
	p, err := tt.Project(tt.Col("x"), tt.Col("y"))
	require.NoError(t, err)

	f, err := p.Filter(Greater(Sum(tt.Col("x")), ConstInt(10)))
	require.NoError(t, err)

	// the reduction was rewritten to aggregate then extract before the
	// filter was applied
	require.Equal(t, ET_Selection, f.Typ)
	require.Len(t, f.Predicates, 1)
	require.False(t, IsReduction(f.Predicates[0]))
}

func TestFilterOnAggregationWraps(t *testing.T) {
	tt := tableT()
	agg, err := tt.Aggregate([]*Expr{Sum(tt.Col("x"))}, tt.Col("y"))
	require.NoError(t, err)

	f, err := ApplyFilter(agg, []*Expr{Greater(agg.Col("x_sum"), ConstInt(10))})
	require.NoError(t, err)

	require.Equal(t, ET_Selection, f.Typ)
	require.Same(t, agg, f.Table)
	require.Len(t, f.Predicates, 1)
}

func TestApplyFilterValidation(t *testing.T) {
	tt := tableT()
	_, err := ApplyFilter(tt.Col("x"), nil)
	require.ErrorIs(t, err, ErrExpression)

	_, err = ApplyFilter(tt, []*Expr{tt.Col("x")})
	require.ErrorIs(t, err, ErrExpression)
}

func TestApplyFilterEmptyPredicates(t *testing.T) {
	tt := tableT()
	got, err := ApplyFilter(tt, nil)
	require.NoError(t, err)
	require.Same(t, tt, got)
}
