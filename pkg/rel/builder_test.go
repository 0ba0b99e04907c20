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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLookup(t *testing.T) {
	tt := tableT()
	c, err := Column(tt, "x")
	require.NoError(t, err)
	assert.Equal(t, DataTypeInteger, c.DataTyp)
	assert.Same(t, tt, c.Table)

	_, err = Column(tt, "nope")
	require.ErrorIs(t, err, ErrExpression)

	_, err = Column(ConstInt(1), "x")
	require.ErrorIs(t, err, ErrExpression)

	require.Panics(t, func() { tt.Col("nope") })
}

func TestOperatorTypes(t *testing.T) {
	tt := tableT()
	x := tt.Col("x")

	assert.Equal(t, DataTypeInteger, Add(x, ConstInt(1)).DataTyp)
	assert.Equal(t, DataTypeBool, Greater(x, ConstInt(1)).DataTyp)
	assert.Equal(t, DataTypeBool, And(Greater(x, ConstInt(0)), Less(x, ConstInt(9))).DataTyp)
	assert.Equal(t, DataTypeBool, Not(Greater(x, ConstInt(0))).DataTyp)
	assert.Equal(t, DataTypeInteger, Sum(x).DataTyp)
	assert.Equal(t, DataTypeFloat64, Avg(x).DataTyp)
	assert.Equal(t, DataTypeInteger, Count(tt.Col("name")).DataTyp)
}

func TestAggregateBuilder(t *testing.T) {
	tt := tableT()
	agg, err := tt.Aggregate([]*Expr{Sum(tt.Col("x")).As("total")}, tt.Col("y"))
	require.NoError(t, err)

	require.Equal(t, ET_Aggregation, agg.Typ)
	schema, err := agg.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"y", "total"}, schema.Names())

	// metrics must reduce
	_, err = tt.Aggregate([]*Expr{tt.Col("x")})
	require.ErrorIs(t, err, ErrExpression)

	// having must be boolean
	_, err = tt.AggregateHaving(
		[]*Expr{Sum(tt.Col("x"))}, nil, []*Expr{tt.Col("y")})
	require.ErrorIs(t, err, ErrExpression)
}

func TestFilterValidation(t *testing.T) {
	tt := tableT()
	_, err := tt.Filter(tt.Col("x"))
	require.ErrorIs(t, err, ErrExpression)

	_, err = tt.InnerJoin(tableS(), tt.Col("x"))
	require.ErrorIs(t, err, ErrExpression)
}

func TestInnerJoinBuilder(t *testing.T) {
	tt := tableT()
	ss := tableS()
	j, err := tt.InnerJoin(ss, Equal(tt.Col("x"), ss.Col("k")))
	require.NoError(t, err)

	require.Equal(t, ET_Join, j.Typ)
	require.Equal(t, ET_JoinTypeInner, j.JoinTyp)
	require.Len(t, j.Predicates, 1)
	schema, err := j.Schema()
	require.NoError(t, err)
	require.Equal(t, 5, schema.Len())
}

func TestMutateOverwrite(t *testing.T) {
	tt := tableT()
	m, err := tt.Mutate(
		Add(tt.Col("x"), ConstInt(1)).As("x"),
		Mul(tt.Col("y"), ConstInt(2)).As("z"))
	require.NoError(t, err)

	require.Equal(t, ET_Selection, m.Typ)
	schema, err := m.Schema()
	require.NoError(t, err)
	// overwritten in place, new column at the end
	require.Equal(t, []string{"x", "y", "name", "z"}, schema.Names())
	require.Equal(t, ET_Func, m.Selections[0].Typ)
	require.Equal(t, ET_Column, m.Selections[1].Typ)
}

func TestMutateAppendOnly(t *testing.T) {
	tt := tableT()
	m, err := tt.Mutate(Add(tt.Col("x"), tt.Col("y")).As("xy"))
	require.NoError(t, err)

	schema, err := m.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "name", "xy"}, schema.Names())
	// the whole table rides along as a single entry
	require.Len(t, m.Selections, 2)
	require.True(t, m.Selections[0].equal(tt))
}

func TestMutateRequiresNames(t *testing.T) {
	tt := tableT()
	_, err := tt.Mutate(Add(tt.Col("x"), ConstInt(1)))
	require.ErrorIs(t, err, ErrExpression)
}

func TestSortBy(t *testing.T) {
	tt := tableT()
	s1, err := tt.SortBy(Desc(tt.Col("x")))
	require.NoError(t, err)
	require.Equal(t, ET_Selection, s1.Typ)
	require.Len(t, s1.SortKeys, 1)
	require.True(t, s1.SortKeys[0].Desc)

	// sorting a selection fuses into it
	p, err := tt.Project(tt.Col("x"), tt.Col("y"))
	require.NoError(t, err)
	s2, err := p.SortBy(tt.Col("y"))
	require.NoError(t, err)
	require.Equal(t, ET_Selection, s2.Typ)
	require.Len(t, s2.Selections, 2)
	require.Len(t, s2.SortKeys, 1)
	require.Equal(t, ET_Orderby, s2.SortKeys[0].Typ)
}

func TestSortKeysDoNotChangeRoots(t *testing.T) {
	tt := tableT()
	s1, err := tt.SortBy(Asc(tt.Col("x")))
	require.NoError(t, err)
	s2, err := tt.SortBy(Desc(tt.Col("y")))
	require.NoError(t, err)
	require.True(t, SharesAllRoots([]*Expr{s1}, s2))
}

func TestConstConstructors(t *testing.T) {
	assert.Equal(t, DataTypeInteger, ConstInt(3).DataTyp)
	assert.Equal(t, DataTypeVarchar, ConstStr("a").DataTyp)
	assert.Equal(t, DataTypeFloat64, ConstFloat(1.5).DataTyp)
	assert.Equal(t, DataTypeBool, ConstBool(true).DataTyp)
	assert.True(t, ConstInt(3).equal(ConstInt(3)))
	assert.False(t, ConstInt(3).equal(ConstInt(4)))
}
