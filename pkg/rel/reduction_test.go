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

func TestReductionToAggregationSingleTable(t *testing.T) {
	tt := tableT()
	agg, err := ReductionToAggregation(Sum(tt.Col("x")))
	require.NoError(t, err)

	require.Equal(t, ET_Aggregation, agg.Typ)
	require.Same(t, tt, agg.Table)
	schema, err := agg.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"x_sum"}, schema.Names())
}

func TestReductionToAggregationKeepsAlias(t *testing.T) {
	tt := tableT()
	agg, err := ReductionToAggregation(Sum(tt.Col("x")).As("total"))
	require.NoError(t, err)

	schema, err := agg.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"total"}, schema.Names())
}

func TestScalarAggregateAcrossTables(t *testing.T) {
	tt := tableT()
	ss := tableS()
	e := Add(Sum(tt.Col("x")), Sum(ss.Col("k"))).As("total")

	got, err := ReductionToAggregation(e)
	require.NoError(t, err)

	// per table aggregates cross joined, expression projected on top
	require.Equal(t, ET_Selection, got.Typ)
	require.Equal(t, ET_Join, got.Table.Typ)
	require.Equal(t, ET_JoinTypeCross, got.Table.JoinTyp)
	require.Equal(t, ET_Aggregation, got.Table.Left.Typ)
	require.Equal(t, ET_Aggregation, got.Table.Right.Typ)

	schema, err := got.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"total"}, schema.Names())
}

func TestScalarAggregateNamesUnnamedResult(t *testing.T) {
	tt := tableT()
	ss := tableS()
	e := Add(Sum(tt.Col("x")), Sum(ss.Col("k")))

	got, err := ReductionToAggregation(e)
	require.NoError(t, err)
	schema, err := got.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"tmp"}, schema.Names())
}

func TestRewriteFilterExtractsReduction(t *testing.T) {
	tt := tableT()
	pred := Greater(Sum(tt.Col("x")), ConstInt(10))

	got, err := RewriteFilter(pred)
	require.NoError(t, err)

	require.False(t, IsReduction(got))
	require.Equal(t, ET_Greater, got.SubTyp)
	left := got.Children[0]
	require.Equal(t, ET_Column, left.Typ)
	require.Equal(t, "x_sum", left.Name)
	require.Equal(t, ET_Aggregation, left.Table.Typ)
}

func TestRewriteFilterPassThrough(t *testing.T) {
	tt := tableT()
	pred := Greater(tt.Col("x"), ConstInt(0))

	got, err := RewriteFilter(pred)
	require.NoError(t, err)
	require.Same(t, pred, got)
}

func TestRewriteFilterRejectsTables(t *testing.T) {
	tt := tableT()
	_, err := RewriteFilter(tt)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestFilterWithReductionEndToEnd(t *testing.T) {
	tt := tableT()
	f, err := tt.Filter(Greater(Sum(tt.Col("x")), ConstInt(10)))
	require.NoError(t, err)

	require.Equal(t, ET_Selection, f.Typ)
	require.Same(t, tt, f.Table)
	require.Len(t, f.Predicates, 1)
	require.False(t, IsReduction(f.Predicates[0]))
}
