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

func TestSubstituteAllOccurrences(t *testing.T) {
	tt := tableT()
	// two structurally equal occurrences through distinct objects
	pred := And(
		Greater(tt.Col("x"), ConstInt(0)),
		Less(tt.Col("x"), ConstInt(10)))

	got := Substitute(pred, []ReplacePair{{From: tt.Col("x"), To: tt.Col("y")}})
	require.Equal(t, []string{"y", "y"}, columnNames(got))

	// the input is untouched
	require.Equal(t, []string{"x", "x"}, columnNames(pred))
}

func TestSubstituteIdentity(t *testing.T) {
	tt := tableT()
	pred := Greater(tt.Col("x"), ConstInt(0))

	require.Same(t, pred, Substitute(pred, nil))

	// a mapping that matches nothing changes nothing
	miss := Substitute(pred, []ReplacePair{{From: tt.Col("name"), To: ConstStr("z")}})
	require.Same(t, pred, miss)
}

func TestSubstituteRootMatch(t *testing.T) {
	tt := tableT()
	ss := tableS()
	// the root itself matches even though tables block recursion
	require.Same(t, ss, Substitute(tt, []ReplacePair{{From: tableT(), To: ss}}))
}

func TestSubstituteStopsAtBlockingNodes(t *testing.T) {
	tt := tableT()
	agg, err := tt.Aggregate([]*Expr{Sum(tt.Col("x"))})
	require.NoError(t, err)
	c := agg.Col("x_sum")
	pred := Greater(c, ConstInt(10))

	// tt only occurs inside the aggregation; nothing may change
	got := Substitute(pred, []ReplacePair{{From: tableT(), To: tableS()}})
	require.Same(t, pred, got)
}

func TestSubstitutePreservesAlias(t *testing.T) {
	tt := tableT()
	e := Add(tt.Col("x"), ConstInt(1)).As("x1")
	got := subFor(e, tt.Col("x"), tt.Col("y"))
	require.Equal(t, "x1", got.Alias)
	require.Equal(t, []string{"y"}, columnNames(got))
}

func TestSubstituteSharedSubtreeMemo(t *testing.T) {
	tt := tableT()
	shared := Add(tt.Col("x"), ConstInt(1))
	e := Mul(shared, shared)

	got := subFor(e, tt.Col("x"), tt.Col("y"))
	require.Equal(t, []string{"y", "y"}, columnNames(got))
	// the shared subtree is rewritten once and reused
	require.Same(t, got.Children[0], got.Children[1])
}
