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

func TestWindowizeBareReduction(t *testing.T) {
	tt := tableT()
	got := WindowizeFunction(Sum(tt.Col("x")), nil)

	require.Equal(t, ET_Window, got.Typ)
	require.Equal(t, ET_Agg, got.Children[0].Typ)
	require.NotNil(t, got.Win)
	require.Empty(t, got.Win.Partitions)
}

func TestWindowizeNestedInValue(t *testing.T) {
	got := WindowizeFunction(Add(RowNumber(), ConstInt(1)), nil)

	require.Equal(t, ET_Func, got.Typ)
	require.Equal(t, ET_Window, got.Children[0].Typ)
	require.Equal(t, ET_IConst, got.Children[1].Typ)
}

func TestWindowizeLeavesPlainValuesAlone(t *testing.T) {
	tt := tableT()
	e := Add(tt.Col("x"), ConstInt(1))
	require.Same(t, e, WindowizeFunction(e, nil))
}

func TestWindowizeCombinesSpecs(t *testing.T) {
	tt := tableT()
	w1 := NewWindowSpec([]*Expr{tt.Col("y")}, nil)
	win := WindowizeFunction(Sum(tt.Col("x")), w1)
	require.Equal(t, ET_Window, win.Typ)
	require.Len(t, win.Win.Partitions, 1)

	w2 := NewWindowSpec([]*Expr{tt.Col("name")}, nil)
	win2 := WindowizeFunction(win, w2)
	require.Equal(t, ET_Window, win2.Typ)
	require.Len(t, win2.Win.Partitions, 2)
	// outer spec comes first
	require.Equal(t, "name", win2.Win.Partitions[0].Name)
	require.Equal(t, "y", win2.Win.Partitions[1].Name)
}

func TestWindowSpecCombineDedups(t *testing.T) {
	tt := tableT()
	w1 := NewWindowSpec([]*Expr{tt.Col("y")}, []*Expr{Asc(tt.Col("x"))})
	w2 := NewWindowSpec([]*Expr{tableT().Col("y")}, nil)

	combined := w1.Combine(w2)
	require.Len(t, combined.Partitions, 1)
	require.Len(t, combined.Orders, 1)
}

func TestWindowSpecEqualAndKey(t *testing.T) {
	tt := tableT()
	w1 := NewWindowSpec([]*Expr{tt.Col("y")}, nil)
	w2 := NewWindowSpec([]*Expr{tableT().Col("y")}, nil)
	w3 := NewWindowSpec([]*Expr{tt.Col("x")}, nil)

	require.True(t, w1.equal(w2))
	require.Equal(t, w1.key(), w2.key())
	require.False(t, w1.equal(w3))
	require.NotEqual(t, w1.key(), w3.key())
}
