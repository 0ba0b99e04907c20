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
	"crypto/sha256"
	"fmt"
)

// WindowSpec is the frame a windowed value is computed over. It is a plain
// payload of the Window node, not an expression argument: traversal and
// substitution never descend into it.
type WindowSpec struct {
	Partitions []*Expr
	Orders     []*Expr
}

func NewWindowSpec(partitions, orders []*Expr) *WindowSpec {
	return &WindowSpec{Partitions: partitions, Orders: orders}
}

// Combine merges two specs. Partitions and orders of the outer spec come
// first; duplicates from the inner spec are dropped.
func (w *WindowSpec) Combine(o *WindowSpec) *WindowSpec {
	if o == nil {
		return w
	}
	if w == nil {
		return o
	}
	ret := &WindowSpec{}
	ret.Partitions = append(ret.Partitions, w.Partitions...)
	for _, p := range o.Partitions {
		if !hasEqualExpr(ret.Partitions, p) {
			ret.Partitions = append(ret.Partitions, p)
		}
	}
	ret.Orders = append(ret.Orders, w.Orders...)
	for _, k := range o.Orders {
		if !hasEqualExpr(ret.Orders, k) {
			ret.Orders = append(ret.Orders, k)
		}
	}
	return ret
}

func hasEqualExpr(exprs []*Expr, e *Expr) bool {
	for _, x := range exprs {
		if x.equal(e) {
			return true
		}
	}
	return false
}

func (w *WindowSpec) equal(o *WindowSpec) bool {
	if w == nil || o == nil {
		return w == o
	}
	if len(w.Partitions) != len(o.Partitions) ||
		len(w.Orders) != len(o.Orders) {
		return false
	}
	for i, p := range w.Partitions {
		if !p.equal(o.Partitions[i]) {
			return false
		}
	}
	for i, k := range w.Orders {
		if !k.equal(o.Orders[i]) {
			return false
		}
	}
	return true
}

func (w *WindowSpec) key() string {
	hash := sha256.New()
	for _, p := range w.Partitions {
		hash.Write([]byte(p.key()))
	}
	hash.Write([]byte{0})
	for _, k := range w.Orders {
		hash.Write([]byte(k.key()))
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}

func windowNode(arg *Expr, w *WindowSpec) *Expr {
	return &Expr{
		Typ:      ET_Window,
		DataTyp:  arg.DataTyp,
		Children: []*Expr{arg},
		Win:      w,
	}
}

// over wraps a value in a Window node. Wrapping an already windowed value
// combines the specs instead of nesting.
func over(e *Expr, w *WindowSpec) *Expr {
	if e.Typ == ET_Window {
		ret := windowNode(e.Children[0], e.Win.Combine(w))
		ret.Alias = e.Alias
		return ret
	}
	ret := windowNode(e, w)
	ret.Alias = e.Alias
	return ret
}

// WindowizeFunction rewrites bare reductions and analytic values into
// proper Window nodes, combining nested window specs along the way.
// Projection construction runs every candidate through it.
func WindowizeFunction(expr *Expr, w *WindowSpec) *Expr {
	return windowize(expr, w)
}

func windowize(x *Expr, w *WindowSpec) *Expr {
	var walked *Expr
	if x.Typ != ET_Window {
		walked = windowizeWalk(x, w)
	} else {
		windowArg := x.Children[0]
		walkedChild := windowizeWalk(windowArg, w)
		if walkedChild != windowArg {
			walked = windowNode(walkedChild, x.Win)
			walked.Alias = x.outputName()
		} else {
			walked = x
		}
	}

	switch walked.Typ {
	case ET_Agg, ET_Analytic:
		if w == nil {
			w = NewWindowSpec(nil, nil)
		}
		return over(walked, w)
	case ET_Window:
		if w != nil {
			ret := windowNode(walked.Children[0], w.Combine(walked.Win))
			ret.Alias = walked.Alias
			return ret
		}
		return walked
	default:
		return walked
	}
}

func windowizeWalk(x *Expr, w *WindowSpec) *Expr {
	if x.Typ.isTable() || x.Typ.isConst() || x.Typ == ET_Column {
		return x
	}
	unchanged := true
	newArgs := make([]*Expr, 0, len(x.args()))
	for _, arg := range x.args() {
		if !arg.Typ.isValue() {
			newArgs = append(newArgs, arg)
			continue
		}
		newArg := windowize(arg, w)
		unchanged = unchanged && newArg == arg
		newArgs = append(newArgs, newArg)
	}
	if unchanged {
		return x
	}
	ret, err := x.withArgs(newArgs)
	if err != nil {
		return x
	}
	return ret
}
