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

import "iter"

// Visit is the per node verdict of a traversal visitor. Proceed descends
// into the node's declared arguments, Halt keeps the node's result but
// stops descent, and an explicit child list overrides the descent set.
type Visit struct {
	halt     bool
	children []*Expr
	custom   bool
}

var (
	VisitProceed = Visit{}
	VisitHalt    = Visit{halt: true}
)

func VisitInto(children ...*Expr) Visit {
	return Visit{children: children, custom: true}
}

// NodeClass restricts which nodes a traversal hands to its visitor. A
// node outside the class is skipped entirely, descent included.
type NodeClass int

const (
	ClassAny NodeClass = iota
	ClassValue
	ClassTable
)

func (nc NodeClass) matches(e *Expr) bool {
	switch nc {
	case ClassAny:
		return true
	case ClassValue:
		return e.Typ.isValue()
	case ClassTable:
		return e.Typ.isTable()
	default:
		return false
	}
}

// Traverse walks the roots depth first in declared argument order and
// yields visitor results lazily. With dedup, a node reachable through
// several parents is visited once; without it, once per reachable path.
// Each call owns its state, so independent traversals never interact.
// Cyclic input is a contract violation.
func Traverse[T any](
	fn func(e *Expr) (Visit, T, bool),
	roots []*Expr,
	dedup bool,
	class NodeClass) iter.Seq[T] {
	return func(yield func(T) bool) {
		todo := make([]*Expr, 0, len(roots))
		for i := len(roots) - 1; i >= 0; i-- {
			if roots[i] != nil {
				todo = append(todo, roots[i])
			}
		}
		var seen map[string]struct{}
		if dedup {
			seen = make(map[string]struct{})
		}
		for len(todo) > 0 {
			e := todo[len(todo)-1]
			todo = todo[:len(todo)-1]
			if dedup {
				k := e.key()
				if _, has := seen[k]; has {
					continue
				}
				seen[k] = struct{}{}
			}
			if !class.matches(e) {
				continue
			}
			visit, result, has := fn(e)
			if has {
				if !yield(result) {
					return
				}
			}
			if visit.halt {
				continue
			}
			children := visit.children
			if !visit.custom {
				children = e.args()
			}
			for i := len(children) - 1; i >= 0; i-- {
				if children[i] != nil {
					todo = append(todo, children[i])
				}
			}
		}
	}
}

// TraverseExprs is Traverse specialized to expression results, the common
// case for lineage queries.
func TraverseExprs(
	fn func(e *Expr) (Visit, *Expr),
	roots []*Expr,
	dedup bool,
	class NodeClass) iter.Seq[*Expr] {
	return Traverse(func(e *Expr) (Visit, *Expr, bool) {
		visit, result := fn(e)
		return visit, result, result != nil
	}, roots, dedup, class)
}

func collect[T any](seq iter.Seq[T]) []T {
	var ret []T
	for v := range seq {
		ret = append(ret, v)
	}
	return ret
}

func anyOf(seq iter.Seq[bool]) bool {
	for v := range seq {
		if v {
			return true
		}
	}
	return false
}

func allOf(seq iter.Seq[bool]) bool {
	for v := range seq {
		if !v {
			return false
		}
	}
	return true
}
