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

// ReplacePair maps a node to its replacement. Keys match by structural
// equality, so every occurrence of an equal subexpression is replaced.
type ReplacePair struct {
	From *Expr
	To   *Expr
}

// Substitute replaces every occurrence of a mapped node in expr. Recursion
// stops at blocking nodes; their internals stay untouched even when a key
// matches inside. A failed node rebuild leaves the original subexpression
// in place.
//
// The memo cache lives for exactly one call. Sharing it across calls
// would leak replacements between unrelated substitutions, so every call
// allocates a fresh one.
func Substitute(expr *Expr, mapping []ReplacePair) *Expr {
	s := &substitutor{memo: make(map[*Expr]*Expr)}
	return s.substitute(expr, mapping)
}

type substitutor struct {
	memo map[*Expr]*Expr
}

func (s *substitutor) substitute(expr *Expr, mapping []ReplacePair) *Expr {
	if ret, has := s.memo[expr]; has {
		return ret
	}
	ret := s.substituteImpl(expr, mapping)
	s.memo[expr] = ret
	return ret
}

func (s *substitutor) substituteImpl(expr *Expr, mapping []ReplacePair) *Expr {
	for _, pair := range mapping {
		if pair.From.equal(expr) {
			return pair.To
		}
	}
	if expr.blocks() {
		return expr
	}

	args := expr.args()
	newArgs := make([]*Expr, len(args))
	unchanged := true
	for i, arg := range args {
		newArg := s.substitute(arg, mapping)
		unchanged = unchanged && newArg == arg
		newArgs[i] = newArg
	}
	if unchanged {
		return expr
	}
	newExpr, err := expr.withArgs(newArgs)
	if err != nil {
		// the replacement does not fit this node's shape. keep the
		// original rather than surfacing the mismatch.
		return expr
	}
	newExpr.Alias = expr.Alias
	return newExpr
}

// subFor is the single pair convenience used by the rewrite rules.
func subFor(expr *Expr, from, to *Expr) *Expr {
	return Substitute(expr, []ReplacePair{{From: from, To: to}})
}
