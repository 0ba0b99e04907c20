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
	"go.uber.org/zap"

	"github.com/framehq/frame/pkg/util"
)

// Projector analyzes and validates a projection, fusing compatible chained
// projections into one Selection instead of nesting them. Later
// translation does not attempt any further fusion.
type Projector struct {
	parent      *Expr
	inputExprs  []*Expr
	cleanExprs  []*Expr
	parentRoots []*Expr
}

func NewProjector(parent *Expr, projExprs []*Expr) (*Projector, error) {
	if parent == nil || !parent.Typ.isTable() {
		return nil, expressionErr("projection over non table expression")
	}
	clean := make([]*Expr, 0, len(projExprs))
	for _, e := range projExprs {
		if e == nil {
			return nil, expressionErr("nil projection expression")
		}
		if e.Typ.isValue() {
			e = WindowizeFunction(e, nil)
		}
		clean = append(clean, e)
	}
	var roots []*Expr
	if parent.Typ == ET_Selection {
		roots = []*Expr{parent}
	} else {
		roots = immediateRoots(parent)
	}
	return &Projector{
		parent:      parent,
		inputExprs:  projExprs,
		cleanExprs:  clean,
		parentRoots: roots,
	}, nil
}

func (p *Projector) GetResult() (*Expr, error) {
	roots := p.parentRoots
	if len(roots) == 1 && roots[0].Typ == ET_Selection {
		if fused := p.tryFusion(roots[0]); fused != nil {
			return fused, nil
		}
	}
	return newSelection(p.parent, p.cleanExprs, nil, nil)
}

// tryFusion merges the candidate projection into root. A nil return means
// fusion is off for the whole candidate list and the caller wraps instead.
func (p *Projector) tryFusion(root *Expr) *Expr {
	util.AssertFunc(p.parent.equal(root))

	rootTable := root.Table
	roots := immediateRoots(rootTable)
	var fusedExprs []*Expr
	canFuse := false

	var resolved []*Expr
	if rootTable.Typ != ET_Join {
		// if any candidate no longer matches its windowized form, the
		// projection is not exactly equivalent. do not fuse.
		resolved = p.inputExprs
		for i, res := range resolved {
			if !res.equal(p.cleanExprs[i]) {
				return nil
			}
		}
	} else {
		// a join cannot resolve candidate columns, but a projection off
		// a join may still fuse using the join as the new table.
		resolved = p.cleanExprs
	}
	if len(resolved) == 0 {
		return nil
	}

	for _, val := range resolved {
		liftedVal := SubstituteParents(val, false)

		// a * projection
		if val.Typ.isTable() &&
			(val.equal(p.parent) ||
				(len(roots) == 1 && sharesFirstRoot(val, roots[0]))) {
			canFuse = true
			haveRoot := false
			for _, rootSel := range root.Selections {
				// do not add the * projection twice
				if rootSel.equal(rootTable) {
					fusedExprs = append(fusedExprs, rootTable)
					haveRoot = true
					continue
				}
				fusedExprs = append(fusedExprs, rootSel)
			}
			// the parent was a filter, so implicitly a select *
			if !haveRoot && len(root.Selections) == 0 {
				fusedExprs = append([]*Expr{rootTable}, fusedExprs...)
			}
		} else if SharesAllRoots([]*Expr{liftedVal}, rootTable) {
			canFuse = true
			fusedExprs = append(fusedExprs, liftedVal)
		} else if !SharesAllRoots([]*Expr{val}, rootTable) {
			// inconsistent lineage kills fusion for the whole list
			canFuse = false
			break
		} else {
			fusedExprs = append(fusedExprs, val)
		}
	}

	if canFuse {
		sel, err := newSelection(rootTable, fusedExprs, root.Predicates, root.SortKeys)
		if err != nil {
			util.Debug("projection fusion rebuild failed", zap.Error(err))
			return nil
		}
		return sel
	}
	return nil
}

func sharesFirstRoot(val *Expr, root *Expr) bool {
	valRoots := immediateRoots(val)
	return len(valRoots) > 0 && valRoots[0].key() == root.key()
}

// FuseProjection builds a single Selection for the candidate expressions
// over parent, fusing with an existing parent Selection whenever safe.
func FuseProjection(parent *Expr, candidates []*Expr) (*Expr, error) {
	p, err := NewProjector(parent, candidates)
	if err != nil {
		return nil, err
	}
	return p.GetResult()
}
