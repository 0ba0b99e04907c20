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
	bin "encoding/binary"
	"fmt"
	"math"
	"strconv"

	dec "github.com/govalues/decimal"
	"github.com/huandu/go-clone"
)

type ET int

const (
	ET_IConst ET = iota
	ET_SConst
	ET_FConst
	ET_BConst
	ET_DecConst
	ET_Column
	ET_Func
	ET_Agg
	ET_Analytic
	ET_Window
	ET_Any
	ET_NotAny
	ET_ExistsSub
	ET_NotExistsSub
	ET_Orderby
	ET_Table
	ET_SelfRef
	ET_Selection
	ET_Aggregation
	ET_Join
)

func (et ET) String() string {
	switch et {
	case ET_IConst, ET_SConst, ET_FConst, ET_BConst, ET_DecConst:
		return "const"
	case ET_Column:
		return "column"
	case ET_Func:
		return "func"
	case ET_Agg:
		return "agg"
	case ET_Analytic:
		return "analytic"
	case ET_Window:
		return "window"
	case ET_Any:
		return "any"
	case ET_NotAny:
		return "not any"
	case ET_ExistsSub:
		return "exists"
	case ET_NotExistsSub:
		return "not exists"
	case ET_Orderby:
		return "orderby"
	case ET_Table:
		return "table"
	case ET_SelfRef:
		return "self ref"
	case ET_Selection:
		return "selection"
	case ET_Aggregation:
		return "aggregation"
	case ET_Join:
		return "join"
	default:
		panic(fmt.Sprintf("usp %d", int(et)))
	}
}

func (et ET) isTable() bool {
	switch et {
	case ET_Table, ET_SelfRef, ET_Selection, ET_Aggregation, ET_Join:
		return true
	default:
		return false
	}
}

func (et ET) isValue() bool {
	return !et.isTable()
}

func (et ET) isConst() bool {
	switch et {
	case ET_IConst, ET_SConst, ET_FConst, ET_BConst, ET_DecConst:
		return true
	default:
		return false
	}
}

type ET_SubTyp int

const (
	ET_SubInvalid ET_SubTyp = iota
	ET_Add
	ET_Sub
	ET_Mul
	ET_Div
	ET_Equal
	ET_NotEqual
	ET_Greater
	ET_GreaterEqual
	ET_Less
	ET_LessEqual
	ET_And
	ET_Or
	ET_Not
	ET_Like
	ET_Between
	ET_In
)

func (et ET_SubTyp) String() string {
	switch et {
	case ET_Add:
		return "+"
	case ET_Sub:
		return "-"
	case ET_Mul:
		return "*"
	case ET_Div:
		return "/"
	case ET_Equal:
		return "="
	case ET_NotEqual:
		return "<>"
	case ET_Greater:
		return ">"
	case ET_GreaterEqual:
		return ">="
	case ET_Less:
		return "<"
	case ET_LessEqual:
		return "<="
	case ET_And:
		return "and"
	case ET_Or:
		return "or"
	case ET_Not:
		return "not"
	case ET_Like:
		return "like"
	case ET_Between:
		return "between"
	case ET_In:
		return "in"
	default:
		panic(fmt.Sprintf("usp %v", int(et)))
	}
}

type AggrType int

const (
	AggrTypeSum AggrType = iota
	AggrTypeAvg
	AggrTypeMin
	AggrTypeMax
	AggrTypeCount
)

func (at AggrType) String() string {
	switch at {
	case AggrTypeSum:
		return "sum"
	case AggrTypeAvg:
		return "avg"
	case AggrTypeMin:
		return "min"
	case AggrTypeMax:
		return "max"
	case AggrTypeCount:
		return "count"
	default:
		panic(fmt.Sprintf("usp %d", at))
	}
}

type AnalyticType int

const (
	AnalyticRowNumber AnalyticType = iota
	AnalyticRank
	AnalyticLag
	AnalyticLead
)

func (at AnalyticType) String() string {
	switch at {
	case AnalyticRowNumber:
		return "row_number"
	case AnalyticRank:
		return "rank"
	case AnalyticLag:
		return "lag"
	case AnalyticLead:
		return "lead"
	default:
		panic(fmt.Sprintf("usp %d", at))
	}
}

type ET_JoinType int

const (
	ET_JoinTypeCross ET_JoinType = iota
	ET_JoinTypeInner
)

func (jt ET_JoinType) String() string {
	switch jt {
	case ET_JoinTypeCross:
		return "cross"
	case ET_JoinTypeInner:
		return "inner"
	default:
		panic(fmt.Sprintf("usp %d", jt))
	}
}

// Expr is one vertex of the expression DAG. A fixed Typ decides which
// fields carry its arguments. Exprs are never mutated after construction;
// every rewrite builds a new one.
type Expr struct {
	Typ     ET
	SubTyp  ET_SubTyp
	AggrTyp AggrType
	AnlTyp  AnalyticType
	DataTyp DataType

	// Alias is the user assigned output name, if any.
	Alias string

	// Name is the referenced column name for ET_Column.
	Name string

	Svalue string
	Ivalue int64
	Fvalue float64
	Bvalue bool
	Dvalue dec.Decimal

	Desc bool // in orderby

	// args of value nodes
	Children []*Expr

	// table inputs
	Table   *Expr // ET_Column, ET_SelfRef, ET_Selection, ET_Aggregation
	Left    *Expr // ET_Join
	Right   *Expr // ET_Join
	JoinTyp ET_JoinType

	Selections []*Expr // ET_Selection
	Predicates []*Expr // ET_Selection, ET_Aggregation, ET_Join, exists markers
	SortKeys   []*Expr // ET_Selection, ET_Aggregation
	Metrics    []*Expr // ET_Aggregation
	GroupBys   []*Expr // ET_Aggregation
	Having     []*Expr // ET_Aggregation

	Tables []*Expr // ET_ExistsSub, ET_NotExistsSub

	TabDef *TableDef   // ET_Table
	Win    *WindowSpec // ET_Window

	keyCache string
}

// blocks marks the node opaque to lifting and substitution. A Selection
// only blocks when it projects; a bare filter does not.
func (e *Expr) blocks() bool {
	switch e.Typ {
	case ET_Table, ET_SelfRef, ET_Aggregation:
		return true
	case ET_Selection:
		return len(e.Selections) > 0
	default:
		return false
	}
}

// args returns the expression valued arguments in declared order, with
// sequence valued arguments flattened.
func (e *Expr) args() []*Expr {
	switch e.Typ {
	case ET_IConst, ET_SConst, ET_FConst, ET_BConst, ET_DecConst, ET_Table:
		return nil
	case ET_Column, ET_SelfRef:
		return []*Expr{e.Table}
	case ET_Func, ET_Agg, ET_Analytic, ET_Window, ET_Any, ET_NotAny, ET_Orderby:
		return e.Children
	case ET_ExistsSub, ET_NotExistsSub:
		ret := make([]*Expr, 0, len(e.Tables)+len(e.Predicates))
		ret = append(ret, e.Tables...)
		ret = append(ret, e.Predicates...)
		return ret
	case ET_Selection:
		ret := make([]*Expr, 0,
			1+len(e.Selections)+len(e.Predicates)+len(e.SortKeys))
		ret = append(ret, e.Table)
		ret = append(ret, e.Selections...)
		ret = append(ret, e.Predicates...)
		ret = append(ret, e.SortKeys...)
		return ret
	case ET_Aggregation:
		ret := make([]*Expr, 0,
			1+len(e.Metrics)+len(e.GroupBys)+len(e.Having)+
				len(e.Predicates)+len(e.SortKeys))
		ret = append(ret, e.Table)
		ret = append(ret, e.Metrics...)
		ret = append(ret, e.GroupBys...)
		ret = append(ret, e.Having...)
		ret = append(ret, e.Predicates...)
		ret = append(ret, e.SortKeys...)
		return ret
	case ET_Join:
		ret := make([]*Expr, 0, 2+len(e.Predicates))
		ret = append(ret, e.Left, e.Right)
		ret = append(ret, e.Predicates...)
		return ret
	default:
		panic(fmt.Sprintf("usp %v", e.Typ))
	}
}

// withArgs rebuilds the node with a replaced argument list. The list must
// match the shape produced by args. A class mismatch in any position makes
// the rebuild fail; substitution absorbs that failure.
func (e *Expr) withArgs(newArgs []*Expr) (*Expr, error) {
	old := e.args()
	if len(newArgs) != len(old) {
		return nil, rebuildErr("arity %d != %d for %v", len(newArgs), len(old), e.Typ)
	}
	ret := e.shallowCopy()
	cur := 0
	take := func(n int) []*Expr {
		s := newArgs[cur : cur+n]
		cur += n
		return s
	}
	takeTable := func() (*Expr, error) {
		t := take(1)[0]
		if t == nil || !t.Typ.isTable() {
			return nil, rebuildErr("table argument expected for %v", e.Typ)
		}
		return t, nil
	}
	checkValues := func(exprs []*Expr) error {
		for _, v := range exprs {
			if v == nil || !v.Typ.isValue() {
				return rebuildErr("value argument expected for %v", e.Typ)
			}
		}
		return nil
	}
	var err error
	switch e.Typ {
	case ET_IConst, ET_SConst, ET_FConst, ET_BConst, ET_DecConst, ET_Table:
	case ET_Column, ET_SelfRef:
		if ret.Table, err = takeTable(); err != nil {
			return nil, err
		}
	case ET_Func, ET_Agg, ET_Analytic, ET_Window, ET_Any, ET_NotAny, ET_Orderby:
		ret.Children = take(len(e.Children))
		if err = checkValues(ret.Children); err != nil {
			return nil, err
		}
	case ET_ExistsSub, ET_NotExistsSub:
		ret.Tables = take(len(e.Tables))
		for _, t := range ret.Tables {
			if t == nil || !t.Typ.isTable() {
				return nil, rebuildErr("table argument expected for %v", e.Typ)
			}
		}
		ret.Predicates = take(len(e.Predicates))
		if err = checkValues(ret.Predicates); err != nil {
			return nil, err
		}
	case ET_Selection:
		if ret.Table, err = takeTable(); err != nil {
			return nil, err
		}
		ret.Selections = take(len(e.Selections))
		ret.Predicates = take(len(e.Predicates))
		ret.SortKeys = take(len(e.SortKeys))
		if err = checkValues(ret.Predicates); err != nil {
			return nil, err
		}
		if err = checkValues(ret.SortKeys); err != nil {
			return nil, err
		}
	case ET_Aggregation:
		if ret.Table, err = takeTable(); err != nil {
			return nil, err
		}
		ret.Metrics = take(len(e.Metrics))
		ret.GroupBys = take(len(e.GroupBys))
		ret.Having = take(len(e.Having))
		ret.Predicates = take(len(e.Predicates))
		ret.SortKeys = take(len(e.SortKeys))
		for _, group := range [][]*Expr{ret.Metrics, ret.GroupBys, ret.Having, ret.Predicates, ret.SortKeys} {
			if err = checkValues(group); err != nil {
				return nil, err
			}
		}
	case ET_Join:
		if ret.Left, err = takeTable(); err != nil {
			return nil, err
		}
		if ret.Right, err = takeTable(); err != nil {
			return nil, err
		}
		ret.Predicates = take(len(e.Predicates))
		if err = checkValues(ret.Predicates); err != nil {
			return nil, err
		}
	default:
		panic(fmt.Sprintf("usp %v", e.Typ))
	}
	return ret, nil
}

func (e *Expr) shallowCopy() *Expr {
	c := *e
	c.keyCache = ""
	return &c
}

// withAlias returns a copy carrying the user assigned output name.
func (e *Expr) withAlias(alias string) *Expr {
	if e.Alias == alias {
		return e
	}
	c := e.shallowCopy()
	c.Alias = alias
	return c
}

// outputName is the name the expression contributes to a derived schema.
// Empty means the expression cannot be named without an explicit alias.
func (e *Expr) outputName() string {
	if e.Alias != "" {
		return e.Alias
	}
	switch e.Typ {
	case ET_Column:
		return e.Name
	case ET_Agg:
		if len(e.Children) == 1 {
			if inner := e.Children[0].outputName(); inner != "" {
				return inner + "_" + e.AggrTyp.String()
			}
		}
		return e.AggrTyp.String()
	case ET_Analytic:
		return e.AnlTyp.String()
	case ET_Window:
		return e.Children[0].outputName()
	default:
		return ""
	}
}

func (e *Expr) hasName() bool {
	return e.outputName() != ""
}

func (e *Expr) equal(o *Expr) bool {
	if e == nil && o == nil {
		return true
	} else if e != nil && o != nil {
		if e.Typ != o.Typ {
			return false
		}
		if e.SubTyp != o.SubTyp {
			return false
		}
		if e.AggrTyp != o.AggrTyp {
			return false
		}
		if e.AnlTyp != o.AnlTyp {
			return false
		}
		if e.DataTyp != o.DataTyp {
			return false
		}
		if e.Alias != o.Alias {
			return false
		}
		if e.Name != o.Name {
			return false
		}
		if e.Svalue != o.Svalue {
			return false
		}
		if e.Ivalue != o.Ivalue {
			return false
		}
		if e.Fvalue != o.Fvalue {
			return false
		}
		if e.Bvalue != o.Bvalue {
			return false
		}
		if e.Dvalue.Cmp(o.Dvalue) != 0 {
			return false
		}
		if e.Desc != o.Desc {
			return false
		}
		if e.JoinTyp != o.JoinTyp {
			return false
		}
		if !e.TabDef.equal(o.TabDef) {
			return false
		}
		if !e.Win.equal(o.Win) {
			return false
		}
		if !e.Table.equal(o.Table) {
			return false
		}
		if !e.Left.equal(o.Left) {
			return false
		}
		if !e.Right.equal(o.Right) {
			return false
		}
		groups := [][]*Expr{e.Children, e.Selections, e.Predicates,
			e.SortKeys, e.Metrics, e.GroupBys, e.Having, e.Tables}
		ogroups := [][]*Expr{o.Children, o.Selections, o.Predicates,
			o.SortKeys, o.Metrics, o.GroupBys, o.Having, o.Tables}
		for i, group := range groups {
			if len(group) != len(ogroups[i]) {
				return false
			}
			for j, child := range group {
				if !child.equal(ogroups[i][j]) {
					return false
				}
			}
		}
		return true
	} else {
		return false
	}
}

// key is a stable structural hash. Two exprs have the same key iff they
// are structurally equal. Cached; exprs are immutable after construction.
func (e *Expr) key() string {
	if e == nil {
		return ""
	}
	if e.keyCache != "" {
		return e.keyCache
	}
	hash := sha256.New()
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.Typ)))
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.SubTyp)))
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.AggrTyp)))
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.AnlTyp)))
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.DataTyp)))
	hash.Write([]byte(e.Alias))
	hash.Write([]byte{0})
	hash.Write([]byte(e.Name))
	hash.Write([]byte{0})
	hash.Write([]byte(e.Svalue))
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.Ivalue)))
	hash.Write(bin.BigEndian.AppendUint64(nil, math.Float64bits(e.Fvalue)))
	hash.Write(strconv.AppendBool(nil, e.Bvalue))
	hash.Write([]byte(e.Dvalue.String()))
	hash.Write(strconv.AppendBool(nil, e.Desc))
	hash.Write(bin.BigEndian.AppendUint64(nil, uint64(e.JoinTyp)))
	if e.TabDef != nil {
		hash.Write([]byte(e.TabDef.Name))
		for _, f := range e.TabDef.Schema.Fields {
			hash.Write([]byte(f.Name))
			hash.Write(bin.BigEndian.AppendUint64(nil, uint64(f.Typ)))
		}
	}
	if e.Win != nil {
		hash.Write([]byte(e.Win.key()))
	}
	hash.Write([]byte(e.Table.key()))
	hash.Write([]byte(e.Left.key()))
	hash.Write([]byte(e.Right.key()))
	for _, group := range [][]*Expr{e.Children, e.Selections, e.Predicates,
		e.SortKeys, e.Metrics, e.GroupBys, e.Having, e.Tables} {
		hash.Write(bin.BigEndian.AppendUint64(nil, uint64(len(group))))
		for _, child := range group {
			hash.Write([]byte(child.key()))
		}
	}
	e.keyCache = fmt.Sprintf("%x", hash.Sum(nil))
	return e.keyCache
}

func copyExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	return clone.Clone(e).(*Expr)
}

// Copy returns a deep copy sharing no nodes with the receiver. Rewrites
// lean on structural sharing, so a tree handed across an ownership
// boundary gets detached first.
func (e *Expr) Copy() *Expr {
	return copyExpr(e)
}
