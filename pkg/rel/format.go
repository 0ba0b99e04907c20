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
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

const (
	defaultIndent = 4
)

type FormatCtx struct {
	buf    strings.Builder
	line   strings.Builder
	offset int
}

func (fc *FormatCtx) AddOffset() {
	fc.offset += defaultIndent
}

func (fc *FormatCtx) RestoreOffset() {
	fc.offset -= defaultIndent
}

func (fc *FormatCtx) fillOffset() {
	for i := 0; i < fc.offset; i++ {
		fc.buf.WriteByte(' ')
	}
}

func (fc *FormatCtx) writeString(s string) {
	for _, c := range s {
		fc.line.WriteRune(c)
		if c == '\n' {
			fc.buf.WriteString(fc.line.String())
			fc.fillOffset()
			fc.line.Reset()
		}
	}
	fc.buf.WriteString(fc.line.String())
	fc.line.Reset()
}

func (fc *FormatCtx) String() string {
	return fc.buf.String()
}

func (fc *FormatCtx) Write(s string) {
	fc.writeString(s)
}

func (fc *FormatCtx) Writef(f string, args ...any) {
	fc.writeString(fmt.Sprintf(f, args...))
}

func (fc *FormatCtx) Writefln(f string, args ...any) {
	fc.writeString(fmt.Sprintf(f+"\n", args...))
}

func (fc *FormatCtx) Writeln(args ...any) {
	fc.writeString(fmt.Sprintln(args...))
}

func WriteExprs(ctx *FormatCtx, exprs []*Expr) {
	for _, e := range exprs {
		e.Format(ctx)
		ctx.Writeln()
	}
}

func WriteExpr(ctx *FormatCtx, expr *Expr) {
	expr.Format(ctx)
	ctx.Writeln()
}

func formatList(ctx *FormatCtx, exprs []*Expr) {
	for idx, child := range exprs {
		if idx > 0 {
			ctx.Write(",")
		}
		child.Format(ctx)
	}
}

func (e *Expr) Format(ctx *FormatCtx) {
	if e == nil {
		ctx.Write("")
		return
	}
	switch e.Typ {
	case ET_Column:
		ctx.Writef("(%s.%s,%s)", tableName(e.Table), e.Name, e.DataTyp)
	case ET_SConst:
		ctx.Writef("(%s,%s)", e.Svalue, e.DataTyp)
	case ET_IConst:
		ctx.Writef("(%d,%s)", e.Ivalue, e.DataTyp)
	case ET_FConst:
		ctx.Writef("(%g,%s)", e.Fvalue, e.DataTyp)
	case ET_BConst:
		ctx.Writef("(%v,%s)", e.Bvalue, e.DataTyp)
	case ET_DecConst:
		ctx.Writef("(%s,%s)", e.Dvalue.String(), e.DataTyp)
	case ET_Table:
		ctx.Writef("%s", e.TabDef.Name)
	case ET_SelfRef:
		ctx.Write("ref(")
		e.Table.Format(ctx)
		ctx.Write(")")
	case ET_Join:
		typStr := ""
		switch e.JoinTyp {
		case ET_JoinTypeCross:
			typStr = "cross"
		case ET_JoinTypeInner:
			typStr = "join"
		default:
			panic(fmt.Sprintf("usp join type %d", e.JoinTyp))
		}
		e.Left.Format(ctx)
		ctx.Writef(" %s ", typStr)
		e.Right.Format(ctx)
		if len(e.Predicates) > 0 {
			ctx.Write(" on ")
			formatList(ctx, e.Predicates)
		}
	case ET_Func:
		switch e.SubTyp {
		case ET_Not:
			ctx.Write("not ")
			e.Children[0].Format(ctx)
		case ET_Between:
			e.Children[0].Format(ctx)
			ctx.Write(" between ")
			e.Children[1].Format(ctx)
			ctx.Write(" and ")
			e.Children[2].Format(ctx)
		default:
			e.Children[0].Format(ctx)
			ctx.Writef(" %s ", e.SubTyp)
			e.Children[1].Format(ctx)
		}
	case ET_Agg:
		ctx.Writef("%s(", e.AggrTyp)
		formatList(ctx, e.Children)
		ctx.Write(")")
	case ET_Analytic:
		ctx.Writef("%s(", e.AnlTyp)
		formatList(ctx, e.Children)
		ctx.Write(")")
	case ET_Window:
		e.Children[0].Format(ctx)
		ctx.Write(" over(")
		if e.Win != nil {
			if len(e.Win.Partitions) > 0 {
				ctx.Write("partition by ")
				formatList(ctx, e.Win.Partitions)
			}
			if len(e.Win.Orders) > 0 {
				if len(e.Win.Partitions) > 0 {
					ctx.Write(" ")
				}
				ctx.Write("order by ")
				formatList(ctx, e.Win.Orders)
			}
		}
		ctx.Write(")")
	case ET_Any, ET_NotAny:
		if e.Typ == ET_NotAny {
			ctx.Write("not ")
		}
		ctx.Write("any(")
		formatList(ctx, e.Children)
		ctx.Write(")")
	case ET_ExistsSub, ET_NotExistsSub:
		if e.Typ == ET_NotExistsSub {
			ctx.Write("not ")
		}
		ctx.Write("exists(")
		formatList(ctx, e.Predicates)
		ctx.Write(")")
	case ET_Orderby:
		e.Children[0].Format(ctx)
		if e.Desc {
			ctx.Write(" desc")
		}
	case ET_Selection:
		ctx.Writefln("Selection:")
		ctx.AddOffset()
		ctx.Write("from: ")
		e.Table.Format(ctx)
		ctx.Writeln()
		if len(e.Selections) > 0 {
			ctx.Write("select: ")
			formatList(ctx, e.Selections)
			ctx.Writeln()
		}
		if len(e.Predicates) > 0 {
			ctx.Write("where: ")
			formatList(ctx, e.Predicates)
			ctx.Writeln()
		}
		if len(e.SortKeys) > 0 {
			ctx.Write("order: ")
			formatList(ctx, e.SortKeys)
			ctx.Writeln()
		}
		ctx.RestoreOffset()
	case ET_Aggregation:
		ctx.Writefln("Aggregation:")
		ctx.AddOffset()
		ctx.Write("from: ")
		e.Table.Format(ctx)
		ctx.Writeln()
		if len(e.Metrics) > 0 {
			ctx.Write("metrics: ")
			formatList(ctx, e.Metrics)
			ctx.Writeln()
		}
		if len(e.GroupBys) > 0 {
			ctx.Write("group by: ")
			formatList(ctx, e.GroupBys)
			ctx.Writeln()
		}
		if len(e.Having) > 0 {
			ctx.Write("having: ")
			formatList(ctx, e.Having)
			ctx.Writeln()
		}
		if len(e.Predicates) > 0 {
			ctx.Write("where: ")
			formatList(ctx, e.Predicates)
			ctx.Writeln()
		}
		ctx.RestoreOffset()
	default:
		panic(fmt.Sprintf("usp expr type %d", e.Typ))
	}
	if e.Alias != "" {
		ctx.Writef(" as %s", e.Alias)
	}
}

func tableName(e *Expr) string {
	if e == nil {
		return ""
	}
	switch e.Typ {
	case ET_Table:
		return e.TabDef.Name
	case ET_SelfRef:
		return "ref " + tableName(e.Table)
	case ET_Selection:
		return "selection of " + tableName(e.Table)
	case ET_Aggregation:
		return "aggregation of " + tableName(e.Table)
	case ET_Join:
		return "join"
	default:
		return ""
	}
}

func (e *Expr) Print(tree treeprint.Tree) {
	if e == nil {
		return
	}
	label := func(s string) string {
		if e.Alias != "" {
			return s + " as " + e.Alias
		}
		return s
	}
	switch e.Typ {
	case ET_Column:
		tree.AddNode(label(fmt.Sprintf("%s.%s %s", tableName(e.Table), e.Name, e.DataTyp)))
	case ET_SConst:
		tree.AddNode(label(e.Svalue))
	case ET_IConst:
		tree.AddNode(label(fmt.Sprintf("%d", e.Ivalue)))
	case ET_FConst:
		tree.AddNode(label(fmt.Sprintf("%g", e.Fvalue)))
	case ET_BConst:
		tree.AddNode(label(fmt.Sprintf("%v", e.Bvalue)))
	case ET_DecConst:
		tree.AddNode(label(e.Dvalue.String()))
	case ET_Table:
		tree.AddNode(label(e.TabDef.Name))
	case ET_SelfRef:
		sub := tree.AddBranch(label("ref"))
		e.Table.Print(sub)
	case ET_Join:
		typStr := "cross"
		if e.JoinTyp == ET_JoinTypeInner {
			typStr = "join"
		}
		sub := tree.AddBranch(label(typStr))
		e.Left.Print(sub)
		e.Right.Print(sub)
		listExprsToTree(sub, "on", e.Predicates)
	case ET_Func:
		sub := tree.AddBranch(label(e.SubTyp.String()))
		for _, child := range e.Children {
			child.Print(sub)
		}
	case ET_Agg:
		sub := tree.AddBranch(label(e.AggrTyp.String()))
		for _, child := range e.Children {
			child.Print(sub)
		}
	case ET_Analytic:
		sub := tree.AddBranch(label(e.AnlTyp.String()))
		for _, child := range e.Children {
			child.Print(sub)
		}
	case ET_Window:
		sub := tree.AddBranch(label("window"))
		e.Children[0].Print(sub)
		if e.Win != nil {
			listExprsToTree(sub, "partition by", e.Win.Partitions)
			listExprsToTree(sub, "order by", e.Win.Orders)
		}
	case ET_Any, ET_NotAny:
		name := "any"
		if e.Typ == ET_NotAny {
			name = "not any"
		}
		sub := tree.AddBranch(label(name))
		for _, child := range e.Children {
			child.Print(sub)
		}
	case ET_ExistsSub, ET_NotExistsSub:
		name := "exists"
		if e.Typ == ET_NotExistsSub {
			name = "not exists"
		}
		sub := tree.AddBranch(label(name))
		listExprsToTree(sub, "tables", e.Tables)
		listExprsToTree(sub, "predicates", e.Predicates)
	case ET_Orderby:
		if e.Desc {
			sub := tree.AddBranch("desc")
			e.Children[0].Print(sub)
		} else {
			e.Children[0].Print(tree)
		}
	case ET_Selection:
		sub := tree.AddBranch(label("Selection"))
		e.Table.Print(sub.AddBranch("from"))
		listExprsToTree(sub, "select", e.Selections)
		listExprsToTree(sub, "where", e.Predicates)
		listExprsToTree(sub, "order", e.SortKeys)
	case ET_Aggregation:
		sub := tree.AddBranch(label("Aggregation"))
		e.Table.Print(sub.AddBranch("from"))
		listExprsToTree(sub, "metrics", e.Metrics)
		listExprsToTree(sub, "group by", e.GroupBys)
		listExprsToTree(sub, "having", e.Having)
		listExprsToTree(sub, "where", e.Predicates)
	default:
		panic(fmt.Sprintf("usp expr type %d", e.Typ))
	}
}

func listExprsToTree(tree treeprint.Tree, name string, exprs []*Expr) {
	if len(exprs) == 0 {
		return
	}
	sub := tree.AddBranch(name)
	for _, e := range exprs {
		e.Print(sub)
	}
}

func (e *Expr) String() string {
	ctx := &FormatCtx{}
	e.Format(ctx)
	return ctx.String()
}

// Explain renders the expression as an ascii tree.
func Explain(e *Expr) string {
	tree := treeprint.NewWithRoot("Expr:")
	e.Print(tree)
	return tree.String()
}
