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

import "fmt"

type DataType int

const (
	DataTypeInvalid DataType = iota
	DataTypeInteger
	DataTypeVarchar
	DataTypeDecimal
	DataTypeDate
	DataTypeBool
	DataTypeFloat64
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeInteger:
		return "int"
	case DataTypeVarchar:
		return "varchar"
	case DataTypeDecimal:
		return "decimal"
	case DataTypeDate:
		return "date"
	case DataTypeBool:
		return "bool"
	case DataTypeFloat64:
		return "float64"
	case DataTypeInvalid:
		return "invalid"
	default:
		panic(fmt.Sprintf("usp %d", dt))
	}
}

type Field struct {
	Name string
	Typ  DataType
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

func (s *Schema) Len() int {
	return len(s.Fields)
}

func (s *Schema) Contains(name string) bool {
	return s.indexOf(name) >= 0
}

func (s *Schema) Field(name string) (Field, bool) {
	idx := s.indexOf(name)
	if idx < 0 {
		return Field{}, false
	}
	return s.Fields[idx], true
}

func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func (s *Schema) indexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) add(f Field) error {
	if s.Contains(f.Name) {
		return expressionErr("duplicate output column %s", f.Name)
	}
	s.Fields = append(s.Fields, f)
	return nil
}

func (s *Schema) equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f != o.Fields[i] {
			return false
		}
	}
	return true
}

// TableDef describes a named base relation. It is the only place a schema
// is declared rather than derived.
type TableDef struct {
	Name   string
	Schema *Schema
}

func (td *TableDef) equal(o *TableDef) bool {
	if td == nil || o == nil {
		return td == o
	}
	return td.Name == o.Name && td.Schema.equal(o.Schema)
}

// Schema derives the output schema of a table expression. Selections and
// Aggregations refuse to produce two output columns with the same name.
func (e *Expr) Schema() (*Schema, error) {
	if e == nil || !e.Typ.isTable() {
		return nil, expressionErr("schema of non table expression")
	}
	switch e.Typ {
	case ET_Table:
		return e.TabDef.Schema, nil
	case ET_SelfRef:
		return e.Table.Schema()
	case ET_Selection:
		if len(e.Selections) == 0 {
			return e.Table.Schema()
		}
		ret := NewSchema()
		for _, sel := range e.Selections {
			if sel.Typ.isTable() {
				sub, err := sel.Schema()
				if err != nil {
					return nil, err
				}
				for _, f := range sub.Fields {
					if err = ret.add(f); err != nil {
						return nil, err
					}
				}
			} else {
				if err := ret.add(Field{Name: sel.outputName(), Typ: sel.DataTyp}); err != nil {
					return nil, err
				}
			}
		}
		return ret, nil
	case ET_Aggregation:
		ret := NewSchema()
		for _, by := range e.GroupBys {
			if err := ret.add(Field{Name: by.outputName(), Typ: by.DataTyp}); err != nil {
				return nil, err
			}
		}
		for _, m := range e.Metrics {
			if err := ret.add(Field{Name: m.outputName(), Typ: m.DataTyp}); err != nil {
				return nil, err
			}
		}
		return ret, nil
	case ET_Join:
		left, err := e.Left.Schema()
		if err != nil {
			return nil, err
		}
		right, err := e.Right.Schema()
		if err != nil {
			return nil, err
		}
		ret := NewSchema()
		ret.Fields = append(ret.Fields, left.Fields...)
		ret.Fields = append(ret.Fields, right.Fields...)
		return ret, nil
	default:
		panic(fmt.Sprintf("usp %v", e.Typ))
	}
}
