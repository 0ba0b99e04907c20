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

func tableT() *Expr {
	return NewTable("t", NewSchema(
		Field{Name: "x", Typ: DataTypeInteger},
		Field{Name: "y", Typ: DataTypeInteger},
		Field{Name: "name", Typ: DataTypeVarchar},
	))
}

func tableS() *Expr {
	return NewTable("s", NewSchema(
		Field{Name: "k", Typ: DataTypeInteger},
		Field{Name: "v", Typ: DataTypeFloat64},
	))
}

func columnNames(e *Expr) []string {
	finder := func(x *Expr) (Visit, *Expr) {
		if x.Typ == ET_Column {
			return VisitProceed, x
		}
		return VisitProceed, nil
	}
	var ret []string
	for c := range TraverseExprs(finder, []*Expr{e}, false, ClassValue) {
		ret = append(ret, c.Name)
	}
	return ret
}
