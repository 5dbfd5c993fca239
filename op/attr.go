// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package op

import (
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/exp/maps"
)

// Attributes of an operator, indexed by name.
type Attributes map[string]cty.Value

// IntList returns a list value of integers.
func IntList(vals ...int64) cty.Value {
	if len(vals) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	elts := make([]cty.Value, len(vals))
	for i, v := range vals {
		elts[i] = cty.NumberIntVal(v)
	}
	return cty.ListVal(elts)
}

func usable(v cty.Value) bool {
	return v.IsKnown() && !v.IsNull()
}

// Has returns true if an attribute has been set.
func (a Attributes) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Float returns the value of a numerical attribute.
func (a Attributes) Float(name string) (float64, bool) {
	v, ok := a[name]
	if !ok || !usable(v) || v.Type() != cty.Number {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

// Int returns the value of an integer attribute.
func (a Attributes) Int(name string) (int64, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	return asInt(v)
}

func asInt(v cty.Value) (int64, bool) {
	if !usable(v) || v.Type() != cty.Number {
		return 0, false
	}
	bf := v.AsBigFloat()
	if !bf.IsInt() {
		return 0, false
	}
	i, _ := bf.Int64()
	return i, true
}

// Ints returns the value of an attribute storing a list of integers.
func (a Attributes) Ints(name string) ([]int64, bool) {
	v, ok := a[name]
	if !ok || !usable(v) {
		return nil, false
	}
	tp := v.Type()
	if !tp.IsListType() && !tp.IsTupleType() {
		return nil, false
	}
	var ints []int64
	for _, el := range v.AsValueSlice() {
		i, ok := asInt(el)
		if !ok {
			return nil, false
		}
		ints = append(ints, i)
	}
	return ints, true
}

// Text returns the value of a string attribute.
func (a Attributes) Text(name string) (string, bool) {
	v, ok := a[name]
	if !ok || !usable(v) || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}

// Names returns the sorted names of all the attributes.
func (a Attributes) Names() []string {
	names := maps.Keys(a)
	slices.Sort(names)
	return names
}

// Clone returns a shallow copy of the attributes.
// cty values are immutable, so the copy can be modified independently.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// Merge returns a new set of attributes with the attributes of a
// overridden by the attributes of b.
func (a Attributes) Merge(b Attributes) Attributes {
	r := make(Attributes, len(a)+len(b))
	maps.Copy(r, a)
	maps.Copy(r, b)
	return r
}

// Equal returns true if both sets have the same names and the same values.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for name, va := range a {
		vb, ok := b[name]
		if !ok || !va.RawEquals(vb) {
			return false
		}
	}
	return true
}

func (a Attributes) String() string {
	var s strings.Builder
	s.WriteString("{")
	for i, name := range a.Names() {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(name)
		s.WriteString(": ")
		s.WriteString(FormatValue(a[name]))
	}
	s.WriteString("}")
	return s.String()
}

// FormatValue returns a compact string representation of an attribute value.
func FormatValue(v cty.Value) string {
	if !v.IsKnown() {
		return "?"
	}
	if v.IsNull() {
		return "null"
	}
	tp := v.Type()
	switch {
	case tp == cty.String:
		return `"` + v.AsString() + `"`
	case tp == cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case tp == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case tp.IsListType() || tp.IsTupleType() || tp.IsSetType():
		var elts []string
		for _, el := range v.AsValueSlice() {
			elts = append(elts, FormatValue(el))
		}
		return "[" + strings.Join(elts, ", ") + "]"
	}
	return v.GoString()
}
