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

// Package stringseq joins iterator sequences into strings.
package stringseq

import (
	"fmt"
	"iter"
	"strings"
)

// Append writes the string of every element of a sequence to a builder.
// The separator sep is placed between elements.
func Append[T any](b *strings.Builder, seq iter.Seq[T], sep string, str func(T) string) {
	n := 0
	for item := range seq {
		if n > 0 {
			b.WriteString(sep)
		}
		b.WriteString(str(item))
		n++
	}
}

// Join returns the string of every element of a sequence joined by sep.
func Join[T any](seq iter.Seq[T], sep string, str func(T) string) string {
	var b strings.Builder
	Append(&b, seq, sep, str)
	return b.String()
}

// JoinStringer joins the String() of every element of a sequence.
func JoinStringer[T fmt.Stringer](seq iter.Seq[T], sep string) string {
	return Join(seq, sep, T.String)
}

// JoinValues joins elements formatted with their default format.
func JoinValues[T any](seq iter.Seq[T], sep string) string {
	return Join(seq, sep, func(v T) string { return fmt.Sprint(v) })
}
