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

package stringseq_test

import (
	"slices"
	"testing"

	"github.com/gx-org/fuse/base/stringseq"
)

type id int

func (i id) String() string {
	return "#" + string(rune('0'+i))
}

func TestJoin(t *testing.T) {
	if got, want := stringseq.JoinValues(slices.Values([]int{1, 2, 3}), ", "), "1, 2, 3"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	if got := stringseq.JoinValues(slices.Values([]int(nil)), ", "); got != "" {
		t.Errorf("got %q but want an empty string", got)
	}
	if got, want := stringseq.JoinStringer(slices.Values([]id{0, 1}), " "), "#0 #1"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}
