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

package backend

import (
	"slices"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/fuse/op/schema"
	"golang.org/x/sys/cpu"
)

// HasBfloat16 returns true if the host CPU has native bfloat16 instructions.
// Only x86 AVX512-BF16 is detected.
func HasBfloat16() bool {
	return cpu.X86.HasAVX512BF16
}

// HostSupport restricts the singleton kernels of a catalog to
// the data types the host CPU supports.
func HostSupport(c *schema.Catalog) *schema.Catalog {
	if HasBfloat16() {
		return c
	}
	return WithoutDTypes(c, dtype.Bfloat16)
}

// WithoutDTypes returns a catalog in which singleton kernels do not
// support any of the given data types. Kinds with an explicit list of
// data types left empty are not singletons anymore.
func WithoutDTypes(c *schema.Catalog, drop ...dtype.DataType) *schema.Catalog {
	return c.Map(func(s *schema.Schema) *schema.Schema {
		if !s.Singleton {
			return s
		}
		r := s.Clone()
		for _, dt := range drop {
			if !slices.Contains(r.Excluded, dt) {
				r.Excluded = append(r.Excluded, dt)
			}
		}
		if len(r.DTypes) == 0 {
			return r
		}
		r.DTypes = slices.DeleteFunc(r.DTypes, func(dt dtype.DataType) bool {
			return slices.Contains(drop, dt)
		})
		r.Singleton = len(r.DTypes) > 0
		return r
	})
}
