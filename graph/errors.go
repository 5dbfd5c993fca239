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

package graph

import "github.com/pkg/errors"

var (
	// ErrInvalidOperator is returned when an operator record is rejected.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrAmbiguousProducer is returned when two operators produce the same tensor.
	ErrAmbiguousProducer = errors.New("ambiguous producer")

	// ErrCycleDetected is returned when the dataflow of a graph is not acyclic.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrNotBuilt is returned when a graph is queried or partitioned before Build.
	ErrNotBuilt = errors.New("graph not built")
)
