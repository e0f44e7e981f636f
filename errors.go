/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package arenalloc

import "errors"

// ErrRegionNil is returned by the constructors when the caller-supplied
// region is nil.
var ErrRegionNil = errors.New("arenalloc: region is nil")

// ErrRegionTooSmall is returned when the region is shorter than the
// minimum viable arena (one header plus one minimum payload).
var ErrRegionTooSmall = errors.New("arenalloc: region too small for one header and a minimum payload")

// ErrDoubleFree is the best-effort panic value used when Free observes a
// block that is already marked free. Detection is opportunistic only: it
// catches the trivial "free the same pointer twice in a row" case via the
// free flag already present in the header, nothing more. See the design
// notes for why this is not a guarantee.
var ErrDoubleFree = errors.New("arenalloc: double free detected")
