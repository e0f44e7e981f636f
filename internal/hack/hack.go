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

// Package hack holds the unchecked pointer-arithmetic primitives the
// allocator variants need to treat a caller-supplied []byte region as
// in-band block headers. It is the narrow, trusted surface the rest of
// the module's unsafe usage is isolated behind.
package hack

import "unsafe"

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// BaseAddr returns the address of the first byte of b, without bounds
// checking and without regard for b's length (b may be empty).
func BaseAddr(b []byte) uintptr {
	return (*sliceHeader)(unsafe.Pointer(&b)).Data
}

// BasePointer returns the address of the first byte of b as an
// unsafe.Pointer, suitable for use with unsafe.Add.
func BasePointer(b []byte) unsafe.Pointer {
	return unsafe.Pointer(BaseAddr(b))
}

// PointerAt returns the address offset bytes into the region whose base
// is base.
func PointerAt(base unsafe.Pointer, offset int) unsafe.Pointer {
	return unsafe.Add(base, offset)
}

// OffsetOf returns the distance, in bytes, from base to p.
func OffsetOf(base unsafe.Pointer, p unsafe.Pointer) int {
	return int(uintptr(p) - uintptr(base))
}
