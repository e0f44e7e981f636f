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

// Package arenalloc is a fixed-arena general-purpose heap allocator: given
// a caller-supplied contiguous byte region, it services variable-sized
// allocation, deallocation, reallocation, and usable-size queries against
// that region, returning 8-byte-aligned slices into it. The arena is
// never grown; once exhausted, Alloc returns nil.
//
// Two free-list organizations are available as concrete types sharing
// this interface: SegregatedArena (ten size-class buckets, no
// coalescing) and CoalescingArena (a single doubly-linked list that
// merges adjacent free blocks on Free). Pick the one your workload
// favors; both expose identical semantics modulo the coalescing
// guarantee.
package arenalloc

// Allocator is the surface both free-list organizations implement. It is
// also the seam internal/allocbench drives to compare them.
type Allocator interface {
	// Alloc returns a slice of at least n bytes entirely within the
	// arena, or nil if n is 0 or no free block is large enough.
	Alloc(n int) []byte

	// Free returns block, previously returned by Alloc or Realloc, to
	// the free-list index. A nil block is a no-op. Passing any other
	// slice is undefined behavior.
	Free(block []byte)

	// Realloc resizes block to n bytes. A nil block behaves as Alloc(n);
	// n == 0 frees block and returns nil; n no larger than
	// UsableSize(block) returns block resliced to n in place; otherwise a
	// new block is allocated, the old contents copied and the old block
	// freed. If that allocation fails, Realloc returns nil and block stays
	// valid.
	Realloc(block []byte, n int) []byte

	// UsableSize returns the capacity of the block backing block's
	// payload; it may exceed the originally requested size.
	UsableSize(block []byte) int

	// Stats walks the arena and reports a snapshot.
	Stats() Stats

	// Reset reinitializes the arena in place, abandoning all
	// outstanding blocks.
	Reset()
}

// Stats is a point-in-time snapshot produced by a linear walk of the
// arena.
type Stats struct {
	Base            uintptr
	Length          int
	AllocatedBlocks int
	FreeBlocks      int
	AllocatedBytes  int
	FreeBytes       int
}

var (
	_ Allocator = (*SegregatedArena)(nil)
	_ Allocator = (*CoalescingArena)(nil)
)

// validateRegion applies the shared region-size check used by both
// variants' constructors and Reset methods (spec §4.1).
func validateRegion(region []byte, headerBytes int) error {
	if region == nil {
		return ErrRegionNil
	}
	if len(region) < headerBytes+minPayload {
		return ErrRegionTooSmall
	}
	return nil
}
