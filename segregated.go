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

import (
	"unsafe"

	"github.com/cloudwego/arenalloc/internal/hack"
)

// segHeader is the 16-byte in-band header prefixing every block in a
// SegregatedArena. next is an offset into the arena (-1 means "no
// successor"), not a Go pointer: the free lists are singly-linked and the
// header budget has no room for a prev link.
type segHeader struct {
	size uint64
	next int32
	free int32
}

// SegregatedArena is the default free-list organization: ten singly-linked
// LIFO lists bucketed by size class, never coalesced. See sizeClassBounds
// for the class boundaries.
type SegregatedArena struct {
	region []byte
	base   unsafe.Pointer
	heads  [numSizeClasses]int
}

// NewSegregatedArena installs region as a fresh arena managed by the
// segregated organization.
func NewSegregatedArena(region []byte) (*SegregatedArena, error) {
	a := &SegregatedArena{}
	if err := a.init(region); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SegregatedArena) init(region []byte) error {
	if err := validateRegion(region, segHeaderBytes); err != nil {
		return err
	}
	a.region = region
	a.base = hack.BasePointer(region)
	for i := range a.heads {
		a.heads[i] = -1
	}
	h := a.headerAt(0)
	h.size = uint64(len(region) - segHeaderBytes)
	h.free = 1
	h.next = -1
	a.heads[numSizeClasses-1] = 0
	return nil
}

// Reset reinitializes the arena over the same region, abandoning all
// outstanding blocks (spec: re-init is permitted and is the caller's
// responsibility to not use dangling pointers afterward).
func (a *SegregatedArena) Reset() {
	_ = a.init(a.region) // region was already validated once; cannot fail
}

func (a *SegregatedArena) headerAt(off int) *segHeader {
	return (*segHeader)(hack.PointerAt(a.base, off))
}

func (a *SegregatedArena) payloadSlice(off, size int) []byte {
	return unsafe.Slice((*byte)(hack.PointerAt(a.base, off+segHeaderBytes)), size)
}

func (a *SegregatedArena) offsetOfPayload(block []byte) int {
	return hack.OffsetOf(a.base, hack.BasePointer(block)) - segHeaderBytes
}

// unlinkAt removes the block at off from class's list, given the offset
// of its predecessor in that list (-1 if off is currently the head).
func (a *SegregatedArena) unlinkAt(class, prevOff, off int) {
	next := a.headerAt(off).next
	if prevOff == -1 {
		a.heads[class] = int(next)
	} else {
		a.headerAt(prevOff).next = next
	}
}

// Alloc implements spec §4.2: first-fit within the starting size class,
// then successively larger classes. A split suppressed when the remainder
// would be smaller than a header plus the minimum payload.
func (a *SegregatedArena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	r := alignUp(n)

	for class := sizeClassFor(r); class < numSizeClasses; class++ {
		prevOff := -1
		off := a.heads[class]
		for off != -1 {
			h := a.headerAt(off)
			size := int(h.size)
			if size < r {
				prevOff = off
				off = int(h.next)
				continue
			}

			next := int(h.next)
			a.unlinkAt(class, prevOff, off)

			if size >= r+segHeaderBytes+minPayload {
				newOff := off + segHeaderBytes + r
				newSize := size - r - segHeaderBytes
				nh := a.headerAt(newOff)
				nh.size = uint64(newSize)
				nh.free = 1
				h.size = uint64(r)

				newClass := sizeClassFor(newSize)
				if newClass == class {
					// Splice the remainder into the candidate's former
					// list slot instead of pushing it to the head of the
					// class list, preserving traversal order.
					nh.next = int32(next)
					if prevOff == -1 {
						a.heads[class] = newOff
					} else {
						a.headerAt(prevOff).next = int32(newOff)
					}
				} else {
					nh.next = int32(a.heads[newClass])
					a.heads[newClass] = newOff
				}
			}

			h.free = 0
			h.next = -1
			return a.payloadSlice(off, int(h.size))[:n]
		}
	}
	return nil
}

// Free implements spec §4.3 for the segregated variant: no coalescing,
// push onto the size class matching the block's (unchanged) size.
func (a *SegregatedArena) Free(block []byte) {
	if block == nil {
		return
	}
	off := a.offsetOfPayload(block)
	h := a.headerAt(off)
	if h.free != 0 {
		panic(ErrDoubleFree)
	}
	h.free = 1

	class := sizeClassFor(int(h.size))
	h.next = int32(a.heads[class])
	a.heads[class] = off
}

// Realloc implements spec §4.4.
func (a *SegregatedArena) Realloc(block []byte, n int) []byte {
	if block == nil {
		return a.Alloc(n)
	}
	if n == 0 {
		a.Free(block)
		return nil
	}
	cur := a.UsableSize(block)
	if n <= cur {
		return block[:n]
	}
	newBlock := a.Alloc(n)
	if newBlock == nil {
		return nil
	}
	copy(newBlock, block[:cur])
	a.Free(block)
	return newBlock
}

// UsableSize implements spec §4.5.
func (a *SegregatedArena) UsableSize(block []byte) int {
	if block == nil {
		return 0
	}
	return int(a.headerAt(a.offsetOfPayload(block)).size)
}

// Stats implements spec §4.6.
func (a *SegregatedArena) Stats() Stats {
	s := Stats{Base: uintptr(a.base), Length: len(a.region)}
	for off := 0; off < len(a.region); {
		h := a.headerAt(off)
		size := int(h.size)
		if h.free != 0 {
			s.FreeBlocks++
			s.FreeBytes += size
		} else {
			s.AllocatedBlocks++
			s.AllocatedBytes += size
		}
		off += segHeaderBytes + size
	}
	return s
}
