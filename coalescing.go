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

// coalHeader is the 32-byte in-band header prefixing every block in a
// CoalescingArena. The extra 16 bytes over segHeader buy a prev link,
// which is what makes O(1) unlink from an arbitrary list position
// possible.
type coalHeader struct {
	size uint64
	next int64
	prev int64
	free uint64
}

// CoalescingArena is the "NO_SEG" free-list organization: a single
// doubly-linked list threaded through free blocks in arbitrary order.
// Free merges with both physical neighbors when they are free, at the
// cost of an O(arena-size) predecessor walk per Free.
type CoalescingArena struct {
	region []byte
	base   unsafe.Pointer
	head   int // -1 means the list is empty
}

// NewCoalescingArena installs region as a fresh arena managed by the
// coalescing organization.
func NewCoalescingArena(region []byte) (*CoalescingArena, error) {
	a := &CoalescingArena{}
	if err := a.init(region); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *CoalescingArena) init(region []byte) error {
	if err := validateRegion(region, coalHeaderBytes); err != nil {
		return err
	}
	a.region = region
	a.base = hack.BasePointer(region)

	h := a.headerAt(0)
	h.size = uint64(len(region) - coalHeaderBytes)
	h.free = 1
	h.next = -1
	h.prev = -1
	a.head = 0
	return nil
}

// Reset reinitializes the arena over the same region (see
// SegregatedArena.Reset).
func (a *CoalescingArena) Reset() {
	_ = a.init(a.region)
}

func (a *CoalescingArena) headerAt(off int) *coalHeader {
	return (*coalHeader)(hack.PointerAt(a.base, off))
}

func (a *CoalescingArena) payloadSlice(off, size int) []byte {
	return unsafe.Slice((*byte)(hack.PointerAt(a.base, off+coalHeaderBytes)), size)
}

func (a *CoalescingArena) offsetOfPayload(block []byte) int {
	return hack.OffsetOf(a.base, hack.BasePointer(block)) - coalHeaderBytes
}

func (a *CoalescingArena) unlink(off int) {
	h := a.headerAt(off)
	prev, next := int(h.prev), int(h.next)
	if prev != -1 {
		a.headerAt(prev).next = int64(next)
	} else {
		a.head = next
	}
	if next != -1 {
		a.headerAt(next).prev = int64(prev)
	}
}

func (a *CoalescingArena) pushFront(off int) {
	h := a.headerAt(off)
	h.next = int64(a.head)
	h.prev = -1
	if a.head != -1 {
		a.headerAt(a.head).prev = int64(off)
	}
	a.head = off
}

// Alloc implements spec §4.2: linear first-fit over the doubly-linked
// free list.
func (a *CoalescingArena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	r := alignUp(n)

	for off := a.head; off != -1; {
		h := a.headerAt(off)
		size := int(h.size)
		if size < r {
			off = int(h.next)
			continue
		}

		a.unlink(off)

		if size >= r+coalHeaderBytes+minPayload {
			newOff := off + coalHeaderBytes + r
			nh := a.headerAt(newOff)
			nh.size = uint64(size - r - coalHeaderBytes)
			nh.free = 1
			h.size = uint64(r)
			a.pushFront(newOff)
		}

		h.free = 0
		h.next = -1
		h.prev = -1
		return a.payloadSlice(off, int(h.size))[:n]
	}
	return nil
}

// Free implements spec §4.3: merge with the physically next block if
// free, then find the physical predecessor by walking from the arena
// base and merge into it if free, then push the (possibly merged) block
// onto the free list.
func (a *CoalescingArena) Free(block []byte) {
	if block == nil {
		return
	}
	off := a.offsetOfPayload(block)
	h := a.headerAt(off)
	if h.free != 0 {
		panic(ErrDoubleFree)
	}
	h.free = 1

	if nextOff := off + coalHeaderBytes + int(h.size); nextOff < len(a.region) {
		nh := a.headerAt(nextOff)
		if nh.free != 0 {
			a.unlink(nextOff)
			h.size += uint64(coalHeaderBytes) + nh.size
		}
	}

	// O(arena-size) predecessor walk, acknowledged cost of full
	// coalescing without boundary tags (footers).
	predOff := -1
	for cur := 0; cur < off; {
		curH := a.headerAt(cur)
		next := cur + coalHeaderBytes + int(curH.size)
		if next == off && curH.free != 0 {
			predOff = cur
			break
		}
		cur = next
	}
	if predOff != -1 {
		a.unlink(predOff)
		predH := a.headerAt(predOff)
		predH.size += uint64(coalHeaderBytes) + h.size
		off, h = predOff, predH
	}

	a.pushFront(off)
}

// Realloc implements spec §4.4.
func (a *CoalescingArena) Realloc(block []byte, n int) []byte {
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
func (a *CoalescingArena) UsableSize(block []byte) int {
	if block == nil {
		return 0
	}
	return int(a.headerAt(a.offsetOfPayload(block)).size)
}

// Stats implements spec §4.6.
func (a *CoalescingArena) Stats() Stats {
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
		off += coalHeaderBytes + size
	}
	return s
}
