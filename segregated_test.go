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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSegregatedArena(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"valid_1mb", 1024 * 1024, false},
		{"valid_min", segHeaderBytes + minPayload, false},
		{"too_small", segHeaderBytes + minPayload - 1, true},
		{"zero", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSegregatedArena(make([]byte, tt.size))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	_, err := NewSegregatedArena(nil)
	assert.ErrorIs(t, err, ErrRegionNil)
}

func TestSegregatedInitStats(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	s := a.Stats()
	assert.Equal(t, 0, s.AllocatedBlocks)
	assert.Equal(t, 1, s.FreeBlocks)
	assert.Equal(t, 1024*1024, s.Length)
	assert.Equal(t, 1024*1024-segHeaderBytes, s.FreeBytes)
}

func TestSegregatedAllocFree(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)

	b1 := a.Alloc(100)
	require.NotNil(t, b1)
	assert.Equal(t, 100, len(b1))

	b2 := a.Alloc(200)
	require.NotNil(t, b2)
	assert.False(t, overlap(b1, b2))

	a.Free(b1)
	a.Free(b2)

	s := a.Stats()
	assert.Equal(t, 0, s.AllocatedBlocks)
}

func TestSegregatedZeroAlloc(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	assert.Nil(t, a.Alloc(0))

	s := a.Stats()
	assert.Equal(t, 1, s.FreeBlocks)
}

func TestSegregatedOOM(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	assert.Nil(t, a.Alloc(1024*1024))
}

func TestSegregatedAlignmentSweep(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	for n := 1; n <= 100; n++ {
		b := a.Alloc(n)
		require.NotNil(t, b, "n=%d", n)
		assert.Zero(t, uintptr(basePtr(b))&(alignUnit-1), "n=%d", n)
		a.Free(b)
	}
}

func TestSegregatedFragmentation(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)

	blocks := make([][]byte, 10)
	for i := range blocks {
		blocks[i] = a.Alloc(100)
		require.NotNil(t, blocks[i])
	}
	for i := 0; i < len(blocks); i += 2 {
		a.Free(blocks[i])
	}

	assert.NotNil(t, a.Alloc(500))
}

func TestSegregatedRealloc(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)

	p := a.Alloc(100)
	require.NotNil(t, p)
	for i := range p {
		p[i] = 0xAB
	}

	q := a.Realloc(p, 200)
	require.NotNil(t, q)
	for i := 0; i < 100; i++ {
		assert.Equal(t, byte(0xAB), q[i])
	}

	assert.Equal(t, q, a.Realloc(q, a.UsableSize(q)))

	assert.Nil(t, a.Realloc(q, 0))

	assert.Equal(t, a.Alloc(64), a.Realloc(nil, 64))
}

func TestSegregatedDoubleFreePanics(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	p := a.Alloc(64)
	require.NotNil(t, p)
	a.Free(p)
	assert.PanicsWithError(t, ErrDoubleFree.Error(), func() {
		a.Free(p)
	})
}

func TestSegregatedSizeClassInvariant(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	blocks := []int{8, 40, 70, 300, 5000}
	held := make([][]byte, 0, len(blocks))
	for _, n := range blocks {
		b := a.Alloc(n)
		require.NotNil(t, b)
		held = append(held, b)
	}
	for _, b := range held {
		a.Free(b)
	}
	for class, off := range a.heads {
		for o := off; o != -1; {
			h := a.headerAt(o)
			assert.Equal(t, class, sizeClassFor(int(h.size)), "offset=%d size=%d", o, h.size)
			o = int(h.next)
		}
	}
}

func TestSegregatedReset(t *testing.T) {
	a := newTestSegregatedArena(t, 1024*1024)
	a.Alloc(100)
	a.Alloc(200)

	a.Reset()

	s := a.Stats()
	assert.Equal(t, 0, s.AllocatedBlocks)
	assert.Equal(t, 1, s.FreeBlocks)
}

// helpers

func newTestSegregatedArena(t *testing.T, size int) *SegregatedArena {
	t.Helper()
	a, err := NewSegregatedArena(make([]byte, size))
	require.NoError(t, err)
	return a
}
