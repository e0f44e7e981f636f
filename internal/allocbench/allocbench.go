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

// Package allocbench is the pluggable comparison harness spec.md calls
// out as an external collaborator ("the pluggable test allocator
// interface table used to compare implementations"). Where the original
// C sources (test_allocator.h) expressed this as a vtable of function
// pointers plus a performance_metrics_t struct, Go expresses the same
// idea as the arenalloc.Allocator interface plus this Metrics type.
package allocbench

import (
	"math/rand"
	"time"

	"github.com/cloudwego/arenalloc"
)

// Metrics mirrors OpenAlloc's performance_metrics_t: per-operation timing
// and a coarse fragmentation signal, gathered by driving an Allocator
// through a synthetic workload.
type Metrics struct {
	Name             string
	MallocTime       time.Duration
	FreeTime         time.Duration
	ReallocTime      time.Duration
	Allocations      uint64
	Frees            uint64
	PeakAllocated    int
	FragmentationPct float64
}

// Workload parameterizes the synthetic benchmark driven against an
// Allocator: how many operations to run, the range of request sizes, and
// the random seed (fixed, so runs are reproducible across variants).
type Workload struct {
	Ops      int
	MinSize  int
	MaxSize  int
	Seed     int64
	ReallocP float64 // fraction of ops that are Realloc instead of Alloc/Free
}

// DefaultWorkload is a reasonable general-purpose mixed workload.
var DefaultWorkload = Workload{Ops: 50_000, MinSize: 8, MaxSize: 4096, Seed: 1, ReallocP: 0.1}

// Run drives name/a through w and returns the resulting Metrics. It is
// the Go analogue of OpenAlloc's compare_benchmark.c main loop.
func Run(name string, a arenalloc.Allocator, w Workload) Metrics {
	rng := rand.New(rand.NewSource(w.Seed))
	m := Metrics{Name: name}

	var live [][]byte
	peak := 0

	for i := 0; i < w.Ops; i++ {
		switch {
		case len(live) > 0 && rng.Float64() < w.ReallocP:
			idx := rng.Intn(len(live))
			n := w.MinSize + rng.Intn(w.MaxSize-w.MinSize+1)

			start := time.Now()
			b := a.Realloc(live[idx], n)
			m.ReallocTime += time.Since(start)

			if b != nil {
				live[idx] = b
			} else {
				live = append(live[:idx], live[idx+1:]...)
			}

		case len(live) == 0 || rng.Intn(2) == 0:
			n := w.MinSize + rng.Intn(w.MaxSize-w.MinSize+1)

			start := time.Now()
			b := a.Alloc(n)
			m.MallocTime += time.Since(start)
			m.Allocations++

			if b != nil {
				live = append(live, b)
			}

		default:
			idx := rng.Intn(len(live))

			start := time.Now()
			a.Free(live[idx])
			m.FreeTime += time.Since(start)
			m.Frees++

			live = append(live[:idx], live[idx+1:]...)
		}

		if s := a.Stats(); s.AllocatedBytes > peak {
			peak = s.AllocatedBytes
		}
	}

	m.PeakAllocated = peak
	if s := a.Stats(); s.AllocatedBytes+s.FreeBytes > 0 {
		m.FragmentationPct = 100 * float64(s.FreeBlocks) / float64(s.AllocatedBlocks+s.FreeBlocks)
	}
	return m
}
