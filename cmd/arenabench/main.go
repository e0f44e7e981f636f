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

// Command arenabench compares the segregated and coalescing variants over
// the same synthetic workload and prints a table, the Go equivalent of
// OpenAlloc's benchmark.c / compare_benchmark.c.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cloudwego/arenalloc"
	"github.com/cloudwego/arenalloc/internal/allocbench"
)

func main() {
	var (
		arenaSize = flag.Int("arena", 16<<20, "arena size in bytes")
		ops       = flag.Int("ops", 200_000, "number of operations to drive")
		minSize   = flag.Int("min", 8, "minimum request size")
		maxSize   = flag.Int("max", 4096, "maximum request size")
		seed      = flag.Int64("seed", 1, "PRNG seed")
		reallocP  = flag.Float64("realloc", 0.1, "fraction of ops that are realloc")
	)
	flag.Parse()

	w := allocbench.Workload{Ops: *ops, MinSize: *minSize, MaxSize: *maxSize, Seed: *seed, ReallocP: *reallocP}

	seg, err := arenalloc.NewSegregatedArena(make([]byte, *arenaSize))
	if err != nil {
		fmt.Fprintln(os.Stderr, "arenabench: segregated init:", err)
		os.Exit(1)
	}
	coal, err := arenalloc.NewCoalescingArena(make([]byte, *arenaSize))
	if err != nil {
		fmt.Fprintln(os.Stderr, "arenabench: coalescing init:", err)
		os.Exit(1)
	}

	results := []allocbench.Metrics{
		allocbench.Run("segregated", seg, w),
		allocbench.Run("coalescing", coal, w),
	}

	fmt.Printf("%-12s %10s %10s %12s %14s %10s\n",
		"variant", "mallocs", "frees", "peak_bytes", "malloc_time", "frag_pct")
	for _, m := range results {
		fmt.Printf("%-12s %10d %10d %12d %14s %9.1f%%\n",
			m.Name, m.Allocations, m.Frees, m.PeakAllocated, m.MallocTime, m.FragmentationPct)
	}
}
