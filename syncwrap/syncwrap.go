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

// Package syncwrap wraps an arenalloc.Allocator with a mutex. The core
// allocator is deliberately single-threaded and takes no lock of its own
// (concurrent entry into any two of its methods is undefined behavior);
// callers who need multi-threaded access are expected to supply this
// wrapping themselves, per the core's documented concurrency model.
package syncwrap

import (
	"sync"

	"github.com/cloudwego/arenalloc"
)

// Safe serializes all access to an underlying arenalloc.Allocator behind
// a single mutex. It adds nothing but mutual exclusion: callers still see
// the same null-on-failure semantics and the same undefined behavior on
// invalid pointers.
type Safe struct {
	mu sync.Mutex
	a  arenalloc.Allocator
}

// New wraps a to serialize all calls to it.
func New(a arenalloc.Allocator) *Safe {
	return &Safe{a: a}
}

func (s *Safe) Alloc(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(n)
}

func (s *Safe) Free(block []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(block)
}

func (s *Safe) Realloc(block []byte, n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Realloc(block, n)
}

func (s *Safe) UsableSize(block []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.UsableSize(block)
}

func (s *Safe) Stats() arenalloc.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Stats()
}

func (s *Safe) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

var _ arenalloc.Allocator = (*Safe)(nil)
