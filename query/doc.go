// Copyright 2025 Poiesic Systems
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


// Package query offloads selected record-store reads to a background
// worker so the caller's main loop never blocks on storage I/O.
//
// The caller builds a Query against a table, enqueues it on a Worker, and
// receives the result through a Callbacks implementation on the worker
// goroutine. Queries execute in strict FIFO order relative to each other;
// there is no ordering guarantee between an asynchronous query and a
// synchronous table call made concurrently from another goroutine.
//
// Shutdown is a sentinel query, not a cancel: all work enqueued before it
// still completes, then the worker exits for good.
package query
