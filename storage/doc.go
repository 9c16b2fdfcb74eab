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


// Package storage provides the encrypted record-access layer of the state
// cache and the contract it requires from a raw storage backend.
//
// # Architecture
//
// The package splits the persistence layer in two:
//
//   - Backend: the raw contract a storage engine must satisfy — keyed
//     upsert/get/delete per record kind, forward-only cursors, and
//     child-count aggregates. The badger subpackage is the shipped
//     implementation; nothing above it depends on BadgerDB specifics.
//   - Table: the encrypted access layer. It composes a Backend with the
//     session key bundle: payloads are pad-encrypted before they reach the
//     backend, and every handle is obfuscated before it is used as a
//     storage key. Only a Table holding the session keys can read a cache
//     back.
//
// Generic cacheable records are identified by allocated ids that pack a
// type tag into the low bits (see Allocator). The allocator's high-water
// mark is not persisted; it is reconstructed by replaying existing records
// once per session, and the Table enforces that replay before it hands out
// new ids.
//
// # Thread Safety
//
// Table performs no locking of its own. It is safe for concurrent use
// exactly when the Backend is (the badger backend is), except for the
// cursor-advancing Next*/Rewind* methods, which hold per-kind cursor state
// and must be confined to one goroutine per record kind.
package storage
