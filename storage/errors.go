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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrNotProvisioned indicates an operation that needs the session key
	// bundle before it has been provisioned.
	ErrNotProvisioned = errors.New("session keys not provisioned")

	// ErrNotRecovered indicates an id allocation attempted before the
	// existing generic records have been replayed for this session.
	ErrNotRecovered = errors.New("record ids not recovered yet")

	// ErrInvalidTag indicates a generic record type tag outside the range
	// the id spacing can encode, or the reserved zero tag.
	ErrInvalidTag = errors.New("invalid record type tag")

	// ErrInvalidSlot indicates a root slot index outside 0..3.
	ErrInvalidSlot = errors.New("invalid root slot")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")
)
