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


package query

import "errors"

var (
	// ErrUnavailable indicates a query executed before its table was
	// provisioned.
	ErrUnavailable = errors.New("record store unavailable")

	// ErrReadFailed indicates the underlying table read failed.
	ErrReadFailed = errors.New("read failed")

	// ErrInvalidType indicates a query of unknown type, which is a
	// programming error in the caller.
	ErrInvalidType = errors.New("invalid query type")

	// ErrShutdown indicates an enqueue attempted after the worker was shut
	// down.
	ErrShutdown = errors.New("query worker is shut down")
)
