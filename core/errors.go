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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidNode indicates a Node failed validation.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidNodeType indicates an unknown NodeType value.
	ErrInvalidNodeType = errors.New("invalid node type")

	// ErrShareConflict indicates a node marked both as an inbound share and
	// a pending-share host, a combination the share protocol never produces.
	ErrShareConflict = errors.New("node cannot be an inshare and a pending share at once")

	// ErrMissingFingerprint indicates a file node without a fingerprint.
	ErrMissingFingerprint = errors.New("file node has no fingerprint")

	// ErrInvalidUser indicates a User failed validation.
	ErrInvalidUser = errors.New("invalid user")

	// ErrEmptyEmail indicates an empty email field.
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidContactRequest indicates a ContactRequest failed validation.
	ErrInvalidContactRequest = errors.New("invalid contact request")

	// ErrUndefinedID indicates a record that requires a defined identifier.
	ErrUndefinedID = errors.New("identifier is undefined")
)
