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

import "fmt"

// ValidateNode validates a Node according to domain rules.
//
// Validation rules:
//   - Type must be a known NodeType
//   - file nodes must carry a fingerprint
//   - a node must not be an inbound share and a pending-share host at the
//     same time (the share protocol never produces that state; its derived
//     share class would collide with nothing representable)
//
// NOT validated:
//   - Handle (an undefined handle is caught by the storage layer)
//   - Attrs (empty once attributes are decoded, opaque otherwise)
func ValidateNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: node is nil", ErrInvalidNode)
	}

	if n.Type < TypeFile || n.Type > TypeRubbish {
		return fmt.Errorf("%w: %w: %d", ErrInvalidNode, ErrInvalidNodeType, n.Type)
	}

	if n.IsFile() && n.Fingerprint == nil {
		return fmt.Errorf("%w: %w", ErrInvalidNode, ErrMissingFingerprint)
	}

	if n.InShare && n.PendingShares {
		return fmt.Errorf("%w: %w", ErrInvalidNode, ErrShareConflict)
	}

	return nil
}

// ValidateUser validates a User according to domain rules.
//
// An undefined handle is allowed: it marks a not-yet-a-contact placeholder
// that the storage layer skips on write.
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("%w: user is nil", ErrInvalidUser)
	}

	if u.Email == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUser, ErrEmptyEmail)
	}

	return nil
}

// ValidateContactRequest validates a ContactRequest according to domain rules.
func ValidateContactRequest(r *ContactRequest) error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidContactRequest)
	}

	if !r.ID.Defined() {
		return fmt.Errorf("%w: %w", ErrInvalidContactRequest, ErrUndefinedID)
	}

	if r.TargetEmail == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContactRequest, ErrEmptyEmail)
	}

	return nil
}
