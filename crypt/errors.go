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


package crypt

import "errors"

var (
	// ErrKeySize indicates key material of an unsupported length.
	ErrKeySize = errors.New("invalid key size")

	// ErrDecrypt indicates a ciphertext that failed to decrypt or unpad,
	// meaning the data is corrupt or was written under a different key.
	ErrDecrypt = errors.New("decrypt failed")
)
