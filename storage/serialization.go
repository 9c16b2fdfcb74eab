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

import (
	"github.com/poiesic/statecache/core"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MarshalNodeRow serializes a NodeRow to bytes.
func MarshalNodeRow(row *NodeRow) []byte {
	buf := make([]byte, nodeRowMUS.Size(*row))
	nodeRowMUS.Marshal(*row, buf)
	return buf
}

// UnmarshalNodeRow deserializes a NodeRow from bytes.
func UnmarshalNodeRow(data []byte) (*NodeRow, error) {
	row, _, err := nodeRowMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MarshalNode serializes a Node to bytes.
func MarshalNode(n *core.Node) []byte {
	buf := make([]byte, core.NodeMUS.Size(*n))
	core.NodeMUS.Marshal(*n, buf)
	return buf
}

// UnmarshalNode deserializes a Node from bytes.
func UnmarshalNode(data []byte) (*core.Node, error) {
	n, _, err := core.NodeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarshalUser serializes a User to bytes.
func MarshalUser(u *core.User) []byte {
	buf := make([]byte, core.UserMUS.Size(*u))
	core.UserMUS.Marshal(*u, buf)
	return buf
}

// UnmarshalUser deserializes a User from bytes.
func UnmarshalUser(data []byte) (*core.User, error) {
	u, _, err := core.UserMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MarshalContactRequest serializes a ContactRequest to bytes.
func MarshalContactRequest(r *core.ContactRequest) []byte {
	buf := make([]byte, core.ContactRequestMUS.Size(*r))
	core.ContactRequestMUS.Marshal(*r, buf)
	return buf
}

// UnmarshalContactRequest deserializes a ContactRequest from bytes.
func UnmarshalContactRequest(data []byte) (*core.ContactRequest, error) {
	r, _, err := core.ContactRequestMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalFingerprint serializes a Fingerprint to bytes. The encoding is
// deterministic, which GetNodeByFingerprint depends on.
func MarshalFingerprint(fp *core.Fingerprint) []byte {
	buf := make([]byte, core.FingerprintMUS.Size(*fp))
	core.FingerprintMUS.Marshal(*fp, buf)
	return buf
}

var nodeRowMUS = nodeRowSer{}

type nodeRowSer struct{}

func (nodeRowSer) Marshal(v NodeRow, bs []byte) (n int) {
	n = ord.ByteSlice.Marshal(v.Key, bs)
	n += ord.ByteSlice.Marshal(v.ParentKey, bs[n:])
	n += ord.ByteSlice.Marshal(v.Fingerprint, bs[n:])
	n += ord.String.Marshal(v.Attrs, bs[n:])
	n += varint.Int.Marshal(int(v.ShareClass), bs[n:])
	n += ord.ByteSlice.Marshal(v.Blob, bs[n:])
	return
}

func (nodeRowSer) Unmarshal(bs []byte) (v NodeRow, n int, err error) {
	var n1 int
	v.Key, n, err = ord.ByteSlice.Unmarshal(bs)
	if err != nil {
		return
	}
	v.ParentKey, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Fingerprint, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Attrs, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var sc int
	sc, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ShareClass = core.ShareClass(sc)
	v.Blob, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	return
}

func (nodeRowSer) Size(v NodeRow) (size int) {
	size = ord.ByteSlice.Size(v.Key)
	size += ord.ByteSlice.Size(v.ParentKey)
	size += ord.ByteSlice.Size(v.Fingerprint)
	size += ord.String.Size(v.Attrs)
	size += varint.Int.Size(int(v.ShareClass))
	size += ord.ByteSlice.Size(v.Blob)
	return
}
