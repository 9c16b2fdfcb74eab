package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the cacheable domain records. These are small and
// hand-maintained; field order is part of the persisted format and must not
// change between releases.
//
// Handles use the fixed-width raw encoding: UndefHandle is all ones, which
// a varint would stretch to ten bytes.

// HandleMUS serializes a Handle.
var HandleMUS = handleMUS{}

type handleMUS struct{}

func (handleMUS) Marshal(h Handle, bs []byte) (n int) {
	return raw.Uint64.Marshal(uint64(h), bs)
}

func (handleMUS) Unmarshal(bs []byte) (h Handle, n int, err error) {
	v, n, err := raw.Uint64.Unmarshal(bs)
	return Handle(v), n, err
}

func (handleMUS) Size(h Handle) (size int) {
	return raw.Uint64.Size(uint64(h))
}

func (handleMUS) Skip(bs []byte) (n int, err error) {
	return raw.Uint64.Skip(bs)
}

// FingerprintMUS serializes a Fingerprint. The encoding is deterministic:
// equal fingerprints always produce identical bytes, which the storage
// layer relies on for ciphertext-equality lookups.
var FingerprintMUS = fingerprintMUS{}

type fingerprintMUS struct{}

func (fingerprintMUS) Marshal(fp Fingerprint, bs []byte) (n int) {
	n = varint.Int64.Marshal(fp.Size, bs)
	n += varint.Int64.Marshal(fp.MTime, bs[n:])
	for i := range fp.CRC {
		n += raw.Uint32.Marshal(fp.CRC[i], bs[n:])
	}
	return
}

func (fingerprintMUS) Unmarshal(bs []byte) (fp Fingerprint, n int, err error) {
	var n1 int
	fp.Size, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	fp.MTime, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := range fp.CRC {
		fp.CRC[i], n1, err = raw.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (fingerprintMUS) Size(fp Fingerprint) (size int) {
	size = varint.Int64.Size(fp.Size)
	size += varint.Int64.Size(fp.MTime)
	for i := range fp.CRC {
		size += raw.Uint32.Size(fp.CRC[i])
	}
	return
}

// NodeMUS serializes a Node.
var NodeMUS = nodeMUS{}

type nodeMUS struct{}

func (nodeMUS) Marshal(v Node, bs []byte) (n int) {
	n = HandleMUS.Marshal(v.Handle, bs)
	n += HandleMUS.Marshal(v.Parent, bs[n:])
	n += varint.Int.Marshal(int(v.Type), bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += ord.String.Marshal(v.Attrs, bs[n:])
	n += ord.Bool.Marshal(v.Fingerprint != nil, bs[n:])
	if v.Fingerprint != nil {
		n += FingerprintMUS.Marshal(*v.Fingerprint, bs[n:])
	}
	n += ord.Bool.Marshal(v.OutShares, bs[n:])
	n += ord.Bool.Marshal(v.InShare, bs[n:])
	n += ord.Bool.Marshal(v.PendingShares, bs[n:])
	return
}

func (nodeMUS) Unmarshal(bs []byte) (v Node, n int, err error) {
	var n1 int
	v.Handle, n, err = HandleMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Parent, n1, err = HandleMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var typ int
	typ, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Type = NodeType(typ)
	v.Size, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Attrs, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var present bool
	present, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if present {
		var fp Fingerprint
		fp, n1, err = FingerprintMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Fingerprint = &fp
	}
	v.OutShares, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InShare, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PendingShares, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return
}

func (nodeMUS) Size(v Node) (size int) {
	size = HandleMUS.Size(v.Handle)
	size += HandleMUS.Size(v.Parent)
	size += varint.Int.Size(int(v.Type))
	size += varint.Int64.Size(v.Size)
	size += ord.String.Size(v.Attrs)
	size += ord.Bool.Size(v.Fingerprint != nil)
	if v.Fingerprint != nil {
		size += FingerprintMUS.Size(*v.Fingerprint)
	}
	size += ord.Bool.Size(v.OutShares)
	size += ord.Bool.Size(v.InShare)
	size += ord.Bool.Size(v.PendingShares)
	return
}

// UserMUS serializes a User.
var UserMUS = userMUS{}

type userMUS struct{}

func (userMUS) Marshal(v User, bs []byte) (n int) {
	n = HandleMUS.Marshal(v.Handle, bs)
	n += ord.String.Marshal(v.Email, bs[n:])
	n += varint.Int64.Marshal(v.Since, bs[n:])
	return
}

func (userMUS) Unmarshal(bs []byte) (v User, n int, err error) {
	var n1 int
	v.Handle, n, err = HandleMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Email, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Since, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (userMUS) Size(v User) (size int) {
	size = HandleMUS.Size(v.Handle)
	size += ord.String.Size(v.Email)
	size += varint.Int64.Size(v.Since)
	return
}

// ContactRequestMUS serializes a ContactRequest.
var ContactRequestMUS = contactRequestMUS{}

type contactRequestMUS struct{}

func (contactRequestMUS) Marshal(v ContactRequest, bs []byte) (n int) {
	n = HandleMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.SourceEmail, bs[n:])
	n += ord.String.Marshal(v.TargetEmail, bs[n:])
	n += ord.String.Marshal(v.Message, bs[n:])
	n += varint.Int64.Marshal(v.Timestamp, bs[n:])
	n += ord.Bool.Marshal(v.Outgoing, bs[n:])
	return
}

func (contactRequestMUS) Unmarshal(bs []byte) (v ContactRequest, n int, err error) {
	var n1 int
	v.ID, n, err = HandleMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.SourceEmail, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TargetEmail, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Message, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Outgoing, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return
}

func (contactRequestMUS) Size(v ContactRequest) (size int) {
	size = HandleMUS.Size(v.ID)
	size += ord.String.Size(v.SourceEmail)
	size += ord.String.Size(v.TargetEmail)
	size += ord.String.Size(v.Message)
	size += varint.Int64.Size(v.Timestamp)
	size += ord.Bool.Size(v.Outgoing)
	return
}
