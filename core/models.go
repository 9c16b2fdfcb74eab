package core

// Handle is the fixed-width opaque identifier the server assigns to nodes,
// users and contact requests. The all-ones value means "undefined".
type Handle uint64

// UndefHandle is the sentinel for an unassigned or unknown handle.
const UndefHandle = ^Handle(0)

// Defined reports whether the handle carries a real identifier.
func (h Handle) Defined() bool {
	return h != UndefHandle
}

// NodeType classifies a node in the remote file tree.
type NodeType int

const (
	// TypeFile is a regular file node. File nodes carry a fingerprint.
	TypeFile NodeType = iota
	// TypeFolder is a regular folder node.
	TypeFolder
	// TypeRoot is the top-level file tree container.
	TypeRoot
	// TypeInbox is the incoming-items container.
	TypeInbox
	// TypeRubbish is the trash container.
	TypeRubbish
)

// ShareClass is the derived classification of a node's sharing state,
// persisted alongside the node row so the backend can filter on it.
type ShareClass int

const (
	ShareClassNone       ShareClass = 0
	ShareClassOut        ShareClass = 1
	ShareClassIn         ShareClass = 2
	ShareClassPending    ShareClass = 3
	ShareClassOutPending ShareClass = 4
)

// Fingerprint identifies file content by size, modification time and a
// sampled CRC. Two files with equal fingerprints are assumed identical.
type Fingerprint struct {
	Size  int64
	MTime int64
	CRC   [4]uint32
}

// Node is a cached entry of the server-side file tree.
//
// Attrs holds the node's attribute string exactly as received from the
// server; it is cleared once the client has decoded the attributes, so a
// non-empty value marks a node that still needs attribute decryption.
type Node struct {
	Handle      Handle
	Parent      Handle
	Type        NodeType
	Size        int64
	Attrs       string
	Fingerprint *Fingerprint

	OutShares     bool
	InShare       bool
	PendingShares bool
}

// ShareClass derives the node's share classification: 0 for no shares,
// 1 for outgoing shares, 2 for an inbound share, +3 when outgoing shares
// are still pending. A node may hold outshares and pending shares at the
// same time (value 4); it can never be an inbound share and a pending
// share host at once, so 5 is not a legal value. ValidateNode rejects
// that combination before it reaches storage.
func (n *Node) ShareClass() ShareClass {
	c := ShareClassNone
	if n.OutShares {
		c = ShareClassOut
	}
	if n.InShare {
		c = ShareClassIn
	}
	if n.PendingShares {
		c += ShareClassPending
	}
	return c
}

// IsFile reports whether the node is a regular file.
func (n *Node) IsFile() bool {
	return n.Type == TypeFile
}

// User is a cached contact entry.
//
// A User with an undefined handle is a transient placeholder created while
// sharing with an email address that is not a contact yet; it is never
// persisted as a user record.
type User struct {
	Handle Handle
	Email  string
	Since  int64
}

// ContactRequest is a cached pending contact request, either direction.
type ContactRequest struct {
	ID          Handle
	SourceEmail string
	TargetEmail string
	Message     string
	Timestamp   int64
	Outgoing    bool
}
