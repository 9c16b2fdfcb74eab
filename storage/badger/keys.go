package badger

import "encoding/binary"

// Key prefixes for the record kinds. The obfuscated-handle components are
// fixed 8-byte strings, so composite keys need no separators beyond the
// prefix colon.
const (
	rootSlotPrefix    = "root"
	nodePrefix        = "node"
	fingerprintPrefix = "nodef"
	childIndexPrefix  = "nodep"
	outShareIndex     = "nodeo"
	pendingShareIndex = "nodeq"
	userPrefix        = "user"
	contactReqPrefix  = "pcr"
	recordPrefix      = "rec"
)

// Child index values classify the row for the count aggregates.
const (
	childKindFolder byte = 0
	childKindFile   byte = 1
)

func prefixed(prefix string, parts ...[]byte) []byte {
	size := len(prefix) + 1
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

func makeRootSlotKey(slot int) []byte {
	return prefixed(rootSlotPrefix, []byte{byte(slot)})
}

func makeNodeKey(key []byte) []byte {
	return prefixed(nodePrefix, key)
}

func makeFingerprintKey(fp []byte) []byte {
	return prefixed(fingerprintPrefix, fp)
}

// makeChildIndexKey builds "nodep:<parent><key>"; both components are
// 8 bytes, so the own key is always the last 8 bytes.
func makeChildIndexKey(parentKey, key []byte) []byte {
	return prefixed(childIndexPrefix, parentKey, key)
}

func makeChildIndexPrefix(parentKey []byte) []byte {
	return prefixed(childIndexPrefix, parentKey)
}

func makeShareIndexKey(prefix string, parentKey, key []byte) []byte {
	return prefixed(prefix, parentKey, key)
}

func makeShareIndexPrefix(prefix string, parentKey []byte) []byte {
	if parentKey == nil {
		return prefixed(prefix)
	}
	return prefixed(prefix, parentKey)
}

func makeUserKey(key []byte) []byte {
	return prefixed(userPrefix, key)
}

func makeContactRequestKey(key []byte) []byte {
	return prefixed(contactReqPrefix, key)
}

func makeRecordKey(id uint64) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], id)
	return prefixed(recordPrefix, raw[:])
}
