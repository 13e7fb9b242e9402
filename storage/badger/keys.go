package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/recall/core"
)

// Key prefixes for different data types. Every key embeds the owner ID so
// each owner's corpus is an independent key range.
const (
	recordPrefix     = "actrec"
	recordDatePrefix = "actrecd"
	recordIDSeq      = "actrecseq"
	profilePrefix    = "ownprof"
)

// makeRecordKey generates a key for an activity record.
// Format: prefix:owner:sourceRef
func makeRecordKey(ownerID, sourceRef string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", recordPrefix, ownerID, sourceRef))
}

// makeOwnerRecordPrefix generates the key prefix covering all of an
// owner's activity records.
func makeOwnerRecordPrefix(ownerID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", recordPrefix, ownerID))
}

// makeDateKey generates a composite key for the per-owner date index.
// Format: prefix:owner:timestamp:id
func makeDateKey(ownerID string, timestamp time.Time, id core.ID) []byte {
	prefixBytes := makeOwnerDatePrefix(ownerID)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDateKey generates a partial key for date range queries.
// Format: prefix:owner:timestamp
func makePartialDateKey(ownerID string, timestamp time.Time) []byte {
	prefixBytes := makeOwnerDatePrefix(ownerID)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeOwnerDatePrefix generates the key prefix covering an owner's date
// index entries.
func makeOwnerDatePrefix(ownerID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", recordDatePrefix, ownerID))
}

// makeProfileKey generates a key for an owner profile.
func makeProfileKey(ownerID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", profilePrefix, ownerID))
}
