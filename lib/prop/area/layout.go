package area

import (
	"encoding/binary"
	"strings"
)

// --------------------------------------------------------------------------
// Layout Constants
// --------------------------------------------------------------------------

const (
	// Magic is the "PROP" magic stored in every area header.
	Magic uint32 = 0x504f5250
	// Version is the only supported area version.
	Version uint32 = 0xfc6ed0ab

	// DefaultSize is the size of an area file, header included.
	DefaultSize = 128 * 1024
	// HeaderSize is the size of the area header, the arena starts right after it.
	HeaderSize = 128

	// PropValueMax is the size of the inline value slot, terminating NUL included.
	PropValueMax = 92
	// LongLegacyErrorBufferSize is the size of the inline error message of a long property.
	LongLegacyErrorBufferSize = 56
	// LongFlag marks a property whose value lives in an overflow buffer.
	LongFlag uint32 = 1 << 16

	// MaxNameLen is the longest accepted property name.
	MaxNameLen = 4096
)

// longErrorMessage is stored inline for long properties and returned by the legacy read path.
const longErrorMessage = "Must use __system_property_read_callback() to read"

// header field offsets, relative to the start of the mapping
const (
	offBytesUsed = 0
	offSerial    = 4
	offMagic     = 8
	offVersion   = 12
)

// trie node field offsets, relative to the node
const (
	nodeNameLen  = 0
	nodeProp     = 4
	nodeLeft     = 8
	nodeRight    = 12
	nodeChildren = 16
	nodeName     = 20

	nodeHeaderSize = 20
)

// property info field offsets, relative to the info
const (
	infoSerial     = 0
	infoValue      = 4
	infoLongOffset = infoValue + LongLegacyErrorBufferSize
	infoName       = infoValue + PropValueMax

	infoHeaderSize = infoName
)

// dirtyBackupOffset is the data offset of the block holding the previous value
// during a write. It directly follows the root node, whose name is empty.
const dirtyBackupOffset = nodeHeaderSize

// initialBytesUsed is the arena cursor of a freshly formatted area.
const initialBytesUsed = nodeHeaderSize + (PropValueMax+3)&^3

var native = binary.NativeEndian

// --------------------------------------------------------------------------
// Serial Helpers
// --------------------------------------------------------------------------

// SerialDirty reports whether a write is in progress.
func SerialDirty(serial uint32) bool {
	return serial&1 != 0
}

// SerialValueLen returns the value length encoded in the top byte of serial.
func SerialValueLen(serial uint32) int {
	return int(serial >> 24)
}

// nextSerial returns the serial published at the end of a write of a value of
// length n, given the dirty serial stored at its start.
func nextSerial(dirty uint32, n int) uint32 {
	return uint32(n)<<24 | ((dirty + 1) & 0xffffff)
}

// IsReadOnly reports whether name belongs to the read-only namespace. Only
// these properties may hold long values.
func IsReadOnly(name string) bool {
	return strings.HasPrefix(name, "ro.")
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}
