package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/util"
	"github.com/ValentinKolb/sysprop/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasName    byte = 1 << 0
	hasValue   byte = 1 << 1
	hasSerial  byte = 1 << 2
	hasTimeout byte = 1 << 3
	hasOk      byte = 1 << 4
	hasErr     byte = 1 << 5
	hasProps   byte = 1 << 6
	hasAreas   byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Message type and flags, the flags byte is filled in at the end
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte = 0

	if msg.Name != "" {
		flags |= hasName
		result = appendString(result, msg.Name)
	}
	if msg.Value != "" {
		flags |= hasValue
		result = appendString(result, msg.Value)
	}
	if msg.Serial != 0 {
		flags |= hasSerial
		result = binary.BigEndian.AppendUint32(result, msg.Serial)
	}
	if msg.TimeoutMs > 0 {
		flags |= hasTimeout
		result = binary.BigEndian.AppendUint64(result, msg.TimeoutMs)
	}
	if msg.Ok {
		flags |= hasOk
		result = append(result, 1)
	}
	if msg.Err != "" || msg.Code != 0 {
		flags |= hasErr
		result = binary.BigEndian.AppendUint64(result, msg.Code)
		result = appendString(result, msg.Err)
	}
	if msg.Props != nil {
		flags |= hasProps
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Props)))
		for _, p := range msg.Props {
			result = appendString(result, p.Name)
			result = appendString(result, p.Value)
			result = binary.BigEndian.AppendUint32(result, p.Serial)
		}
	}
	if msg.Areas != nil {
		flags |= hasAreas
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Areas)))
		for _, a := range msg.Areas {
			result = appendString(result, a.Context)
			result = appendString(result, a.File)
			result = binary.BigEndian.AppendUint32(result, a.BytesUsed)
			result = binary.BigEndian.AppendUint32(result, a.Capacity)
			result = binary.BigEndian.AppendUint32(result, uint32(a.Properties))
			result = binary.BigEndian.AppendUint32(result, a.Serial)
			result = binary.BigEndian.AppendUint64(result, uint64(a.ValueSizes.Count))
			for _, v := range []int{a.ValueSizes.Average, a.ValueSizes.Median, a.ValueSizes.P90, a.ValueSizes.Max} {
				result = binary.BigEndian.AppendUint32(result, uint32(v))
			}
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := reader{data: data, pos: 2}

	if flags&hasName != 0 {
		msg.Name = r.string("name")
	}
	if flags&hasValue != 0 {
		msg.Value = r.string("value")
	}
	if flags&hasSerial != 0 {
		msg.Serial = r.uint32("serial")
	}
	if flags&hasTimeout != 0 {
		msg.TimeoutMs = r.uint64("timeout")
	}
	if flags&hasOk != 0 {
		msg.Ok = r.byte("ok flag") != 0
	}
	if flags&hasErr != 0 {
		msg.Code = r.uint64("error code")
		msg.Err = r.string("error")
	}
	if flags&hasProps != 0 {
		n := r.count("props", 12)
		msg.Props = make([]store.Property, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Props = append(msg.Props, store.Property{
				Name:   r.string("prop name"),
				Value:  r.string("prop value"),
				Serial: r.uint32("prop serial"),
			})
		}
	}
	if flags&hasAreas != 0 {
		n := r.count("areas", 48)
		msg.Areas = make([]store.AreaInfo, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Areas = append(msg.Areas, store.AreaInfo{
				Context:    r.string("area context"),
				File:       r.string("area file"),
				BytesUsed:  r.uint32("bytes used"),
				Capacity:   r.uint32("capacity"),
				Properties: int(r.uint32("properties")),
				Serial:     r.uint32("area serial"),
				ValueSizes: util.SizeSummary{
					Count:   int64(r.uint64("size count")),
					Average: int(r.uint32("size average")),
					Median:  int(r.uint32("size median")),
					P90:     int(r.uint32("size p90")),
					Max:     int(r.uint32("size max")),
				},
			})
		}
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Name != "" {
		size += 4 + len(msg.Name)
	}
	if msg.Value != "" {
		size += 4 + len(msg.Value)
	}
	if msg.Serial != 0 {
		size += 4
	}
	if msg.TimeoutMs > 0 {
		size += 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Err != "" || msg.Code != 0 {
		size += 8 + 4 + len(msg.Err)
	}
	if msg.Props != nil {
		size += 4
		for _, p := range msg.Props {
			size += 12 + len(p.Name) + len(p.Value)
		}
	}
	if msg.Areas != nil {
		size += 4
		for _, a := range msg.Areas {
			size += 48 + len(a.Context) + len(a.File)
		}
	}

	return size
}

// appendString appends a length prefixed string
func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// reader decodes fields in order and remembers the first error.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) byte(field string) byte {
	if b := r.take(1, field); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) uint32(field string) uint32 {
	if b := r.take(4, field); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) uint64(field string) uint64 {
	if b := r.take(8, field); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) string(field string) string {
	n := r.uint32(field + " length")
	if r.err != nil {
		return ""
	}
	return string(r.take(int(n), field))
}

// count reads an element count and checks it against the remaining data,
// given the minimum encoded size of one element.
func (r *reader) count(field string, minSize int) int {
	n := int(r.uint32(field + " count"))
	if r.err == nil && n*minSize > len(r.data)-r.pos {
		r.err = fmt.Errorf("data too short for %d %s", n, field)
		return 0
	}
	return n
}
