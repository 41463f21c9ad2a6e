package serializer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/util"
	"github.com/ValentinKolb/sysprop/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request
		{
			MsgType: common.MsgTSet,
			Name:    "sys.usb.config",
			Value:   "mtp,adb",
		},

		// Get response
		{
			MsgType: common.MsgTGet,
			Value:   strings.Repeat("long", 64),
			Ok:      true,
		},

		// Wait request
		{
			MsgType:   common.MsgTWait,
			Name:      "sys.boot_completed",
			Serial:    0x01000002,
			TimeoutMs: 30000,
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    uint64(store.RetCValueTooLong),
			Err:     "test error message",
		},

		// List response
		{
			MsgType: common.MsgTList,
			Props: []store.Property{
				{Name: "ro.build.id", Value: "UP1A", Serial: 0x04000000},
				{Name: "debug.empty", Value: "", Serial: 2},
			},
		},

		// Info response
		{
			MsgType: common.MsgTInfo,
			Areas: []store.AreaInfo{
				{
					Context:    "u:object_r:build_prop:s0",
					File:       "/dev/__properties__/u:object_r:build_prop:s0",
					BytesUsed:  4096,
					Capacity:   131072,
					Properties: 12,
					Serial:     7,
					ValueSizes: util.SizeSummary{Count: 12, Average: 20, Median: 16, P90: 64, Max: 91},
				},
			},
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTInfo; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	t.Run("EmptyListIsNotNil", func(t *testing.T) {
		data, err := serializer.Serialize(common.Message{MsgType: common.MsgTList, Props: []store.Property{}})
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}
		var result common.Message
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		if result.Props == nil || len(result.Props) != 0 {
			t.Errorf("expected an empty, non-nil list, got %#v", result.Props)
		}
	})

	t.Run("CodeWithoutMessage", func(t *testing.T) {
		msg := common.Message{MsgType: common.MsgTError, Code: uint64(store.RetCNotFound)}
		data, _ := serializer.Serialize(msg)
		var result common.Message
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		if result.Code != msg.Code {
			t.Errorf("Code mismatch: expected %d, got %d", msg.Code, result.Code)
		}
	})

	t.Run("ResetsTarget", func(t *testing.T) {
		data, _ := serializer.Serialize(common.Message{MsgType: common.MsgTSerial})
		result := common.Message{Name: "stale", Ok: true, Props: []store.Property{{Name: "x"}}}
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		if !reflect.DeepEqual(result, common.Message{MsgType: common.MsgTSerial}) {
			t.Errorf("stale fields survived: %+v", result)
		}
	})

	t.Run("SizeMatches", func(t *testing.T) {
		b := binarySerializerImpl{}
		for i, msg := range testMessages() {
			data, _ := b.Serialize(msg)
			if len(data) != b.sizeBytes(msg) {
				t.Errorf("message %d: sizeBytes %d, serialized %d bytes", i, b.sizeBytes(msg), len(data))
			}
		}
	})
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for name",
			data:        []byte{3, hasName, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims name length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{4, hasValue, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated serial",
			data:        []byte{7, hasSerial, 0, 1},
			expectError: true,
		},
		{
			name:        "Huge prop count",
			data:        []byte{6, hasProps, 0xff, 0xff, 0xff, 0xff},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
