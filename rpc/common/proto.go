package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/sysprop/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Name      string `json:"name,omitempty"`       // Used for: Get, Set, Delete, Wait
	Value     string `json:"value,omitempty"`      // Used for: Set (request), Get (response)
	Serial    uint32 `json:"serial,omitempty"`     // Used for: Wait (request + response), Serial (response)
	TimeoutMs uint64 `json:"timeout_ms,omitempty"` // Used for: Wait requests, 0 waits forever

	// Response only fields
	Ok    bool             `json:"ok,omitempty"`    // Used for: Get, Delete, Wait responses
	Code  uint64           `json:"code,omitempty"`  // store.RetCode of Err
	Err   string           `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
	Props []store.Property `json:"props,omitempty"` // Used for: List responses
	Areas []store.AreaInfo `json:"areas,omitempty"` // Used for: Info responses
}

// ToError returns the error carried by the message as a *store.Error, or nil.
func (m *Message) ToError() error {
	if m.MsgType != MsgTError && m.Err == "" {
		return nil
	}
	code := store.RetCode(m.Code)
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// setErr stores err in the message, keeping the return code of store errors.
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}
	var se *store.Error
	if errors.As(err, &se) {
		m.Code = uint64(se.Code)
	} else {
		m.Code = uint64(store.RetCInternalError)
	}
	m.Err = err.Error()
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(name string) *Message {
	return &Message{MsgType: MsgTGet, Name: name}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value string, ok bool, err error) *Message {
	return (&Message{MsgType: MsgTGet, Value: value, Ok: ok}).setErr(err)
}

// NewSetRequest creates a new Set request
func NewSetRequest(name, value string) *Message {
	return &Message{MsgType: MsgTSet, Name: name, Value: value}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	return (&Message{MsgType: MsgTSet}).setErr(err)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(name string) *Message {
	return &Message{MsgType: MsgTDelete, Name: name}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTDelete, Ok: ok}).setErr(err)
}

// NewListRequest creates a new List request
func NewListRequest() *Message {
	return &Message{MsgType: MsgTList}
}

// NewListResponse creates a new List response
func NewListResponse(props []store.Property, err error) *Message {
	return (&Message{MsgType: MsgTList, Props: props}).setErr(err)
}

// NewWaitRequest creates a new Wait request
func NewWaitRequest(name string, oldSerial uint32, timeoutMs uint64) *Message {
	return &Message{MsgType: MsgTWait, Name: name, Serial: oldSerial, TimeoutMs: timeoutMs}
}

// NewWaitResponse creates a new Wait response
func NewWaitResponse(serial uint32, ok bool, err error) *Message {
	return (&Message{MsgType: MsgTWait, Serial: serial, Ok: ok}).setErr(err)
}

// NewSerialRequest creates a new Serial request
func NewSerialRequest() *Message {
	return &Message{MsgType: MsgTSerial}
}

// NewSerialResponse creates a new Serial response
func NewSerialResponse(serial uint32, err error) *Message {
	return (&Message{MsgType: MsgTSerial, Serial: serial}).setErr(err)
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{MsgType: MsgTInfo}
}

// NewInfoResponse creates a new Info response
func NewInfoResponse(areas []store.AreaInfo, err error) *Message {
	return (&Message{MsgType: MsgTInfo, Areas: areas}).setErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint64(code),
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTGet:
		return "get"
	case MsgTSet:
		return "set"
	case MsgTDelete:
		return "delete"
	case MsgTList:
		return "list"
	case MsgTWait:
		return "wait"
	case MsgTSerial:
		return "serial"
	case MsgTInfo:
		return "info"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "get":
		*t = MsgTGet
	case "set":
		*t = MsgTSet
	case "delete":
		*t = MsgTDelete
	case "list":
		*t = MsgTList
	case "wait":
		*t = MsgTWait
	case "serial":
		*t = MsgTSerial
	case "info":
		*t = MsgTInfo
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTGet    // Get a property value
	MsgTSet    // Add or replace a property
	MsgTDelete // Delete a property
	MsgTList   // List all readable properties
	MsgTWait   // Wait for a property to change
	MsgTSerial // Read the global serial
	MsgTInfo   // Describe the property areas
)
