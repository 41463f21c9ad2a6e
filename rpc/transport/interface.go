package transport

import (
	"time"

	"github.com/ValentinKolb/sysprop/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves requests until Close is called
	Listen(config common.ServerConfig) error
	// Close stops listening. Listen returns nil afterwards.
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	// extra extends the configured timeout for requests that block on the
	// server, e.g. waits. A negative extra disables the timeout.
	Send(req []byte, extra time.Duration) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}

// Deadline returns the response timeout for a request: the configured
// timeout plus extra. Zero means no timeout.
func Deadline(config common.ClientConfig, extra time.Duration) time.Duration {
	if extra < 0 || config.TimeoutSecond <= 0 {
		return 0
	}
	return time.Duration(config.TimeoutSecond)*time.Second + extra
}
