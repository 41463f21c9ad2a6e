package client

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/ValentinKolb/sysprop/rpc/serializer"
	"github.com/ValentinKolb/sysprop/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke is a helper function used for all RPC Clients to send requests
// It returns the response message, or the error carried by an error response.
// extra is passed to the transport for requests that block on the server.
// This method also checks if the type of the response is the expected type
func (a *rpcClientAdapter) invoke(req *common.Message, extra time.Duration) (*common.Message, error) {
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := a.transport.Send(reqBytes, extra)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC IStoreAdapter - Error: %s", err)
	}

	// Error responses keep their return code
	if err := resp.ToError(); err != nil {
		return resp, err
	}

	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC IStoreAdapter - Unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
