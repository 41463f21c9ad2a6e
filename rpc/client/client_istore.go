package client

import (
	"time"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/ValentinKolb/sysprop/rpc/serializer"
	"github.com/ValentinKolb/sysprop/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a config, a transport and a serializer as parameters
// It returns a store.IStore talking to the property service and an error
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Get(name string) (value string, found bool, err error) {
	resp, err := i.invoke(common.NewGetRequest(name), 0)
	if err != nil {
		return "", false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) Set(name, value string) (err error) {
	_, err = i.invoke(common.NewSetRequest(name, value), 0)
	return err
}

func (i *rpcStore) Delete(name string) (found bool, err error) {
	resp, err := i.invoke(common.NewDeleteRequest(name), 0)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) List() (props []store.Property, err error) {
	resp, err := i.invoke(common.NewListRequest(), 0)
	if err != nil {
		return nil, err
	}
	return resp.Props, nil
}

// Wait extends the transport timeout by the wait timeout. Waiting forever
// disables the transport timeout.
func (i *rpcStore) Wait(name string, oldSerial uint32, timeout time.Duration) (newSerial uint32, ok bool, err error) {
	extra := timeout
	timeoutMs := uint64(max(timeout.Milliseconds(), 1))
	if timeout <= 0 {
		timeoutMs, extra = 0, -1
	}
	resp, err := i.invoke(common.NewWaitRequest(name, oldSerial, timeoutMs), extra)
	if err != nil {
		return 0, false, err
	}
	return resp.Serial, resp.Ok, nil
}

func (i *rpcStore) Serial() (serial uint32, err error) {
	resp, err := i.invoke(common.NewSerialRequest(), 0)
	if err != nil {
		return 0, err
	}
	return resp.Serial, nil
}

func (i *rpcStore) GetAreaInfo() (info []store.AreaInfo, err error) {
	resp, err := i.invoke(common.NewInfoRequest(), 0)
	if err != nil {
		return nil, err
	}
	return resp.Areas, nil
}
