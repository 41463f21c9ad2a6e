package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse(store.RetCNotInitialized, "handler: store is nil")
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`sysprop_rpc_requests_total{type=%q}`, req.MsgType)).Inc()

	switch req.MsgType {
	case common.MsgTGet:
		val, ok, err := s.Get(req.Name)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTSet:
		err := s.Set(req.Name, req.Value)
		if err != nil {
			Logger.Warningf("set %s failed: %v", req.Name, err)
		}
		return common.NewSetResponse(err)
	case common.MsgTDelete:
		ok, err := s.Delete(req.Name)
		return common.NewDeleteResponse(ok, err)
	case common.MsgTList:
		props, err := s.List()
		if props == nil && err == nil {
			props = []store.Property{}
		}
		return common.NewListResponse(props, err)
	case common.MsgTWait:
		timeout := time.Duration(req.TimeoutMs) * time.Millisecond
		serial, ok, err := s.Wait(req.Name, req.Serial, timeout)
		return common.NewWaitResponse(serial, ok, err)
	case common.MsgTSerial:
		serial, err := s.Serial()
		return common.NewSerialResponse(serial, err)
	case common.MsgTInfo:
		areas, err := s.GetAreaInfo()
		return common.NewInfoResponse(areas, err)
	default:
		return common.NewErrorResponse(store.RetCUnsupportedOperation,
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
