// Package client implements the client side of the property service. It
// provides a store.IStore that forwards every operation to the service,
// for processes that may read the property areas but not write them.
//
// Errors reported by the service keep their store.RetCode, so
// errors.Is(err, store.ErrValueTooLong) works as with a local store.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{common.DefaultSocket},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	props, err := client.NewRPCStore(config, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  return err
//	}
//	err = props.Set("sys.powerctl", "reboot")
//
// Waits are executed by the service. The transport timeout of a wait request
// is extended by the wait timeout.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
