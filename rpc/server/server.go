package server

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/store/lstore"
	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/ValentinKolb/sysprop/rpc/serializer"
	"github.com/ValentinKolb/sysprop/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// drainTimeout bounds how long Close waits for running requests before the areas are unmapped
const drainTimeout = 5 * time.Second

// NewRPCServer creates the property service
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		unix.NewUnixDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewIStoreServerAdapter(),
		done:       make(chan struct{}),
	}
}

// RPCServer owns the property areas and serves requests against them. It is
// the single writer of the areas it created.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	props      *lstore.SystemProperties
	serving    atomic.Bool
	done       chan struct{} // closed when Serve returns
}

// Init creates the property areas, restores persistent properties and
// registers the request handler. Serve calls it when it was not called before.
func (s *RPCServer) Init() error {
	if s.props != nil {
		return nil
	}
	common.InitLoggers(s.config.LogLevel)
	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())

	props := lstore.New(s.config.Properties)
	labelFailed, err := props.AreaInit("", nil)
	if err != nil {
		return fmt.Errorf("failed to initialise property areas: %w", err)
	}
	if labelFailed {
		if s.config.RequireLabel {
			_ = props.Close()
			return fmt.Errorf("%w: property areas in %s", store.ErrLabelFailed, s.config.Properties.Path)
		}
		Logger.Warningf("some property areas in %s could not be labelled", s.config.Properties.Path)
	}

	if s.config.LoadPersistent {
		if _, err := props.LoadPersistent(); err != nil {
			Logger.Errorf("failed to restore persistent properties: %v", err)
		}
	}

	s.props = props
	s.registerTransportHandler()
	Logger.Infof("property service setup completed successfully")
	return nil
}

// Serve initialises the server and blocks serving requests until Close is called.
func (s *RPCServer) Serve() error {
	if err := s.Init(); err != nil {
		return err
	}
	if !s.serving.CompareAndSwap(false, true) {
		return fmt.Errorf("property service is already serving")
	}
	defer close(s.done)
	return s.transport.Listen(s.config)
}

// Store returns the properties owned by the server, nil before Init.
func (s *RPCServer) Store() *lstore.SystemProperties {
	return s.props
}

// Close stops the transport, flushes persistent properties and unmaps the areas.
// Requests still blocked after drainTimeout (e.g. waits without timeout) keep
// the areas mapped, they are released when the process exits.
func (s *RPCServer) Close() error {
	err := s.transport.Close()
	if s.serving.Load() {
		select {
		case <-s.done:
		case <-time.After(drainTimeout):
			Logger.Warningf("requests still running after %s, leaving property areas mapped", drainTimeout)
			if s.props != nil {
				s.props.FlushPersistent()
			}
			return err
		}
	}
	if s.props != nil {
		s.props.FlushPersistent()
		if cerr := s.props.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ServeUntilSignal runs Serve and closes the server on SIGINT or SIGTERM.
func (s *RPCServer) ServeUntilSignal() error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigs:
		Logger.Infof("received %s, shutting down", sig)
		if err := s.Close(); err != nil {
			return err
		}
		select {
		case err := <-errCh:
			return err
		case <-time.After(drainTimeout):
			return nil
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		var msg common.Message
		var respMsg *common.Message

		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("failed to deserialize request: %s", err))
		} else {
			respMsg = s.adapter.Handle(&msg, s.props)
		}

		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError,
				fmt.Sprintf("failed to serialize response: %s", err)))
		}
		return val
	})
}
