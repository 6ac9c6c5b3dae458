package emblemgrpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/logs"
	"github.com/blockberries/emblem/server"
	"github.com/blockberries/emblem/types"
)

// Compile-time interface check.
var _ ApplicationServer = (*GRPCServer)(nil)

// GRPCServer exposes a vault application as a gRPC service. Calls go
// through a server.Server, so lifecycle ordering is enforced on the
// application side too.
type GRPCServer struct {
	srv    *server.Server
	logger logs.Logger
}

// NewGRPCServer creates a gRPC server wrapping the given application.
func NewGRPCServer(app emblem.Lifecycle, logger logs.Logger) *GRPCServer {
	if logger == nil {
		logger = logs.Nop
	}
	return &GRPCServer{
		srv:    server.New(app, server.WithLogger(logger)),
		logger: logger,
	}
}

// Register adds the service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterApplicationServer(gs, s)
}

// NewServer returns a grpc.Server with the service registered and
// calls logged at debug level.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.UnaryInterceptor(s.logCalls))
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Serve serves on lis until the listener fails or ctx is done, then
// stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener, opts ...grpc.ServerOption) error {
	gs := s.NewServer(opts...)
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			gs.GracefulStop()
		case <-stopped:
		}
	}()
	err := gs.Serve(lis)
	close(stopped)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Server returns the underlying server for advanced use.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

func (s *GRPCServer) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn("%s failed after %s: %v", info.FullMethod, time.Since(start), err)
	} else {
		s.logger.Debug("%s took %s", info.FullMethod, time.Since(start))
	}
	return resp, err
}

// toStatus converts a HaltError into its wire form.
func toStatus(err error) error {
	if h, ok := emblem.IsHalt(err); ok {
		return haltStatus(h)
	}
	return err
}

// --- Lifecycle RPCs ---

func (s *GRPCServer) Handshake(ctx context.Context, req *types.HandshakeRequest) (*types.HandshakeResponse, error) {
	resp, err := s.srv.Handshake(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCServer) CheckTx(ctx context.Context, req *CheckTxRequest) (*types.GateVerdict, error) {
	verdict, err := s.srv.CheckTx(ctx, req.Tx, req.Context)
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (s *GRPCServer) ExecuteBlock(ctx context.Context, block *types.FinalizedBlock) (*types.BlockOutcome, error) {
	outcome, err := s.srv.ExecuteBlock(ctx, *block)
	if err != nil {
		return nil, toStatus(err)
	}
	return &outcome, nil
}

func (s *GRPCServer) Commit(ctx context.Context, _ *CommitRequest) (*types.CommitResult, error) {
	result, err := s.srv.Commit(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &result, nil
}

func (s *GRPCServer) Query(ctx context.Context, req *types.StateQuery) (*types.StateQueryResult, error) {
	result, err := s.srv.Query(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Simulator RPC ---

func (s *GRPCServer) Simulate(ctx context.Context, req *SimulateRequest) (*types.TxOutcome, error) {
	outcome, err := s.srv.Simulate(ctx, req.Tx)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}
