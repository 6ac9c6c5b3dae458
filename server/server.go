package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/logs"
	"github.com/blockberries/emblem/types"
)

// Server wraps a vault application with lifecycle enforcement and
// capability routing. The consensus engine interacts with the
// application exclusively through this server.
type Server struct {
	app    emblem.Lifecycle
	guard  *LifecycleGuard
	caps   types.Capabilities
	logger logs.Logger

	// Nil if the application does not implement it.
	simulator emblem.Simulator

	mu          sync.Mutex
	lastOutcome *types.BlockOutcome
	halt        *emblem.HaltError
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logs.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new Server wrapping the given application.
func New(app emblem.Lifecycle, opts ...Option) *Server {
	s := &Server{
		app:    app,
		guard:  NewLifecycleGuard(),
		logger: logs.Nop,
	}
	s.simulator, _ = app.(emblem.Simulator)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handshake performs the startup handshake, validates capability
// declarations, and transitions the state machine to Ready.
func (s *Server) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	s.guard.AcquireHandshake()

	resp, err := s.app.Handshake(ctx, req)
	if err != nil {
		s.guard.FailHandshake()
		return resp, err
	}

	if err := s.discoverCapabilities(resp.Capabilities); err != nil {
		s.guard.FailHandshake()
		return resp, err
	}

	s.caps = resp.Capabilities
	s.guard.CompleteHandshake()
	if resp.LastBlock != nil {
		s.logger.Info("handshake resumed at height %d caps=%s", resp.LastBlock.Height, s.caps)
	} else {
		s.logger.Info("handshake from genesis caps=%s", s.caps)
	}
	return resp, nil
}

// CheckTx gate-checks a transaction for mempool admission.
// Safe for concurrent use.
func (s *Server) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	s.guard.CheckConcurrent()
	return s.app.CheckTx(ctx, tx, mctx)
}

// ExecuteBlock deterministically executes a finalized block. Once the
// application has halted it returns the recorded HaltError.
func (s *Server) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if err := s.halted(); err != nil {
		return types.BlockOutcome{}, err
	}
	s.guard.AcquireExecute()

	outcome, err := s.app.ExecuteBlock(ctx, block)
	if err != nil {
		if h, ok := emblem.IsHalt(err); ok {
			s.recordHalt(h)
			return outcome, err
		}
		s.guard.FailExecute()
		return outcome, err
	}

	s.mu.Lock()
	s.lastOutcome = &outcome
	s.mu.Unlock()

	s.guard.CompleteExecute()
	return outcome, nil
}

// Commit persists state changes from the last ExecuteBlock.
func (s *Server) Commit(ctx context.Context) (types.CommitResult, error) {
	if err := s.halted(); err != nil {
		return types.CommitResult{}, err
	}
	s.guard.AcquireCommit()

	result, err := s.app.Commit(ctx)

	s.mu.Lock()
	s.lastOutcome = nil
	s.mu.Unlock()

	if h, ok := emblem.IsHalt(err); ok {
		s.recordHalt(h)
		return result, err
	}
	s.guard.CompleteCommit()
	return result, err
}

// Query reads application state. Safe for concurrent use.
func (s *Server) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	s.guard.CheckConcurrent()
	return s.app.Query(ctx, req)
}

// Simulate delegates to the application's Simulator.
// Safe for concurrent use.
func (s *Server) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	if s.simulator == nil {
		return types.TxOutcome{}, fmt.Errorf("emblem: Simulator not supported")
	}
	s.guard.CheckConcurrent()
	return s.simulator.Simulate(ctx, tx)
}

// Capabilities returns the application's declared capabilities.
// Only valid after Handshake completes.
func (s *Server) Capabilities() types.Capabilities {
	return s.caps
}

// AsSimulator returns the Simulator interface, or nil if the
// application did not declare CapSimulation.
func (s *Server) AsSimulator() emblem.Simulator {
	if s.caps.Has(types.CapSimulation) {
		return s.simulator
	}
	return nil
}

// LastOutcome returns the BlockOutcome held between ExecuteBlock and
// Commit, or nil.
func (s *Server) LastOutcome() *types.BlockOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// Halt returns the HaltError that stopped the application, or nil.
func (s *Server) Halt() *emblem.HaltError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halt
}

// Close is a no-op for the server wrapper.
func (s *Server) Close() error { return nil }

func (s *Server) halted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halt != nil {
		return s.halt
	}
	return nil
}

func (s *Server) recordHalt(h *emblem.HaltError) {
	s.mu.Lock()
	s.halt = h
	s.lastOutcome = nil
	s.mu.Unlock()
	s.guard.Halt()
	s.logger.Error("application halted: %v", h)
}

// discoverCapabilities checks the declared capabilities against the
// optional interfaces the application implements.
func (s *Server) discoverCapabilities(declared types.Capabilities) error {
	if declared.Has(types.CapSimulation) && s.simulator == nil {
		return fmt.Errorf("emblem: app declared CapSimulation but does not implement Simulator")
	}
	if !declared.Has(types.CapSimulation) && s.simulator != nil {
		s.logger.Warn("app implements Simulator but did not declare it; capability will not be used")
	}
	return nil
}
