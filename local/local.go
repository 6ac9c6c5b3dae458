// Package local provides an in-process connection to the vault
// application.
//
// For an engine compiled into the same binary as the application, the
// adapter adds lifecycle enforcement and capability discovery with no
// serialization overhead.
package local

import (
	"context"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/logs"
	"github.com/blockberries/emblem/server"
	"github.com/blockberries/emblem/types"
)

// Compile-time interface check.
var _ emblem.Connection = (*Connection)(nil)

// Connection wraps a local Lifecycle implementation.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process connection wrapping app.
func NewConnection(app emblem.Lifecycle, logger logs.Logger) *Connection {
	return &Connection{srv: server.New(app, server.WithLogger(logger))}
}

func (c *Connection) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	return c.srv.Handshake(ctx, req)
}

func (c *Connection) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	return c.srv.CheckTx(ctx, tx, mctx)
}

func (c *Connection) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	return c.srv.ExecuteBlock(ctx, block)
}

func (c *Connection) Commit(ctx context.Context) (types.CommitResult, error) {
	return c.srv.Commit(ctx)
}

func (c *Connection) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	return c.srv.Query(ctx, req)
}

func (c *Connection) Capabilities() types.Capabilities {
	return c.srv.Capabilities()
}

func (c *Connection) AsSimulator() emblem.Simulator {
	return c.srv.AsSimulator()
}

func (c *Connection) Close() error { return nil }

// Server returns the underlying server for advanced use cases.
func (c *Connection) Server() *server.Server {
	return c.srv
}
