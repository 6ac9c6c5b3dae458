// Package emblem defines the block application boundary of the Emblem
// vault chain and the error taxonomy shared by its programs.
//
// The consensus engine drives an [Lifecycle] implementation; every
// transaction inside a finalized block is one atomic unit that either
// commits all of its effects or none of them. [Simulator] is optional
// and discovered via Go type assertion at handshake time.
package emblem

import (
	"context"

	"github.com/blockberries/emblem/types"
)

// Lifecycle is the interface the vault application implements for the
// consensus engine.
//
// The engine guarantees the following call order:
//  1. Handshake is called exactly once, before anything else.
//  2. ExecuteBlock(h) is called exactly once per committed height h.
//  3. Commit is called exactly once after each ExecuteBlock.
//  4. CheckTx, Query may be called concurrently at any time after Handshake.
type Lifecycle interface {
	// Handshake is called once on every startup.
	//
	// If LastCommitted is nil this is a fresh genesis and Genesis will
	// be populated; the application seeds balances from its AppState.
	Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error)

	// CheckTx performs the stateless admission checks of a transaction:
	// decoding, size limit and signer signatures.
	//
	// This method MUST be safe for concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error)

	// ExecuteBlock executes every transaction of a finalized block in
	// order, each as one atomic unit, using the block time as the
	// trusted clock.
	//
	// This method MUST NOT persist state; that happens in Commit.
	ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error)

	// Commit persists the state changes of the last ExecuteBlock in a
	// single all-or-nothing write.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query reads the last committed state.
	//
	// This method MUST be safe for concurrent use, including concurrent
	// with ExecuteBlock.
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// Simulator dry-runs a transaction against the last committed state.
// Read-only vault instructions (is_claimed, get_vault_owner, ...) are
// typically evaluated this way.
//
// Declared via: types.CapSimulation in HandshakeResponse.Capabilities
type Simulator interface {
	// Simulate executes tx without persisting any changes and returns
	// its outcome, including events and returned data.
	//
	// This method MUST be safe for concurrent use.
	Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error)
}

// Application embeds every interface the vault application supports.
type Application interface {
	Lifecycle
	Simulator
}

// Connection represents a transport-agnostic connection to the
// application. Both the gRPC client and the in-process adapter
// implement it.
type Connection interface {
	Lifecycle

	// Capabilities returns the capabilities discovered at handshake.
	// Must only be called after Handshake completes.
	Capabilities() types.Capabilities

	// AsSimulator returns the Simulator interface if available.
	AsSimulator() Simulator

	// Close terminates the connection.
	Close() error
}
