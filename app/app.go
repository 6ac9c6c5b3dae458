// Package app is the vault chain's block application. It runs the
// vault and asset registry programs on the ledger runtime and persists
// committed state in a ledger.Store.
//
// Every transaction of a block executes as one atomic unit against a
// staged overlay; Commit writes the overlay's diff in a single batch.
// Queries and simulations read the last committed state.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/config"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/logs"
	"github.com/blockberries/emblem/program"
	"github.com/blockberries/emblem/registry"
	"github.com/blockberries/emblem/types"
)

// Compile-time interface checks.
var (
	_ emblem.Lifecycle   = (*App)(nil)
	_ emblem.Simulator   = (*App)(nil)
	_ emblem.Application = (*App)(nil)
)

// staged is the result of ExecuteBlock awaiting Commit.
type staged struct {
	height  uint64
	time    types.Timestamp
	appHash types.AppHash
	ops     []ledger.WriteOp
}

// App implements emblem.Application.
type App struct {
	mu      sync.RWMutex
	store   ledger.Store
	runtime *ledger.Runtime
	program program.Config
	logger  logs.Logger
	now     func() time.Time

	maxTxBytes int
	retain     uint64

	// Last committed block.
	height    uint64
	blockTime types.Timestamp
	appHash   types.AppHash

	staged *staged
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l logs.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the wall clock used by simulations.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an application over store, resuming from its last
// commit.
func New(store ledger.Store, cfg config.AppConfig, opts ...Option) (*App, error) {
	pc, err := cfg.Program()
	if err != nil {
		return nil, err
	}
	last, err := store.LastCommit()
	if err != nil {
		return nil, err
	}
	a := &App{
		store:      store,
		program:    pc,
		logger:     logs.Nop,
		now:        time.Now,
		maxTxBytes: cfg.MaxTxBytes,
		retain:     cfg.RetainBlocks,
		height:     last.Height,
		appHash:    last.AppHash,
		runtime: ledger.NewRuntime(
			program.New(pc),
			registry.New(pc.RegistryProgramID),
		),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// ProgramConfig returns the vault program deployment the app runs.
func (a *App) ProgramConfig() program.Config { return a.program }

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (a *App) Handshake(_ context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	caps := types.CapSimulation

	if req.LastCommitted == nil {
		if a.height == 0 && req.Genesis != nil {
			if err := a.initGenesis(req.Genesis); err != nil {
				return types.HandshakeResponse{}, err
			}
		}
		h := a.appHash
		return types.HandshakeResponse{AppHash: &h, Capabilities: caps}, nil
	}

	h := a.appHash
	resp := types.HandshakeResponse{AppHash: &h, Capabilities: caps}
	if a.height > 0 {
		resp.LastBlock = &types.BlockID{Height: a.height}
	}
	return resp, nil
}

// initGenesis funds the genesis accounts and commits them at height 0.
func (a *App) initGenesis(doc *types.GenesisDoc) error {
	if doc.ConsensusParams.MaxTxBytes > 0 {
		a.maxTxBytes = int(doc.ConsensusParams.MaxTxBytes)
	}
	var gs types.GenesisState
	if len(doc.AppState) > 0 {
		if err := json.Unmarshal(doc.AppState, &gs); err != nil {
			return fmt.Errorf("genesis app state: %w", err)
		}
	}
	view := ledger.NewStateView(a.store)
	for addr, lamports := range gs.Balances {
		key, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return fmt.Errorf("genesis balance %q: %w", addr, err)
		}
		view.SetAccount(key, &ledger.Account{Lamports: lamports, Owner: solana.SystemProgramID})
	}
	ops := view.Diff()
	hash, err := ledger.NextAppHash(types.AppHash{}, 0, ops)
	if err != nil {
		return err
	}
	if err := a.store.Commit(ops, ledger.CommitInfo{Height: 0, AppHash: hash}); err != nil {
		return fmt.Errorf("commit genesis: %w", err)
	}
	a.appHash = hash
	a.blockTime = doc.GenesisTime
	a.logger.Info("genesis chain=%s accounts=%d app_hash=%x", doc.ChainID, len(ops), hash[:8])
	return nil
}

func (a *App) CheckTx(_ context.Context, raw types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	if len(raw) == 0 {
		return reject(emblem.ErrInvalidTransaction, "empty transaction"), nil
	}
	a.mu.RLock()
	limit := a.maxTxBytes
	a.mu.RUnlock()
	if limit > 0 && len(raw) > limit {
		return reject(emblem.ErrInvalidTransaction, fmt.Sprintf("transaction is %d bytes (max %d)", len(raw), limit)), nil
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return reject(emblem.ErrInvalidTransaction, err.Error()), nil
	}
	if err := ledger.Validate(tx); err != nil {
		return types.GateVerdict{Code: emblem.CodeOf(err), Info: err.Error()}, nil
	}
	if _, err := ledger.CheckNonce(a.store, tx); err != nil {
		if code := emblem.CodeOf(err); code != emblem.CodeInternal {
			return types.GateVerdict{Code: code, Info: err.Error()}, nil
		}
		return types.GateVerdict{}, fmt.Errorf("check tx: %w", err)
	}
	return types.GateVerdict{Sender: tx.FeePayer().String(), Nonce: tx.Message.Nonce}, nil
}

func reject(e *emblem.Error, info string) types.GateVerdict {
	return types.GateVerdict{Code: e.Code, Info: info}
}

func (a *App) ExecuteBlock(_ context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	a.mu.RLock()
	prevHeight, prevHash := a.height, a.appHash
	a.mu.RUnlock()

	if prevHeight > 0 && block.Height != prevHeight+1 {
		return types.BlockOutcome{}, emblem.NewHaltError(block.Height,
			fmt.Sprintf("expected height %d after %d", prevHeight+1, prevHeight))
	}

	view := ledger.NewStateView(a.store)
	env := ledger.Env{Height: block.Height, Time: block.Time}
	outcomes := make([]types.TxOutcome, len(block.Txs))
	failed := 0
	for i, raw := range block.Txs {
		outcome, err := a.executeTx(view, uint32(i), raw, env)
		if err != nil {
			return types.BlockOutcome{}, fmt.Errorf("block %d tx %d: %w", block.Height, i, err)
		}
		if !outcome.OK() {
			failed++
		}
		outcomes[i] = outcome
	}

	ops := view.Diff()
	hash, err := ledger.NextAppHash(prevHash, block.Height, ops)
	if err != nil {
		return types.BlockOutcome{}, fmt.Errorf("block %d app hash: %w", block.Height, err)
	}

	a.mu.Lock()
	a.staged = &staged{height: block.Height, time: block.Time, appHash: hash, ops: ops}
	a.mu.Unlock()

	a.logger.Debug("executed block height=%d txs=%d failed=%d writes=%d", block.Height, len(block.Txs), failed, len(ops))
	return types.BlockOutcome{
		TxOutcomes: outcomes,
		BlockEvents: []types.Event{types.NewEvent("block_executed",
			"height", fmt.Sprint(block.Height),
			"txs", fmt.Sprint(len(block.Txs)),
			"failed", fmt.Sprint(failed),
		)},
		AppHash: hash,
	}, nil
}

func (a *App) Commit(_ context.Context) (types.CommitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.staged
	if s == nil {
		return types.CommitResult{}, fmt.Errorf("commit without executed block")
	}
	if err := a.store.Commit(s.ops, ledger.CommitInfo{Height: s.height, AppHash: s.appHash}); err != nil {
		return types.CommitResult{}, emblem.NewHaltError(s.height, fmt.Sprintf("persist state: %v", err))
	}
	a.height, a.blockTime, a.appHash = s.height, s.time, s.appHash
	a.staged = nil
	a.logger.Info("committed height=%d writes=%d app_hash=%x", s.height, len(s.ops), s.appHash[:8])

	retain := uint64(0)
	if a.retain > 0 && a.height > a.retain {
		retain = a.height - a.retain
	}
	return types.CommitResult{RetainHeight: retain}, nil
}

// ---------------------------------------------------------------------------
// Simulator
// ---------------------------------------------------------------------------

// Simulate runs tx on a throwaway overlay of committed state, at the
// next height, using the later of the last block time and the wall
// clock.
func (a *App) Simulate(_ context.Context, raw types.Tx) (types.TxOutcome, error) {
	a.mu.RLock()
	env := ledger.Env{Height: a.height + 1, Time: a.blockTime}
	a.mu.RUnlock()
	if wall := types.TimeToTimestamp(a.now()); wall.Seconds > env.Time.Seconds {
		env.Time = wall
	}
	return a.executeTx(ledger.NewStateView(a.store), 0, raw, env)
}

// ---------------------------------------------------------------------------
// Internal: transaction execution
// ---------------------------------------------------------------------------

func (a *App) executeTx(view *ledger.StateView, index uint32, raw types.Tx, env ledger.Env) (types.TxOutcome, error) {
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return types.TxOutcome{Index: index, Code: emblem.ErrInvalidTransaction.Code, Info: err.Error()}, nil
	}
	r, err := a.runtime.Execute(view, tx, env)
	if err != nil {
		return types.TxOutcome{}, err
	}
	if r.Err != nil {
		hash := types.TxHash(raw)
		a.logger.Debug("tx %x failed: %v", hash[:8], r.Err)
		return types.TxOutcome{Index: index, Code: emblem.CodeOf(r.Err), Info: r.Err.Error()}, nil
	}
	return types.TxOutcome{Index: index, Data: r.ReturnData, Events: r.Events}, nil
}
