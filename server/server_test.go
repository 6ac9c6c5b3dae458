package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/types"
)

// testApp is a minimal application kept local to avoid an import
// cycle with emblem/testing.
type testApp struct {
	caps           types.Capabilities
	handshakeCalls int
	executeErr     error
	commitErr      error
	// When set, Commit signals entered and then waits for release.
	entered chan struct{}
	release chan struct{}
}

var (
	_ emblem.Lifecycle = (*testApp)(nil)
	_ emblem.Simulator = (*testApp)(nil)
)

func (a *testApp) Handshake(_ context.Context, _ types.HandshakeRequest) (types.HandshakeResponse, error) {
	a.handshakeCalls++
	return types.HandshakeResponse{Capabilities: a.caps}, nil
}

func (a *testApp) CheckTx(_ context.Context, _ types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	return types.GateVerdict{}, nil
}

func (a *testApp) ExecuteBlock(_ context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if a.executeErr != nil {
		return types.BlockOutcome{}, a.executeErr
	}
	outcomes := make([]types.TxOutcome, len(block.Txs))
	for i := range block.Txs {
		outcomes[i] = types.TxOutcome{Index: uint32(i)}
	}
	return types.BlockOutcome{TxOutcomes: outcomes, AppHash: types.AppHash{0x01}}, nil
}

func (a *testApp) Commit(_ context.Context) (types.CommitResult, error) {
	if a.release != nil {
		close(a.entered)
		<-a.release
	}
	return types.CommitResult{}, a.commitErr
}

func (a *testApp) Query(_ context.Context, _ types.StateQuery) (types.StateQueryResult, error) {
	return types.StateQueryResult{}, nil
}

func (a *testApp) Simulate(_ context.Context, _ types.Tx) (types.TxOutcome, error) {
	return types.TxOutcome{Data: []byte{1}}, nil
}

// lifecycleOnly hides the Simulator method of testApp.
type lifecycleOnly struct{ emblem.Lifecycle }

func genesis() types.HandshakeRequest {
	return types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "test"}}
}

func TestServer_Handshake(t *testing.T) {
	app := &testApp{caps: types.CapSimulation}
	srv := New(app)

	resp, err := srv.Handshake(context.Background(), genesis())
	require.NoError(t, err)
	assert.True(t, resp.Capabilities.Has(types.CapSimulation))
	assert.Equal(t, 1, app.handshakeCalls)
	assert.Equal(t, types.CapSimulation, srv.Capabilities())
}

func TestServer_ExecuteCommitCycle(t *testing.T) {
	srv := New(&testApp{})
	_, err := srv.Handshake(context.Background(), genesis())
	require.NoError(t, err)

	outcome, err := srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1, Txs: []types.Tx{{0x01}}})
	require.NoError(t, err)
	assert.Len(t, outcome.TxOutcomes, 1)
	assert.NotNil(t, srv.LastOutcome())

	_, err = srv.Commit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, srv.LastOutcome())
}

func TestServer_ExecuteErrorAllowsRetry(t *testing.T) {
	app := &testApp{executeErr: errors.New("transient")}
	srv := New(app)
	_, err := srv.Handshake(context.Background(), genesis())
	require.NoError(t, err)

	_, err = srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1})
	require.Error(t, err)
	assert.Nil(t, srv.Halt())

	app.executeErr = nil
	_, err = srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1})
	require.NoError(t, err)
}

func TestServer_HaltStopsBlocks(t *testing.T) {
	app := &testApp{commitErr: emblem.NewHaltError(1, "disk full")}
	srv := New(app)
	_, err := srv.Handshake(context.Background(), genesis())
	require.NoError(t, err)

	_, err = srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 1})
	require.NoError(t, err)
	_, err = srv.Commit(context.Background())
	h, ok := emblem.IsHalt(err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), h.Height)
	assert.Equal(t, h, srv.Halt())

	_, err = srv.ExecuteBlock(context.Background(), types.FinalizedBlock{Height: 2})
	_, ok = emblem.IsHalt(err)
	assert.True(t, ok, "execution after a halt must report the halt")

	// Queries remain served.
	_, err = srv.Query(context.Background(), types.StateQuery{Path: "/balance"})
	assert.NoError(t, err)
}

func TestServer_CheckTxConcurrent(t *testing.T) {
	srv := New(&testApp{})
	_, err := srv.Handshake(context.Background(), genesis())
	require.NoError(t, err)

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := srv.CheckTx(context.Background(), types.Tx{0x01}, types.MempoolFirstSeen)
			done <- err
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-done)
	}
}

func TestServer_SimulatorGating(t *testing.T) {
	undeclared := New(&testApp{})
	_, err := undeclared.Handshake(context.Background(), genesis())
	require.NoError(t, err)
	assert.Nil(t, undeclared.AsSimulator())

	declared := New(&testApp{caps: types.CapSimulation})
	_, err = declared.Handshake(context.Background(), genesis())
	require.NoError(t, err)
	require.NotNil(t, declared.AsSimulator())
	out, err := declared.Simulate(context.Background(), types.Tx{0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, out.Data)
}

func TestServer_DeclaredButMissingSimulator(t *testing.T) {
	app := &testApp{caps: types.CapSimulation}
	srv := New(lifecycleOnly{app})

	_, err := srv.Handshake(context.Background(), genesis())
	require.Error(t, err)

	// The failed handshake leaves the guard in Init.
	app.caps = 0
	_, err = srv.Handshake(context.Background(), genesis())
	require.NoError(t, err)
	_, err = srv.Simulate(context.Background(), types.Tx{0x01})
	assert.Error(t, err)
}

func TestServer_ReadsServedDuringCommit(t *testing.T) {
	app := &testApp{
		caps:    types.CapSimulation,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv := New(app)
	ctx := context.Background()
	_, err := srv.Handshake(ctx, genesis())
	require.NoError(t, err)
	_, err = srv.ExecuteBlock(ctx, types.FinalizedBlock{Height: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := srv.Commit(ctx)
		done <- err
	}()
	<-app.entered

	_, err = srv.Query(ctx, types.StateQuery{Path: "/vault"})
	assert.NoError(t, err)
	_, err = srv.CheckTx(ctx, nil, types.MempoolFirstSeen)
	assert.NoError(t, err)
	out, err := srv.Simulate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, out.Data)

	close(app.release)
	require.NoError(t, <-done)
}
