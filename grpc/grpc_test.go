package emblemgrpc_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/app"
	"github.com/blockberries/emblem/config"
	emblemgrpc "github.com/blockberries/emblem/grpc"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/program"
	emblemtest "github.com/blockberries/emblem/testing"
	"github.com/blockberries/emblem/types"
)

// startServer serves gs on a random port until the test ends.
func startServer(t *testing.T, gs *emblemgrpc.GRPCServer) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return lis.Addr().String()
}

func dial(t *testing.T, addr string) *emblemgrpc.Client {
	t.Helper()
	client, err := emblemgrpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func signedTx(t *testing.T, payer solana.PrivateKey, nonce uint64, ixs ...types.Instruction) types.Tx {
	t.Helper()
	tx := types.NewTransaction(nonce, ixs...)
	require.NoError(t, tx.Sign(payer))
	raw, err := tx.Encode()
	require.NoError(t, err)
	return raw
}

func newVaultApp(t *testing.T) *app.App {
	t.Helper()
	store, err := ledger.OpenBadger(ledger.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	a, err := app.New(store, config.Default().App, app.WithClock(func() time.Time {
		return emblemtest.GenesisTime
	}))
	require.NoError(t, err)
	return a
}

func TestGRPC_VaultRoundTrip(t *testing.T) {
	a := newVaultApp(t)
	client := dial(t, startServer(t, emblemgrpc.NewGRPCServer(a, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user := emblemtest.NewKey(t)
	admin := emblemtest.NewKey(t)
	signer := emblemtest.NewKey(t)
	doc, err := emblemtest.FundedGenesis(emblemtest.FundedLamports, user.PublicKey(), admin.PublicKey())
	require.NoError(t, err)

	resp, err := client.Handshake(ctx, types.HandshakeRequest{Genesis: &doc})
	require.NoError(t, err)
	require.NotNil(t, resp.AppHash)
	require.True(t, client.Capabilities().Has(types.CapSimulation))

	builder := program.Builder{ProgramID: a.ProgramConfig().ProgramID}
	initIx, err := builder.Initialize("ipfs://", signer.PublicKey())
	require.NoError(t, err)
	collIx, err := builder.CreateCollection("Art")
	require.NoError(t, err)
	setup := signedTx(t, admin, 1, initIx, collIx)
	args := types.VaultArgs{
		CollectionType:  "Art",
		ExternalTokenID: "42",
		Price:           10,
		Timestamp:       emblemtest.BlockTime(2).Unix(),
	}
	mintIxs, err := builder.ApprovedMint(signer, args)
	require.NoError(t, err)
	mint := signedTx(t, user, 2, mintIxs...)

	v, err := client.CheckTx(ctx, mint, types.MempoolFirstSeen)
	require.NoError(t, err)
	assert.True(t, v.Accepted(), v.Info)

	for i, tx := range []types.Tx{setup, mint} {
		outcome, err := client.ExecuteBlock(ctx, emblemtest.MakeBlock(uint64(i+1), tx))
		require.NoError(t, err)
		require.True(t, outcome.TxOutcomes[0].OK(), outcome.TxOutcomes[0].Info)
		_, err = client.Commit(ctx)
		require.NoError(t, err)
	}

	key, err := app.EncodeVaultKey("Art", "42")
	require.NoError(t, err)
	res, err := client.Query(ctx, types.StateQuery{Path: app.PathVaultOwner, Data: key})
	require.NoError(t, err)
	assert.Equal(t, user.PublicKey().Bytes(), res.Value)
	assert.Equal(t, uint64(2), res.Height)

	sim := client.AsSimulator()
	require.NotNil(t, sim)
	queryIx, err := builder.Query(types.QueryIsClaimed, types.VaultKey{CollectionType: "Art", ExternalTokenID: "42"})
	require.NoError(t, err)
	out, err := sim.Simulate(ctx, signedTx(t, user, 3, queryIx))
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, out.Data)
}

func TestGRPC_HaltCrossesTheWire(t *testing.T) {
	mock := &emblemtest.MockApp{
		CommitFn: func(context.Context) (types.CommitResult, error) {
			return types.CommitResult{}, emblem.NewHaltError(7, "disk full")
		},
	}
	client := dial(t, startServer(t, emblemgrpc.NewGRPCServer(mock, nil)))
	ctx := context.Background()

	_, err := client.Handshake(ctx, types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "test"}})
	require.NoError(t, err)
	_, err = client.ExecuteBlock(ctx, emblemtest.MakeEmptyBlock(7))
	require.NoError(t, err)

	_, err = client.Commit(ctx)
	h, ok := emblem.IsHalt(err)
	require.True(t, ok, "expected halt, got %v", err)
	assert.Equal(t, uint64(7), h.Height)
	assert.Equal(t, "disk full", h.Reason)
}

func TestGRPC_PlainErrorsStayPlain(t *testing.T) {
	var recovered atomic.Bool
	mock := &emblemtest.MockApp{
		ExecuteBlockFn: func(context.Context, types.FinalizedBlock) (types.BlockOutcome, error) {
			if !recovered.Load() {
				return types.BlockOutcome{}, errors.New("transient")
			}
			return types.BlockOutcome{AppHash: types.AppHash{0x02}}, nil
		},
	}
	client := dial(t, startServer(t, emblemgrpc.NewGRPCServer(mock, nil)))
	ctx := context.Background()

	_, err := client.Handshake(ctx, types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "test"}})
	require.NoError(t, err)
	_, err = client.ExecuteBlock(ctx, emblemtest.MakeEmptyBlock(1))
	require.Error(t, err)
	_, ok := emblem.IsHalt(err)
	assert.False(t, ok)

	// The failed execute leaves the client ready for a retry.
	recovered.Store(true)
	_, err = client.ExecuteBlock(ctx, emblemtest.MakeEmptyBlock(1))
	require.NoError(t, err)
}

func TestGRPC_NoSimulatorWithoutCapability(t *testing.T) {
	mock := &emblemtest.MockApp{}
	client := dial(t, startServer(t, emblemgrpc.NewGRPCServer(mock, nil)))

	_, err := client.Handshake(context.Background(), types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "test"}})
	require.NoError(t, err)
	assert.Nil(t, client.AsSimulator())
	assert.Equal(t, int64(1), mock.HandshakeCalls.Load())
}
