package local

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem/app"
	"github.com/blockberries/emblem/config"
	"github.com/blockberries/emblem/ledger"
	emblemtest "github.com/blockberries/emblem/testing"
	"github.com/blockberries/emblem/types"
)

func newConnection(t *testing.T) *Connection {
	t.Helper()
	store, err := ledger.OpenBadger(ledger.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	a, err := app.New(store, config.Default().App)
	require.NoError(t, err)
	conn := NewConnection(a, nil)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLocalConnection_FullCycle(t *testing.T) {
	conn := newConnection(t)
	payer := emblemtest.NewKey(t)
	doc, err := emblemtest.FundedGenesis(250, payer.PublicKey())
	require.NoError(t, err)

	_, err = conn.Handshake(context.Background(), types.HandshakeRequest{Genesis: &doc})
	require.NoError(t, err)
	assert.True(t, conn.Capabilities().Has(types.CapSimulation))
	assert.NotNil(t, conn.AsSimulator())

	outcome, err := conn.ExecuteBlock(context.Background(), emblemtest.MakeEmptyBlock(1))
	require.NoError(t, err)
	assert.Empty(t, outcome.TxOutcomes)
	_, err = conn.Commit(context.Background())
	require.NoError(t, err)

	result, err := conn.Query(context.Background(), types.StateQuery{
		Path: app.PathBalance,
		Data: payer.PublicKey().Bytes(),
	})
	require.NoError(t, err)
	require.True(t, result.Found(), result.Info)
	assert.Equal(t, uint64(250), binary.BigEndian.Uint64(result.Value))
	assert.Equal(t, uint64(1), result.Height)
}

func TestLocalConnection_CheckTxConcurrent(t *testing.T) {
	conn := newConnection(t)
	_, err := conn.Handshake(context.Background(), types.HandshakeRequest{Genesis: &types.GenesisDoc{ChainID: "test"}})
	require.NoError(t, err)

	payer := emblemtest.NewKey(t)
	tx := types.NewTransaction(1, types.Instruction{ProgramID: payer.PublicKey()})
	require.NoError(t, tx.Sign(payer))
	raw, err := tx.Encode()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := conn.CheckTx(context.Background(), raw, types.MempoolFirstSeen)
			assert.NoError(t, err)
			assert.True(t, v.Accepted(), v.Info)
		}()
	}
	wg.Wait()
}
