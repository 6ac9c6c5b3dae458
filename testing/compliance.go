package emblemtest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/types"
)

// garbageTx does not decode as a transaction.
var garbageTx = types.Tx{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

// RunComplianceSuite checks the lifecycle behavior every vault chain
// application must show: deterministic app hashes, per-transaction
// outcomes and concurrent reads.
//
// The factory function must return a fresh application instance over
// empty state on every call.
func RunComplianceSuite(t *testing.T, factory func() emblem.Lifecycle) {
	t.Helper()

	fresh := func(t *testing.T) *Harness {
		h := NewHarness(t, factory())
		h.GenesisDefault()
		return h
	}

	t.Run("genesis_handshake", func(t *testing.T) {
		resp := NewHarness(t, factory()).GenesisDefault()
		assert.Nil(t, resp.LastBlock, "genesis handshake resumed a block")
		assert.NotNil(t, resp.AppHash, "genesis handshake returned no app hash")
	})

	t.Run("app_hash_chains", func(t *testing.T) {
		h := fresh(t)
		seen := map[types.AppHash]uint64{}
		for i := uint64(1); i <= 5; i++ {
			outcome := h.ExecuteAndCommit(MakeEmptyBlock(i))
			require.NotEqual(t, types.AppHash{}, outcome.AppHash, "height %d", i)
			prev, dup := seen[outcome.AppHash]
			require.False(t, dup, "height %d repeats the app hash of %d", i, prev)
			seen[outcome.AppHash] = i
		}
	})

	t.Run("replicas_agree", func(t *testing.T) {
		payer := NewKey(t)
		signed := types.NewTransaction(1, types.Instruction{ProgramID: payer.PublicKey()})
		require.NoError(t, signed.Sign(payer))
		raw, err := signed.Encode()
		require.NoError(t, err)

		blocks := []types.FinalizedBlock{
			MakeEmptyBlock(1),
			MakeBlock(2, garbageTx),
			MakeBlock(3, raw, garbageTx),
		}
		h1, h2 := fresh(t), fresh(t)
		for _, b := range blocks {
			o1 := h1.ExecuteAndCommit(b)
			o2 := h2.ExecuteAndCommit(b)
			require.Equal(t, o1.AppHash, o2.AppHash, "height %d", b.Height)
			require.Equal(t, o1.TxOutcomes, o2.TxOutcomes, "height %d", b.Height)
		}
	})

	t.Run("concurrent_reads", func(t *testing.T) {
		h := fresh(t)
		h.ExecuteAndCommit(MakeEmptyBlock(1))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := h.Server().CheckTx(context.Background(), garbageTx, types.MempoolFirstSeen)
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := h.Server().Query(context.Background(), types.StateQuery{Path: "/unknown"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
	})

	t.Run("query_reports_committed_height", func(t *testing.T) {
		h := fresh(t)
		h.ExecuteAndCommit(MakeEmptyBlock(1))
		h.ExecuteAndCommit(MakeEmptyBlock(2))
		assert.Equal(t, uint64(2), h.Query("/unknown", nil).Height)
	})

	t.Run("tx_outcome_indices", func(t *testing.T) {
		h := fresh(t)
		txs := []types.Tx{garbageTx, {0x02}, {0x03, 0x04}}
		outcome := h.ExecuteAndCommit(MakeBlock(1, txs...))
		require.Len(t, outcome.TxOutcomes, len(txs))
		for i, o := range outcome.TxOutcomes {
			assert.Equal(t, uint32(i), o.Index)
		}
	})

	t.Run("undecodable_tx_fails_alone", func(t *testing.T) {
		h := fresh(t)
		assert.False(t, h.CheckTx(garbageTx).Accepted(), "CheckTx accepted an undecodable transaction")

		outcome := h.ExecuteAndCommit(MakeBlock(1, garbageTx))
		require.Len(t, outcome.TxOutcomes, 1)
		assert.False(t, outcome.TxOutcomes[0].OK())
		assert.NotEqual(t, emblem.CodeInternal, outcome.TxOutcomes[0].Code, "undecodable transaction needs a stable code")
	})
}
