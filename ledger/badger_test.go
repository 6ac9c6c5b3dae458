package ledger

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem/types"
)

func openMem(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadger(BadgerOptions{InMemory: true, CacheSize: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_CommitAndRead(t *testing.T) {
	s := openMem(t)

	missing, err := s.GetAccount(addr(1))
	require.NoError(t, err)
	assert.Nil(t, missing)

	info := CommitInfo{Height: 3, AppHash: types.AppHash{7}}
	require.NoError(t, s.Commit([]WriteOp{
		{Address: addr(1), Account: &Account{Lamports: 42, Owner: solana.SystemProgramID}},
	}, info))

	// The earlier miss was cached; commit must have replaced it.
	a, err := s.GetAccount(addr(1))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, uint64(42), a.Lamports)

	last, err := s.LastCommit()
	require.NoError(t, err)
	assert.Equal(t, info, last)

	require.NoError(t, s.Commit([]WriteOp{{Address: addr(1)}}, CommitInfo{Height: 4}))
	gone, err := s.GetAccount(addr(1))
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Commit([]WriteOp{
		{Address: addr(2), Account: &Account{Data: []byte("vault"), Owner: addr(9)}},
	}, CommitInfo{Height: 1, AppHash: types.AppHash{1}}))
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	a, err := s.GetAccount(addr(2))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, []byte("vault"), a.Data)
	assert.Equal(t, addr(9), a.Owner)

	last, err := s.LastCommit()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last.Height)
}

func TestNextAppHash(t *testing.T) {
	ops := []WriteOp{{Address: addr(1), Account: &Account{Lamports: 1}}}
	h1, err := NextAppHash(types.AppHash{}, 1, ops)
	require.NoError(t, err)
	h2, err := NextAppHash(types.AppHash{}, 1, ops)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := NextAppHash(types.AppHash{}, 2, ops)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	h4, err := NextAppHash(types.AppHash{}, 1, []WriteOp{{Address: addr(1)}})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h4)
}

func TestBadgerStore_ReadsDuringCommitNeverGoStale(t *testing.T) {
	s := openMem(t)
	target := addr(3)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Force a miss so every read refills the cache.
				s.cache.Remove(target)
				_, err := s.GetAccount(target)
				assert.NoError(t, err)
			}
		}()
	}

	for h := uint64(1); h <= 200; h++ {
		require.NoError(t, s.Commit([]WriteOp{
			{Address: target, Account: &Account{Lamports: h, Owner: solana.SystemProgramID}},
		}, CommitInfo{Height: h}))
		a, err := s.GetAccount(target)
		require.NoError(t, err)
		require.NotNil(t, a, "height %d: committed account read as absent", h)
		require.Equal(t, h, a.Lamports, "height %d", h)
	}
	close(stop)
	wg.Wait()
}

func TestBadgerStore_NonceOnlyAccountPersists(t *testing.T) {
	s := openMem(t)
	require.NoError(t, s.Commit([]WriteOp{
		{Address: addr(4), Account: &Account{Owner: solana.SystemProgramID, Nonce: 9}},
	}, CommitInfo{Height: 1}))
	s.cache.Purge()

	a, err := s.GetAccount(addr(4))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, uint64(9), a.Nonce)
}
