package ledger

import (
	"fmt"
	"sync"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/dgraph-io/badger/v2"
	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru"
)

var (
	accountPrefix = []byte("acct:")
	commitKey     = []byte("meta:commit")
)

func accountKey(addr solana.PublicKey) []byte {
	k := make([]byte, 0, len(accountPrefix)+len(addr))
	k = append(k, accountPrefix...)
	return append(k, addr[:]...)
}

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir       string
	InMemory  bool
	CacheSize int
}

// BadgerStore is a Store on badger with an LRU cache of decoded
// accounts in front of it.
//
// Reads hold mu shared from the database read to the cache fill and
// Commit holds it exclusively until the cache is refreshed, so a fill
// never lands a value older than the last commit.
type BadgerStore struct {
	db    *badger.DB
	mu    sync.RWMutex
	cache *lru.Cache // solana.PublicKey -> *Account (nil for absent)
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens or creates a store.
func OpenBadger(o BadgerOptions) (*BadgerStore, error) {
	opts := badger.DefaultOptions(o.Dir).WithLogger(nil)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	size := o.CacheSize
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New(size)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("account cache: %w", err)
	}
	return &BadgerStore{db: db, cache: cache}, nil
}

// GetAccount implements Reader.
func (s *BadgerStore) GetAccount(addr solana.PublicKey) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.cache.Get(addr); ok {
		return v.(*Account).Clone(), nil
	}
	var acct *Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(addr))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		acct, err = decodeAccount(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	s.cache.Add(addr, acct.Clone())
	return acct, nil
}

// Commit implements Store. The ops and the commit record land in one
// badger transaction.
func (s *BadgerStore) Commit(ops []WriteOp, info CommitInfo) error {
	meta, err := cramberry.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal commit info: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			key := accountKey(op.Address)
			if op.Account.Empty() {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			val, err := encodeAccount(op.Account)
			if err != nil {
				return err
			}
			if err := txn.Set(key, val); err != nil {
				return err
			}
		}
		return txn.Set(commitKey, meta)
	})
	if err != nil {
		// The cache may now be ahead of or behind the database.
		s.cache.Purge()
		return fmt.Errorf("commit height %d: %w", info.Height, err)
	}
	for _, op := range ops {
		if op.Account.Empty() {
			s.cache.Add(op.Address, (*Account)(nil))
			continue
		}
		s.cache.Add(op.Address, op.Account.Clone())
	}
	return nil
}

// LastCommit implements Store.
func (s *BadgerStore) LastCommit() (CommitInfo, error) {
	var info CommitInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(commitKey)
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cramberry.Unmarshal(val, &info)
		})
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("last commit: %w", err)
	}
	return info, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
