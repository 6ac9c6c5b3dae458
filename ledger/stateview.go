package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrInvalidSnapshot is returned by Revert for an unknown snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// WriteOp is one entry of a state diff. A nil Account deletes.
type WriteOp struct {
	Address solana.PublicKey
	Account *Account
}

type change struct {
	addr    solana.PublicKey
	prev    *Account
	hasPrev bool
}

// StateView buffers writes over a Reader. Writes never reach the
// Reader; Diff exports them for the store to commit.
type StateView struct {
	mu        sync.RWMutex
	read      Reader
	overlay   map[solana.PublicKey]*Account // nil value: deleted
	changelog []change
}

// NewStateView returns an empty overlay over read.
func NewStateView(read Reader) *StateView {
	return &StateView{
		read:    read,
		overlay: make(map[solana.PublicKey]*Account, 64),
	}
}

// GetAccount returns a copy of the account at addr, or nil.
func (s *StateView) GetAccount(addr solana.PublicKey) (*Account, error) {
	s.mu.RLock()
	v, ok := s.overlay[addr]
	s.mu.RUnlock()
	if ok {
		return v.Clone(), nil
	}
	a, err := s.read.GetAccount(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, addr, err)
	}
	if a.Empty() {
		return nil, nil
	}
	return a.Clone(), nil
}

// SetAccount stores a copy of a at addr. Storing an empty account
// deletes it.
func (s *StateView) SetAccount(addr solana.PublicKey, a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, has := s.overlay[addr]
	s.changelog = append(s.changelog, change{addr: addr, prev: prev, hasPrev: has})
	if a.Empty() {
		s.overlay[addr] = nil
		return
	}
	s.overlay[addr] = a.Clone()
}

// DeleteAccount removes the account at addr.
func (s *StateView) DeleteAccount(addr solana.PublicKey) {
	s.SetAccount(addr, nil)
}

// Snapshot marks the current state for Revert.
func (s *StateView) Snapshot() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.changelog)
}

// Revert undoes every write made after snap was taken.
func (s *StateView) Revert(snap int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap < 0 || snap > len(s.changelog) {
		return ErrInvalidSnapshot
	}
	for i := len(s.changelog) - 1; i >= snap; i-- {
		c := s.changelog[i]
		if c.hasPrev {
			s.overlay[c.addr] = c.prev
		} else {
			delete(s.overlay, c.addr)
		}
	}
	s.changelog = s.changelog[:snap]
	return nil
}

// Diff returns the buffered writes ordered by address.
func (s *StateView) Diff() []WriteOp {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diff := make([]WriteOp, 0, len(s.overlay))
	for addr, a := range s.overlay {
		diff = append(diff, WriteOp{Address: addr, Account: a.Clone()})
	}
	sort.Slice(diff, func(i, j int) bool {
		return bytes.Compare(diff[i].Address[:], diff[j].Address[:]) < 0
	})
	return diff
}

// Len returns the number of touched addresses.
func (s *StateView) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overlay)
}
