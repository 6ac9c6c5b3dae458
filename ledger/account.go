// Package ledger is the runtime the vault programs execute on: accounts
// keyed by address, an overlay state view with snapshot and revert, a
// badger-backed committed store, and the executor that runs each
// transaction as an atomic unit.
package ledger

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
)

// ErrStorage marks failures of the underlying store. They abort block
// execution instead of failing a single transaction.
var ErrStorage = errors.New("ledger storage failure")

// Account is the value stored at an address.
type Account struct {
	Lamports uint64           `cramberry:"1"`
	Owner    solana.PublicKey `cramberry:"2"`
	Data     []byte           `cramberry:"3"`
	// Nonce is the highest transaction nonce this account has paid for.
	Nonce uint64 `cramberry:"4"`
}

// Empty reports whether the account holds no value, data or nonce. An
// empty account is indistinguishable from an absent one.
func (a *Account) Empty() bool {
	return a == nil || (a.Lamports == 0 && len(a.Data) == 0 && a.Nonce == 0)
}

// Balance returns the lamports held at a, zero for an absent account.
func (a *Account) Balance() uint64 {
	if a == nil {
		return 0
	}
	return a.Lamports
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	return &c
}

func encodeAccount(a *Account) ([]byte, error) {
	return cramberry.Marshal(*a)
}

func decodeAccount(b []byte) (*Account, error) {
	var a Account
	if err := cramberry.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DiscriminatorSize is the length of the record type tag that prefixes
// program account data.
const DiscriminatorSize = 8

// Discriminator returns the type tag of records named name.
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// EncodeRecord serializes v as account data tagged with name.
func EncodeRecord(name string, v any) ([]byte, error) {
	body, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	d := Discriminator(name)
	return append(d[:], body...), nil
}

// DecodeRecord parses account data written by EncodeRecord with the
// same name into v.
func DecodeRecord(name string, data []byte, v any) error {
	d := Discriminator(name)
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], d[:]) {
		return fmt.Errorf("%w: not a %s", emblem.ErrInvalidAccountData, name)
	}
	if err := cramberry.Unmarshal(data[DiscriminatorSize:], v); err != nil {
		return fmt.Errorf("%w: %s: %v", emblem.ErrInvalidAccountData, name, err)
	}
	return nil
}

// Reader reads accounts. A missing account is returned as nil with no
// error.
type Reader interface {
	GetAccount(addr solana.PublicKey) (*Account, error)
}

// Exists reports whether addr holds a non-empty account.
func Exists(r Reader, addr solana.PublicKey) (bool, error) {
	a, err := r.GetAccount(addr)
	if err != nil {
		return false, err
	}
	return !a.Empty(), nil
}

// LoadRecord reads the record named name at addr, owned by owner.
// It reports false when the address is empty.
func LoadRecord(r Reader, addr, owner solana.PublicKey, name string, v any) (bool, error) {
	a, err := r.GetAccount(addr)
	if err != nil {
		return false, err
	}
	if a.Empty() || len(a.Data) == 0 {
		return false, nil
	}
	if !a.Owner.Equals(owner) {
		return false, fmt.Errorf("%w: %s owned by %s", emblem.ErrAccountOwnership, addr, a.Owner)
	}
	if err := DecodeRecord(name, a.Data, v); err != nil {
		return false, err
	}
	return true, nil
}
