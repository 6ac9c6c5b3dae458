package types

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"
)

// Instruction is one directive of an atomic unit: a target program and
// its opaque instruction data.
type Instruction struct {
	ProgramID solana.PublicKey `cramberry:"1"`
	Data      []byte           `cramberry:"2"`
}

// TransactionMessage is the signed portion of a transaction.
// Signers[0] is the fee payer and the caller identity of every
// instruction.
type TransactionMessage struct {
	Signers      []solana.PublicKey `cramberry:"1"`
	Instructions []Instruction      `cramberry:"2"`
	// Nonce must exceed every nonce the fee payer used before. It is
	// consumed once the transaction passes signature checks, so a
	// signed transaction executes at most once.
	Nonce uint64 `cramberry:"3"`
}

// Transaction is an atomic unit: every instruction commits or none do.
type Transaction struct {
	Message TransactionMessage `cramberry:"1"`
	// One Ed25519 signature over the encoded Message per signer,
	// in Message.Signers order.
	Signatures []solana.Signature `cramberry:"2"`
}

var (
	errNoSigners         = errors.New("transaction has no signers")
	errSignatureCount    = errors.New("signature count does not match signer count")
	errNoInstructions    = errors.New("transaction has no instructions")
	errDuplicateSigner   = errors.New("duplicate signer")
	errSignatureMismatch = errors.New("signature does not verify")
)

// NewTransaction builds an unsigned transaction.
func NewTransaction(nonce uint64, ixs ...Instruction) *Transaction {
	return &Transaction{Message: TransactionMessage{Instructions: ixs, Nonce: nonce}}
}

// FeePayer returns the first signer, or the zero key if unsigned.
func (tx *Transaction) FeePayer() solana.PublicKey {
	if len(tx.Message.Signers) == 0 {
		return solana.PublicKey{}
	}
	return tx.Message.Signers[0]
}

// IsSigner reports whether key signed tx.
func (tx *Transaction) IsSigner(key solana.PublicKey) bool {
	for _, s := range tx.Message.Signers {
		if s.Equals(key) {
			return true
		}
	}
	return false
}

// MessageBytes returns the bytes each signer signs.
func (tx *Transaction) MessageBytes() ([]byte, error) {
	data, err := cramberry.Marshal(tx.Message)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

// Sign sets the signer list from keys (the first key pays) and signs
// the message with each of them.
func (tx *Transaction) Sign(keys ...solana.PrivateKey) error {
	if len(keys) == 0 {
		return errNoSigners
	}
	tx.Message.Signers = make([]solana.PublicKey, len(keys))
	for i, k := range keys {
		tx.Message.Signers[i] = k.PublicKey()
	}
	msg, err := tx.MessageBytes()
	if err != nil {
		return err
	}
	tx.Signatures = make([]solana.Signature, len(keys))
	for i, k := range keys {
		sig, err := k.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign with %s: %w", tx.Message.Signers[i], err)
		}
		tx.Signatures[i] = sig
	}
	return nil
}

// Verify checks the structural rules and every signer signature.
func (tx *Transaction) Verify() error {
	if len(tx.Message.Signers) == 0 {
		return errNoSigners
	}
	if len(tx.Signatures) != len(tx.Message.Signers) {
		return errSignatureCount
	}
	if len(tx.Message.Instructions) == 0 {
		return errNoInstructions
	}
	seen := make(map[solana.PublicKey]struct{}, len(tx.Message.Signers))
	for _, s := range tx.Message.Signers {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %s", errDuplicateSigner, s)
		}
		seen[s] = struct{}{}
	}
	msg, err := tx.MessageBytes()
	if err != nil {
		return err
	}
	for i, s := range tx.Message.Signers {
		if !tx.Signatures[i].Verify(s, msg) {
			return fmt.Errorf("%w: signer %d (%s)", errSignatureMismatch, i, s)
		}
	}
	return nil
}

// Encode serializes tx for submission.
func (tx *Transaction) Encode() (Tx, error) {
	data, err := cramberry.Marshal(*tx)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}
	return Tx(data), nil
}

// DecodeTransaction parses an encoded transaction.
func DecodeTransaction(raw Tx) (*Transaction, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty transaction")
	}
	var tx Transaction
	if err := cramberry.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// TxHash identifies an encoded transaction.
func TxHash(raw Tx) Hash {
	return Hash(sha256.Sum256(raw))
}
