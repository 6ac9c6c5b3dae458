package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/types"
)

// InvokeContext is what a program sees while executing one
// instruction: the unit it belongs to, the trusted clock, and
// ownership-checked access to accounts.
type InvokeContext struct {
	unit           *unit
	index          int
	programID      solana.PublicKey
	derivedSigners []solana.PublicKey
	depth          int
}

// ProgramID is the executing program.
func (c *InvokeContext) ProgramID() solana.PublicKey { return c.programID }

// Index is the position of the top-level instruction being executed.
func (c *InvokeContext) Index() int { return c.index }

// Caller is the fee payer of the unit.
func (c *InvokeContext) Caller() solana.PublicKey { return c.unit.tx.FeePayer() }

// Height is the height of the executing block.
func (c *InvokeContext) Height() uint64 { return c.unit.env.Height }

// Now is the block time in Unix seconds.
func (c *InvokeContext) Now() int64 { return c.unit.env.Time.Seconds }

// Instruction returns the top-level instruction at position i.
func (c *InvokeContext) Instruction(i int) (types.Instruction, bool) {
	ixs := c.unit.tx.Message.Instructions
	if i < 0 || i >= len(ixs) {
		return types.Instruction{}, false
	}
	return ixs[i], true
}

// IsSigner reports whether key signed the unit or was signed for by
// the invoking program.
func (c *InvokeContext) IsSigner(key solana.PublicKey) bool {
	if c.unit.tx.IsSigner(key) {
		return true
	}
	for _, s := range c.derivedSigners {
		if s.Equals(key) {
			return true
		}
	}
	return false
}

// GetAccount implements Reader over the unit's state.
func (c *InvokeContext) GetAccount(addr solana.PublicKey) (*Account, error) {
	return c.unit.view.GetAccount(addr)
}

// Exists reports whether addr is populated.
func (c *InvokeContext) Exists(addr solana.PublicKey) (bool, error) {
	return Exists(c.unit.view, addr)
}

// WriteData replaces the data of the account at addr. An empty address
// becomes owned by the executing program; otherwise the program must
// already own it.
func (c *InvokeContext) WriteData(addr solana.PublicKey, data []byte) error {
	a, err := c.unit.view.GetAccount(addr)
	if err != nil {
		return err
	}
	if a.Empty() {
		a = &Account{Owner: c.programID}
	} else if !a.Owner.Equals(c.programID) {
		if len(a.Data) > 0 || !a.Owner.Equals(solana.SystemProgramID) {
			return fmt.Errorf("%w: %s owned by %s", emblem.ErrAccountOwnership, addr, a.Owner)
		}
		a.Owner = c.programID
	}
	a.Data = data
	c.unit.view.SetAccount(addr, a)
	return nil
}

// WriteRecord encodes v as the record named name at addr.
func (c *InvokeContext) WriteRecord(addr solana.PublicKey, name string, v any) error {
	data, err := EncodeRecord(name, v)
	if err != nil {
		return err
	}
	return c.WriteData(addr, data)
}

// LoadRecord reads a record owned by the executing program.
func (c *InvokeContext) LoadRecord(addr solana.PublicKey, name string, v any) (bool, error) {
	return LoadRecord(c.unit.view, addr, c.programID, name, v)
}

// Close clears the data of an account the executing program owns.
// Any balance left on it stays with the address.
func (c *InvokeContext) Close(addr solana.PublicKey) error {
	a, err := c.unit.view.GetAccount(addr)
	if err != nil {
		return err
	}
	if a.Empty() {
		return nil
	}
	if !a.Owner.Equals(c.programID) {
		return fmt.Errorf("%w: %s owned by %s", emblem.ErrAccountOwnership, addr, a.Owner)
	}
	a.Data = nil
	a.Owner = solana.SystemProgramID
	c.unit.view.SetAccount(addr, a)
	return nil
}

// Transfer moves amount lamports from a signer's system account to to.
func (c *InvokeContext) Transfer(from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if !c.IsSigner(from) {
		return fmt.Errorf("%w: transfer from %s", emblem.ErrMissingSignature, from)
	}
	src, err := c.unit.view.GetAccount(from)
	if err != nil {
		return err
	}
	if have := src.Balance(); have < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", emblem.ErrInsufficientFunds, from, have, amount)
	}
	if len(src.Data) > 0 {
		return fmt.Errorf("%w: transfer from data account %s", emblem.ErrAccountOwnership, from)
	}
	if from.Equals(to) {
		return nil
	}
	dst, err := c.unit.view.GetAccount(to)
	if err != nil {
		return err
	}
	if dst == nil {
		dst = &Account{Owner: solana.SystemProgramID}
	}
	if dst.Lamports+amount < dst.Lamports {
		return fmt.Errorf("%w: balance overflow at %s", emblem.ErrInvalidTransaction, to)
	}
	src.Lamports -= amount
	dst.Lamports += amount
	c.unit.view.SetAccount(from, src)
	c.unit.view.SetAccount(to, dst)
	return nil
}

// Emit records an event of the unit.
func (c *InvokeContext) Emit(ev types.Event) {
	c.unit.events = append(c.unit.events, ev)
}

// SetReturnData sets the data returned by the unit.
func (c *InvokeContext) SetReturnData(data []byte) {
	c.unit.returnData = append([]byte(nil), data...)
}

// InvokeSigned calls another program within the same unit. Each entry
// of signerSeeds is derived under the executing program and counts as
// a signer for the callee.
func (c *InvokeContext) InvokeSigned(programID solana.PublicKey, data []byte, signerSeeds ...[][]byte) error {
	d := address.New(c.programID)
	signers := make([]solana.PublicKey, 0, len(signerSeeds))
	for _, seeds := range signerSeeds {
		pda, _, err := d.Derive(seeds...)
		if err != nil {
			return err
		}
		signers = append(signers, pda)
	}
	if err := c.unit.invoke(c.index, programID, data, signers, c.depth+1); err != nil {
		return fmt.Errorf("invoke %s: %w", programID, err)
	}
	return nil
}
