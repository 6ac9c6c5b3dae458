package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/attest"
	"github.com/blockberries/emblem/types"
)

// MaxInvokeDepth bounds nested program invocation.
const MaxInvokeDepth = 4

// Program is on-ledger code addressed by its ID.
type Program interface {
	ID() solana.PublicKey
	// Execute runs one instruction. A returned error fails the whole
	// atomic unit.
	Execute(ctx *InvokeContext, data []byte) error
}

// Env is the block-level environment of an execution.
type Env struct {
	Height uint64
	Time   types.Timestamp
}

// Receipt is the result of one atomic unit.
type Receipt struct {
	// Err is the failure of the unit, nil on success. A failed unit
	// leaves no state behind.
	Err        error
	Events     []types.Event
	ReturnData []byte
}

// Runtime dispatches instructions to registered programs.
type Runtime struct {
	programs map[solana.PublicKey]Program
}

// NewRuntime returns a runtime serving programs.
func NewRuntime(programs ...Program) *Runtime {
	r := &Runtime{programs: make(map[solana.PublicKey]Program, len(programs))}
	for _, p := range programs {
		r.programs[p.ID()] = p
	}
	return r
}

// Program returns the program registered under id.
func (r *Runtime) Program(id solana.PublicKey) (Program, bool) {
	p, ok := r.programs[id]
	return p, ok
}

// Validate runs the stateless checks of a transaction.
func Validate(tx *types.Transaction) error {
	if len(tx.Message.Signers) == 0 || len(tx.Message.Instructions) == 0 {
		return fmt.Errorf("%w: needs a signer and an instruction", emblem.ErrInvalidTransaction)
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("%w: %v", emblem.ErrMissingSignature, err)
	}
	return nil
}

// CheckNonce returns ErrStaleNonce unless tx carries a nonce above the
// last one its fee payer used in r. It returns the payer's account.
func CheckNonce(r Reader, tx *types.Transaction) (*Account, error) {
	payer := tx.FeePayer()
	acct, err := r.GetAccount(payer)
	if err != nil {
		return nil, err
	}
	var last uint64
	if acct != nil {
		last = acct.Nonce
	}
	if tx.Message.Nonce <= last {
		return nil, fmt.Errorf("%w: nonce %d, %s last used %d", emblem.ErrStaleNonce, tx.Message.Nonce, payer, last)
	}
	return acct, nil
}

// Execute runs tx as one atomic unit on view. Either every instruction
// succeeds and its writes stay in view, or view is reverted to its
// state before the instructions ran and the receipt carries the
// failure. A transaction that passes the signature and nonce checks
// consumes its nonce even when an instruction fails, so it can never
// be executed again. The returned error is reserved for storage
// failures, after which view must be discarded.
func (r *Runtime) Execute(view *StateView, tx *types.Transaction, env Env) (*Receipt, error) {
	if err := Validate(tx); err != nil {
		return &Receipt{Err: err}, nil
	}
	payer, err := CheckNonce(view, tx)
	if errors.Is(err, ErrStorage) {
		return nil, err
	} else if err != nil {
		return &Receipt{Err: err}, nil
	}
	if payer == nil {
		payer = &Account{Owner: solana.SystemProgramID}
	}
	payer.Nonce = tx.Message.Nonce
	view.SetAccount(tx.FeePayer(), payer)

	snap := view.Snapshot()
	unit := &unit{runtime: r, view: view, tx: tx, env: env}
	err = unit.run()
	if err == nil {
		return &Receipt{Events: unit.events, ReturnData: unit.returnData}, nil
	}
	if rerr := view.Revert(snap); rerr != nil {
		return nil, fmt.Errorf("revert failed unit: %w", rerr)
	}
	if errors.Is(err, ErrStorage) {
		return nil, err
	}
	return &Receipt{Err: err}, nil
}

// unit is the state shared by every invocation of one transaction.
type unit struct {
	runtime    *Runtime
	view       *StateView
	tx         *types.Transaction
	env        Env
	events     []types.Event
	returnData []byte
}

func (u *unit) run() error {
	for i, ix := range u.tx.Message.Instructions {
		if err := u.invoke(i, ix.ProgramID, ix.Data, nil, 1); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

func (u *unit) invoke(index int, programID solana.PublicKey, data []byte, derivedSigners []solana.PublicKey, depth int) error {
	if depth > MaxInvokeDepth {
		return fmt.Errorf("%w: invocation depth %d", emblem.ErrInvalidTransaction, depth)
	}
	if programID.Equals(address.Ed25519ProgramID) {
		return u.verifyDirective(data)
	}
	p, ok := u.runtime.programs[programID]
	if !ok {
		return fmt.Errorf("%w: %s", emblem.ErrUnknownProgram, programID)
	}
	ctx := &InvokeContext{
		unit:           u,
		index:          index,
		programID:      programID,
		derivedSigners: derivedSigners,
		depth:          depth,
	}
	return p.Execute(ctx, data)
}

func (u *unit) verifyDirective(data []byte) error {
	other := func(i uint16) ([]byte, bool) {
		if int(i) >= len(u.tx.Message.Instructions) {
			return nil, false
		}
		return u.tx.Message.Instructions[i].Data, true
	}
	if err := attest.VerifyAll(data, other); err != nil {
		return fmt.Errorf("%w: %v", emblem.ErrPrecompileFailed, err)
	}
	return nil
}
