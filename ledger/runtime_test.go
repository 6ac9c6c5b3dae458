package ledger

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/attest"
	"github.com/blockberries/emblem/types"
)

// scriptProgram runs a test-supplied body.
type scriptProgram struct {
	id   solana.PublicKey
	body func(ctx *InvokeContext, data []byte) error
}

func (p scriptProgram) ID() solana.PublicKey { return p.id }

func (p scriptProgram) Execute(ctx *InvokeContext, data []byte) error { return p.body(ctx, data) }

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k
}

func signed(t *testing.T, nonce uint64, ixs []types.Instruction, keys ...solana.PrivateKey) *types.Transaction {
	t.Helper()
	tx := types.NewTransaction(nonce, ixs...)
	require.NoError(t, tx.Sign(keys...))
	return tx
}

var env = Env{Height: 1, Time: types.UnixTimestamp(1000)}

func TestExecute_CommitsWrites(t *testing.T) {
	prog := scriptProgram{id: addr(50), body: func(ctx *InvokeContext, data []byte) error {
		ctx.Emit(types.NewEvent("wrote", "n", string(data)))
		ctx.SetReturnData([]byte("ok"))
		return ctx.WriteData(addr(1), data)
	}}
	rt := NewRuntime(prog)
	view := NewStateView(mapReader{})
	payer := newKey(t)

	r, err := rt.Execute(view, signed(t, 1, []types.Instruction{{ProgramID: prog.id, Data: []byte("a")}}, payer), env)
	require.NoError(t, err)
	require.NoError(t, r.Err)
	assert.Equal(t, []byte("ok"), r.ReturnData)
	require.Len(t, r.Events, 1)

	a, err := view.GetAccount(addr(1))
	require.NoError(t, err)
	assert.Equal(t, prog.id, a.Owner)
	assert.Equal(t, []byte("a"), a.Data)
}

func TestExecute_FailureRevertsEverything(t *testing.T) {
	fail := errors.New("boom")
	writer := scriptProgram{id: addr(50), body: func(ctx *InvokeContext, data []byte) error {
		return ctx.WriteData(addr(1), data)
	}}
	failer := scriptProgram{id: addr(51), body: func(ctx *InvokeContext, _ []byte) error {
		ctx.Emit(types.NewEvent("never"))
		return fail
	}}
	rt := NewRuntime(writer, failer)
	view := NewStateView(mapReader{})
	payer := newKey(t)

	tx := signed(t, 1, []types.Instruction{
		{ProgramID: writer.id, Data: []byte("a")},
		{ProgramID: failer.id},
	}, payer)
	r, err := rt.Execute(view, tx, env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, fail)
	assert.Contains(t, r.Err.Error(), "instruction 1")
	assert.Empty(t, r.Events)

	written, err := view.GetAccount(addr(1))
	require.NoError(t, err)
	assert.Nil(t, written)

	// Only the consumed nonce survives.
	assert.Equal(t, 1, view.Len())
	p, err := view.GetAccount(payer.PublicKey())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, uint64(1), p.Nonce)
}

func TestExecute_RejectsReplay(t *testing.T) {
	var runs int
	prog := scriptProgram{id: addr(50), body: func(ctx *InvokeContext, _ []byte) error {
		runs++
		return nil
	}}
	rt := NewRuntime(prog)
	payer := newKey(t)
	view := NewStateView(mapReader{
		payer.PublicKey(): {Lamports: 10, Owner: solana.SystemProgramID},
	})
	ix := []types.Instruction{{ProgramID: prog.id}}

	tx := signed(t, 5, ix, payer)
	r, err := rt.Execute(view, tx, env)
	require.NoError(t, err)
	require.NoError(t, r.Err)

	r, err = rt.Execute(view, tx, env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrStaleNonce)

	r, err = rt.Execute(view, signed(t, 4, ix, payer), env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrStaleNonce)

	r, err = rt.Execute(view, signed(t, 9, ix, payer), env)
	require.NoError(t, err)
	require.NoError(t, r.Err)
	assert.Equal(t, 2, runs)

	p, err := view.GetAccount(payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p.Nonce)
	assert.Equal(t, uint64(10), p.Lamports)
}

func TestExecute_FailedTxCannotBeReplayed(t *testing.T) {
	var allow bool
	prog := scriptProgram{id: addr(50), body: func(ctx *InvokeContext, _ []byte) error {
		if !allow {
			return errors.New("not yet")
		}
		return nil
	}}
	rt := NewRuntime(prog)
	view := NewStateView(mapReader{})
	tx := signed(t, 1, []types.Instruction{{ProgramID: prog.id}}, newKey(t))

	r, err := rt.Execute(view, tx, env)
	require.NoError(t, err)
	require.Error(t, r.Err)

	allow = true
	r, err = rt.Execute(view, tx, env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrStaleNonce)
}

func TestExecute_RejectsBadTransactions(t *testing.T) {
	rt := NewRuntime()
	view := NewStateView(mapReader{})

	r, err := rt.Execute(view, signed(t, 1, []types.Instruction{{ProgramID: addr(77)}}, newKey(t)), env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrUnknownProgram)

	unsigned := types.NewTransaction(1, types.Instruction{ProgramID: addr(77)})
	r, err = rt.Execute(view, unsigned, env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrInvalidTransaction)

	zero := signed(t, 0, []types.Instruction{{ProgramID: addr(77)}}, newKey(t))
	r, err = rt.Execute(view, zero, env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrStaleNonce)

	forged := signed(t, 1, []types.Instruction{{ProgramID: addr(77)}}, newKey(t))
	forged.Message.Nonce = 2
	r, err = rt.Execute(view, forged, env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrMissingSignature)
}

func TestTransfer(t *testing.T) {
	payer, other := newKey(t), newKey(t)
	sink := addr(9)
	var amount uint64
	prog := scriptProgram{id: addr(50), body: func(ctx *InvokeContext, _ []byte) error {
		return ctx.Transfer(ctx.Caller(), sink, amount)
	}}
	thief := scriptProgram{id: addr(51), body: func(ctx *InvokeContext, _ []byte) error {
		return ctx.Transfer(other.PublicKey(), sink, 1)
	}}
	rt := NewRuntime(prog, thief)
	view := NewStateView(mapReader{
		payer.PublicKey(): {Lamports: 100, Owner: solana.SystemProgramID},
		other.PublicKey(): {Lamports: 100, Owner: solana.SystemProgramID},
	})
	run := func(nonce uint64, id solana.PublicKey) error {
		r, err := rt.Execute(view, signed(t, nonce, []types.Instruction{{ProgramID: id}}, payer), env)
		require.NoError(t, err)
		return r.Err
	}

	amount = 60
	require.NoError(t, run(1, prog.id))
	amount = 41
	assert.ErrorIs(t, run(2, prog.id), emblem.ErrInsufficientFunds)
	amount = 0
	require.NoError(t, run(3, prog.id))
	assert.ErrorIs(t, run(4, thief.id), emblem.ErrMissingSignature)

	p, err := view.GetAccount(payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(40), p.Lamports)
	s, err := view.GetAccount(sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), s.Lamports)
}

func TestWriteData_Ownership(t *testing.T) {
	owned := addr(1)
	prog := scriptProgram{id: addr(50), body: func(ctx *InvokeContext, _ []byte) error {
		return ctx.WriteData(owned, []byte("mine"))
	}}
	rt := NewRuntime(prog)
	view := NewStateView(mapReader{owned: {Owner: addr(60), Data: []byte("theirs")}})

	r, err := rt.Execute(view, signed(t, 1, []types.Instruction{{ProgramID: prog.id}}, newKey(t)), env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrAccountOwnership)
}

func TestInvokeSigned_DerivedSigner(t *testing.T) {
	callerID := addr(50)
	pda, _, err := address.New(callerID).Derive([]byte("authority"))
	require.NoError(t, err)

	var sawSigner bool
	callee := scriptProgram{id: addr(51), body: func(ctx *InvokeContext, _ []byte) error {
		sawSigner = ctx.IsSigner(pda)
		return nil
	}}
	caller := scriptProgram{id: callerID, body: func(ctx *InvokeContext, _ []byte) error {
		return ctx.InvokeSigned(callee.id, nil, [][]byte{[]byte("authority")})
	}}
	rt := NewRuntime(caller, callee)

	r, err := rt.Execute(NewStateView(mapReader{}), signed(t, 1, []types.Instruction{{ProgramID: callerID}}, newKey(t)), env)
	require.NoError(t, err)
	require.NoError(t, r.Err)
	assert.True(t, sawSigner)
}

func TestInvokeSigned_DepthLimit(t *testing.T) {
	var self scriptProgram
	self = scriptProgram{id: addr(50), body: func(ctx *InvokeContext, _ []byte) error {
		return ctx.InvokeSigned(self.id, nil)
	}}
	rt := NewRuntime(self)
	r, err := rt.Execute(NewStateView(mapReader{}), signed(t, 1, []types.Instruction{{ProgramID: self.id}}, newKey(t)), env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrInvalidTransaction)
}

func TestPrecompile(t *testing.T) {
	rt := NewRuntime()
	view := NewStateView(mapReader{})

	ix, err := attest.NewEd25519Instruction(newKey(t), []byte("approve"))
	require.NoError(t, err)
	r, err := rt.Execute(view, signed(t, 1, []types.Instruction{ix}, newKey(t)), env)
	require.NoError(t, err)
	assert.NoError(t, r.Err)

	ix.Data[len(ix.Data)-1] ^= 0xFF
	r, err = rt.Execute(view, signed(t, 2, []types.Instruction{ix}, newKey(t)), env)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, emblem.ErrPrecompileFailed)
}
