package attest

import (
	"bytes"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/types"
)

// DefaultWindow is how long, in seconds, an approval stays valid.
const DefaultWindow int64 = 900

// Environment is the view of the executing atomic unit the verifier
// needs.
type Environment interface {
	// Instruction returns the instruction at position i of the unit.
	Instruction(i int) (types.Instruction, bool)
	// Now is the trusted clock in Unix seconds.
	Now() int64
}

// Verifier checks that an atomic unit carries a fresh approval from
// the registered signer.
type Verifier struct {
	Window int64
	// RequireBound additionally demands that the signed message is the
	// encoded ApprovalMessage of the request.
	RequireBound bool
}

// NewVerifier returns a verifier with the default window.
func NewVerifier(requireBound bool) Verifier {
	return Verifier{Window: DefaultWindow, RequireBound: requireBound}
}

// Verify authorizes a request approved at timestamp for
// (externalTokenID, price).
func (v Verifier) Verify(env Environment, registered solana.PublicKey, externalTokenID string, price uint64, timestamp int64) error {
	ix, ok := env.Instruction(0)
	if !ok || !ix.ProgramID.Equals(address.Ed25519ProgramID) {
		return fmt.Errorf("%w: instruction 0 is not a signature directive", emblem.ErrInvalidSignature)
	}
	d, err := Decode(ix.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", emblem.ErrMalformedAttestation, err)
	}
	if len(d.Entries) != 1 {
		return fmt.Errorf("%w: %d signatures", emblem.ErrMalformedAttestation, len(d.Entries))
	}
	if !d.Entries[0].SelfContained() {
		return fmt.Errorf("%w: directive references other instructions", emblem.ErrMalformedAttestation)
	}
	signed, err := d.Resolve(0, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", emblem.ErrMalformedAttestation, err)
	}
	if !signed.PublicKey.Equals(registered) {
		return fmt.Errorf("%w: approval by %s", emblem.ErrInvalidSigner, signed.PublicKey)
	}
	if expired(env.Now(), timestamp, v.window()) {
		return fmt.Errorf("%w: approved at %d, now %d", emblem.ErrApprovalExpired, timestamp, env.Now())
	}
	if v.RequireBound {
		want, err := ApprovalBytes(externalTokenID, price, timestamp)
		if err != nil {
			return err
		}
		if !bytes.Equal(signed.Message, want) {
			return fmt.Errorf("%w: signed message does not match request", emblem.ErrInvalidSignature)
		}
	}
	return nil
}

// expired reports whether now-timestamp exceeds window, without
// overflowing for any pair of int64 values. Future timestamps never
// expire.
func expired(now, timestamp, window int64) bool {
	if timestamp >= now {
		return false
	}
	return uint64(now-timestamp) > uint64(window)
}

func (v Verifier) window() int64 {
	if v.Window <= 0 {
		return DefaultWindow
	}
	return v.Window
}

// ApprovalBytes is the message a signer signs when approvals are bound
// to their parameters.
func ApprovalBytes(externalTokenID string, price uint64, timestamp int64) ([]byte, error) {
	b, err := cramberry.Marshal(types.ApprovalMessage{
		ExternalTokenID: externalTokenID,
		Price:           price,
		Timestamp:       timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal approval: %w", err)
	}
	return b, nil
}

// Approve produces the directive for an approval of
// (externalTokenID, price) at timestamp.
func Approve(signer solana.PrivateKey, externalTokenID string, price uint64, timestamp int64) (types.Instruction, error) {
	msg, err := ApprovalBytes(externalTokenID, price, timestamp)
	if err != nil {
		return types.Instruction{}, err
	}
	return NewEd25519Instruction(signer, msg)
}
