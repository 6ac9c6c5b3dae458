// Package attest decodes Ed25519 signature-verification directives and
// checks the off-ledger approvals they carry.
package attest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/types"
)

// Directive wire layout: a two byte header followed by one offsets
// entry per signature, then the payload the offsets point into.
const (
	HeaderSize    = 2
	OffsetsSize   = 14
	PublicKeySize = 32
	SignatureSize = 64

	// CurrentInstruction in an instruction index field means "the
	// directive itself".
	CurrentInstruction uint16 = 0xFFFF

	// Canonical single-signature placement.
	PublicKeyOffset = HeaderSize + OffsetsSize
	SignatureOffset = PublicKeyOffset + PublicKeySize
	MessageOffset   = SignatureOffset + SignatureSize
)

var (
	errShortHeader  = errors.New("directive shorter than its header")
	errNoSignatures = errors.New("directive declares no signatures")
	errShortOffsets = errors.New("offsets table exceeds directive")
	errOutOfRange   = errors.New("offset range exceeds instruction data")
	errNoSuchIx     = errors.New("offset references a missing instruction")
)

// Offsets locates one signature, its public key and its message.
type Offsets struct {
	SignatureOffset           uint16
	SignatureInstructionIndex uint16
	PublicKeyOffset           uint16
	PublicKeyInstructionIndex uint16
	MessageOffset             uint16
	MessageSize               uint16
	MessageInstructionIndex   uint16
}

// SelfContained reports whether every range lives in the directive.
func (o Offsets) SelfContained() bool {
	return o.SignatureInstructionIndex == CurrentInstruction &&
		o.PublicKeyInstructionIndex == CurrentInstruction &&
		o.MessageInstructionIndex == CurrentInstruction
}

// Directive is a decoded Ed25519 verification instruction.
type Directive struct {
	Entries []Offsets
	Data    []byte
}

// InstructionData returns the data of the instruction at index within
// the same atomic unit.
type InstructionData func(index uint16) ([]byte, bool)

// Decode parses directive data. It checks only that the offsets table
// fits; ranges are checked when an entry is resolved.
func Decode(data []byte) (*Directive, error) {
	if len(data) < HeaderSize {
		return nil, errShortHeader
	}
	count := int(data[0])
	if count == 0 {
		return nil, errNoSignatures
	}
	if len(data) < HeaderSize+count*OffsetsSize {
		return nil, fmt.Errorf("%w: %d entries, %d bytes", errShortOffsets, count, len(data))
	}
	d := &Directive{Entries: make([]Offsets, count), Data: data}
	for i := range d.Entries {
		b := data[HeaderSize+i*OffsetsSize:]
		d.Entries[i] = Offsets{
			SignatureOffset:           binary.LittleEndian.Uint16(b[0:]),
			SignatureInstructionIndex: binary.LittleEndian.Uint16(b[2:]),
			PublicKeyOffset:           binary.LittleEndian.Uint16(b[4:]),
			PublicKeyInstructionIndex: binary.LittleEndian.Uint16(b[6:]),
			MessageOffset:             binary.LittleEndian.Uint16(b[8:]),
			MessageSize:               binary.LittleEndian.Uint16(b[10:]),
			MessageInstructionIndex:   binary.LittleEndian.Uint16(b[12:]),
		}
	}
	return d, nil
}

// Signed is one resolved entry.
type Signed struct {
	PublicKey solana.PublicKey
	Signature solana.Signature
	Message   []byte
}

// Verify reports whether the signature checks out.
func (s Signed) Verify() bool {
	return s.Signature.Verify(s.PublicKey, s.Message)
}

// Resolve reads the ranges of entry i. other may be nil when every
// range is self-contained.
func (d *Directive) Resolve(i int, other InstructionData) (Signed, error) {
	if i < 0 || i >= len(d.Entries) {
		return Signed{}, fmt.Errorf("entry %d of %d", i, len(d.Entries))
	}
	e := d.Entries[i]
	var out Signed
	sig, err := d.slice(other, e.SignatureInstructionIndex, e.SignatureOffset, SignatureSize)
	if err != nil {
		return Signed{}, fmt.Errorf("signature: %w", err)
	}
	copy(out.Signature[:], sig)
	pub, err := d.slice(other, e.PublicKeyInstructionIndex, e.PublicKeyOffset, PublicKeySize)
	if err != nil {
		return Signed{}, fmt.Errorf("public key: %w", err)
	}
	copy(out.PublicKey[:], pub)
	msg, err := d.slice(other, e.MessageInstructionIndex, e.MessageOffset, int(e.MessageSize))
	if err != nil {
		return Signed{}, fmt.Errorf("message: %w", err)
	}
	out.Message = append([]byte(nil), msg...)
	return out, nil
}

func (d *Directive) slice(other InstructionData, ix, off uint16, n int) ([]byte, error) {
	data := d.Data
	if ix != CurrentInstruction {
		if other == nil {
			return nil, fmt.Errorf("%w: %d", errNoSuchIx, ix)
		}
		var ok bool
		if data, ok = other(ix); !ok {
			return nil, fmt.Errorf("%w: %d", errNoSuchIx, ix)
		}
	}
	end := int(off) + n
	if end > len(data) {
		return nil, fmt.Errorf("%w: [%d:%d] of %d", errOutOfRange, off, end, len(data))
	}
	return data[off:end], nil
}

// VerifyAll checks every entry of directive data, the way the
// verification precompile does.
func VerifyAll(data []byte, other InstructionData) error {
	d, err := Decode(data)
	if err != nil {
		return err
	}
	for i := range d.Entries {
		s, err := d.Resolve(i, other)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if !s.Verify() {
			return fmt.Errorf("entry %d: signature by %s does not verify", i, s.PublicKey)
		}
	}
	return nil
}

// Encode lays out a canonical single-signature directive.
func Encode(pub solana.PublicKey, sig solana.Signature, msg []byte) []byte {
	data := make([]byte, MessageOffset+len(msg))
	data[0] = 1
	binary.LittleEndian.PutUint16(data[2:], SignatureOffset)
	binary.LittleEndian.PutUint16(data[4:], CurrentInstruction)
	binary.LittleEndian.PutUint16(data[6:], PublicKeyOffset)
	binary.LittleEndian.PutUint16(data[8:], CurrentInstruction)
	binary.LittleEndian.PutUint16(data[10:], MessageOffset)
	binary.LittleEndian.PutUint16(data[12:], uint16(len(msg)))
	binary.LittleEndian.PutUint16(data[14:], CurrentInstruction)
	copy(data[PublicKeyOffset:], pub[:])
	copy(data[SignatureOffset:], sig[:])
	copy(data[MessageOffset:], msg)
	return data
}

// NewEd25519Instruction signs msg with key and wraps the result in a
// directive targeting the verification precompile.
func NewEd25519Instruction(key solana.PrivateKey, msg []byte) (types.Instruction, error) {
	sig, err := key.Sign(msg)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("sign approval: %w", err)
	}
	return types.Instruction{
		ProgramID: address.Ed25519ProgramID,
		Data:      Encode(key.PublicKey(), sig, msg),
	}, nil
}
