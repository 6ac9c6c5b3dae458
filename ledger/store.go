package ledger

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/blockberries/emblem/types"
)

// CommitInfo describes the last committed block.
type CommitInfo struct {
	Height  uint64        `cramberry:"1"`
	AppHash types.AppHash `cramberry:"2"`
}

// Store is durable committed state.
type Store interface {
	Reader
	// Commit atomically applies ops and records info as the last
	// commit.
	Commit(ops []WriteOp, info CommitInfo) error
	// LastCommit returns the last recorded commit, zero if none.
	LastCommit() (CommitInfo, error)
	Close() error
}

// NextAppHash chains the previous app hash with an ordered diff. A
// block with an empty diff keeps the hash moving with the height.
func NextAppHash(prev types.AppHash, height uint64, ops []WriteOp) (types.AppHash, error) {
	h := sha256.New()
	h.Write(prev[:])
	var hb [8]byte
	binary.BigEndian.PutUint64(hb[:], height)
	h.Write(hb[:])
	for _, op := range ops {
		h.Write(op.Address[:])
		if op.Account == nil {
			h.Write([]byte{0})
			continue
		}
		b, err := encodeAccount(op.Account)
		if err != nil {
			return types.AppHash{}, err
		}
		sum := sha256.Sum256(b)
		h.Write([]byte{1})
		h.Write(sum[:])
	}
	var out types.AppHash
	copy(out[:], h.Sum(nil))
	return out, nil
}
