// Package types defines the wire and state types of the Emblem vault
// chain.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. The same encoding is used on
// the gRPC boundary, inside transactions and for account records.
// Keys, addresses and signatures are solana-go values.
package types

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// AppHash is a deterministic fingerprint of the application
// state after execution.
type AppHash [32]byte

// Tx is an encoded Transaction as carried by the consensus engine.
// The engine never inspects its contents.
type Tx []byte

// QueryPath is a structured key for state queries
// (e.g., "/vault/is_claimed").
type QueryPath string

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}
