package emblem

import (
	"errors"
	"fmt"
)

// Error is a program or runtime failure with a stable numeric code.
// Codes are reported in TxOutcome.Code; the name and message go to
// TxOutcome.Info.
//
// Two Errors match under errors.Is when their codes are equal, so a
// sentinel can be wrapped with context and still be recognised.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code uint32, name, msg string) *Error {
	return &Error{Code: code, Name: name, Msg: msg}
}

// Ledger runtime errors.
var (
	ErrInsufficientFunds  = newError(1, "InsufficientFunds", "insufficient funds for transfer")
	ErrMissingSignature   = newError(2, "MissingSignature", "required signature is missing or invalid")
	ErrInvalidTransaction = newError(3, "InvalidTransaction", "transaction is malformed")
	ErrUnknownProgram     = newError(4, "UnknownProgram", "instruction targets an unknown program")
	ErrAccountOwnership   = newError(5, "AccountOwnership", "account is owned by another program")
	ErrPrecompileFailed   = newError(6, "PrecompileFailed", "signature verification directive failed")
	ErrInvalidSeeds       = newError(7, "InvalidSeeds", "address seeds are invalid")
	ErrInvalidAccountData = newError(8, "InvalidAccountData", "account data does not hold the expected record")
	ErrUnknownQuery       = newError(9, "UnknownQuery", "unknown query path")
	ErrInvalidQuery       = newError(10, "InvalidQuery", "query data is malformed")
	ErrStaleNonce         = newError(11, "StaleNonce", "transaction nonce was already used by its fee payer")
)

// Vault program errors. The first eight keep the codes of the
// on-chain program this chain replaces.
var (
	ErrNotMinted              = newError(6000, "NotMinted", "The vault is not minted")
	ErrApprovalExpired        = newError(6001, "ApprovalExpired", "Approval has expired")
	ErrAlreadyClaimed         = newError(6002, "AlreadyClaimed", "Vault has already been claimed")
	ErrInvalidExternalTokenID = newError(6003, "InvalidExternalTokenId", "Invalid external token ID")
	ErrInvalidSignature       = newError(6004, "InvalidSignature", "Invalid signature")
	ErrUnauthorized           = newError(6005, "Unauthorized", "Unauthorized")
	ErrInvalidSigner          = newError(6006, "InvalidSigner", "Invalid signer")
	ErrVaultAlreadyExists     = newError(6007, "VaultAlreadyExists", "Vault already exists")
	ErrMalformedAttestation   = newError(6008, "MalformedAttestation", "Signature directive is malformed")
	ErrAlreadyInitialized     = newError(6009, "AlreadyInitialized", "Program state is already initialized")
	ErrNotInitialized         = newError(6010, "NotInitialized", "Program state is not initialized")
	ErrCollectionNotFound     = newError(6011, "CollectionNotFound", "Collection does not exist")
	ErrInvalidBaseURI         = newError(6012, "InvalidBaseURI", "Base URI exceeds its capacity")
	ErrInvalidInstruction     = newError(6013, "InvalidInstruction", "Instruction data is malformed")
)

// Asset registry errors.
var (
	ErrAssetNotFound      = newError(7000, "AssetNotFound", "asset does not exist")
	ErrAssetExists        = newError(7001, "AssetExists", "asset address already populated")
	ErrNotDelegate        = newError(7002, "NotDelegate", "signer is neither owner nor permanent delegate")
	ErrCollectionMismatch = newError(7003, "CollectionMismatch", "asset does not belong to collection")
	ErrNotUpdateAuthority = newError(7004, "NotUpdateAuthority", "signer is not the collection update authority")
	ErrAssetFrozen        = newError(7005, "AssetFrozen", "asset is frozen")
)

// CodeOf returns the stable code carried by err, or 0 if err is nil.
// Errors without a code map to CodeInternal.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// CodeInternal is reported for failures that carry no stable code.
const CodeInternal uint32 = 255

// IsAuthorization reports whether the caller lacked the required proof.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrInvalidSigner) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMalformedAttestation) ||
		errors.Is(err, ErrMissingSignature)
}

// IsTemporal reports whether a fresh approval would let the request pass.
func IsTemporal(err error) bool {
	return errors.Is(err, ErrApprovalExpired)
}

// IsStateConflict reports whether the request contradicts the current
// vault state. Resubmitting the same request never helps.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrVaultAlreadyExists) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrNotMinted) ||
		errors.Is(err, ErrInvalidExternalTokenID) ||
		errors.Is(err, ErrAlreadyInitialized) ||
		errors.Is(err, ErrStaleNonce)
}

// IsResource reports whether the value-transfer collaborator refused.
func IsResource(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// HaltError signals that the application detected an irrecoverable
// inconsistency and requests an immediate chain halt.
//
// When the engine receives a HaltError from ExecuteBlock or Commit, it
// must stop consensus and not proceed.
type HaltError struct {
	Reason string
	Height uint64
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("HALT at height %d: %s", e.Height, e.Reason)
}

// NewHaltError creates a new HaltError.
func NewHaltError(height uint64, reason string) *HaltError {
	return &HaltError{Height: height, Reason: reason}
}

// IsHalt checks whether an error is a HaltError and returns it.
func IsHalt(err error) (*HaltError, bool) {
	var h *HaltError
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}
