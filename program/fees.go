package program

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/blockberries/emblem/ledger"
)

// LamportDecimals is the number of decimal places between the base
// unit and the display unit.
const LamportDecimals = 9

// FormatLamports renders an amount in display units.
func FormatLamports(amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -LamportDecimals).String()
}

// collectFee moves price from payer to receiver. A zero price moves
// nothing.
func collectFee(ctx *ledger.InvokeContext, payer, receiver solana.PublicKey, price uint64) error {
	if price == 0 {
		return nil
	}
	if err := ctx.Transfer(payer, receiver, price); err != nil {
		return fmt.Errorf("collect fee: %w", err)
	}
	return nil
}
