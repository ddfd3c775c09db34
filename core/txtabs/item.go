// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package txtabs

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// TxStatus is the scheduling state of a transaction within the pool.
type TxStatus uint8

// Constants for TxStatus.
const (
	StatusQueued TxStatus = iota
	StatusPending
	StatusStaged
)

const numStatuses = 3

func (s TxStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusPending:
		return "pending"
	case StatusStaged:
		return "staged"
	default:
		return "unknown"
	}
}

// TxItem wraps one transaction together with the metadata the pool keeps for
// it. The transaction, hash, sender, info string and arrival time are fixed
// at construction; locality and status may only be changed through the
// TxTabs reassign methods so that the indices stay in agreement, and the
// reject reason is set once when the item is moved to the wastebasket.
type TxItem struct {
	tx     *types.Transaction
	hash   common.Hash
	sender common.Address
	local  bool
	status TxStatus
	time   time.Time
	info   string

	rejectReason error

	// effectiveTip caches the tip against the pool's current base fee. It
	// is recomputed by TxTabs whenever the base fee changes and must never
	// be mutated elsewhere, since it is the key of the tip index.
	effectiveTip *big.Int
}

// newTxItem recovers the sender of the given transaction and wraps it for
// storage. Recovery failure surfaces as ErrInvalidSender.
func newTxItem(tx *types.Transaction, signer types.Signer, local bool, status TxStatus, info string, arrived time.Time, baseFee *big.Int) (*TxItem, error) {
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, errors.WithMessagef(ErrInvalidSender, "transaction hash %x", tx.Hash())
	}
	return &TxItem{
		tx:           tx,
		hash:         tx.Hash(),
		sender:       sender,
		local:        local,
		status:       status,
		time:         arrived,
		info:         info,
		effectiveTip: effectiveGasTip(tx, baseFee),
	}, nil
}

// Tx returns the wrapped transaction.
func (item *TxItem) Tx() *types.Transaction { return item.tx }

// Hash returns the transaction hash, the item's unique key in the pool.
func (item *TxItem) Hash() common.Hash { return item.hash }

// Sender returns the address recovered from the signature at insert time.
func (item *TxItem) Sender() common.Address { return item.sender }

// Local reports whether the item came from a local submitter.
func (item *TxItem) Local() bool { return item.local }

// Status returns the item's scheduling state.
func (item *TxItem) Status() TxStatus { return item.status }

// Time returns the arrival time of the item.
func (item *TxItem) Time() time.Time { return item.time }

// Info returns the diagnostic string the item was inserted with.
func (item *TxItem) Info() string { return item.info }

// Nonce is a shortcut for the wrapped transaction's nonce.
func (item *TxItem) Nonce() uint64 { return item.tx.Nonce() }

// RejectReason returns why the item was moved to the wastebasket, or nil for
// live items.
func (item *TxItem) RejectReason() error { return item.rejectReason }

// EffectiveTip returns the tip cached against the pool's current base fee.
func (item *TxItem) EffectiveTip() *big.Int { return item.effectiveTip }

// GasTipCap returns the unadjusted tip cap used as the tip-cap index key:
// the max priority fee for dynamic-fee transactions, the gas price for
// legacy ones.
func (item *TxItem) GasTipCap() *big.Int { return item.tx.GasTipCap() }

// effectiveGasTip computes min(gasTipCap, gasFeeCap-baseFee), which may be
// negative for dynamic-fee transactions whose fee cap is below the base fee.
// A nil base fee disables the adjustment and yields the plain tip cap (the
// gas price for legacy transactions).
func effectiveGasTip(tx *types.Transaction, baseFee *big.Int) *big.Int {
	if baseFee == nil {
		return tx.GasTipCap()
	}
	return tx.EffectiveGasTipValue(baseFee)
}
