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
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyKnown is returned if a transaction with the same hash is
	// already tracked by the pool.
	ErrAlreadyKnown = errors.New("known transaction")

	// ErrInvalidSender is returned if the transaction contains an invalid
	// signature.
	ErrInvalidSender = errors.New("invalid sender")

	// ErrUnderpriced is returned if a transaction's gas price is below the
	// minimum configured for the transaction pool.
	ErrUnderpriced = errors.New("transaction underpriced")

	// ErrTxPoolOverflow is returned if the pool is full and the incoming
	// remote transaction cannot displace anything cheaper.
	ErrTxPoolOverflow = errors.New("txpool is full")

	// ErrReplaceUnderpriced is returned if a transaction is attempted to be
	// replaced with a different one without the required price bump.
	ErrReplaceUnderpriced = errors.New("replacement transaction underpriced")

	// ErrGasLimit is returned if a transaction's requested gas limit exceeds
	// the maximum allowance of the current block.
	ErrGasLimit = errors.New("exceeds block gas limit")

	// ErrNegativeValue is a sanity error to ensure no one is able to specify
	// a transaction with a negative value.
	ErrNegativeValue = errors.New("negative value")

	// ErrOversizedData is returned if the input data of a transaction is
	// greater than some meaningful limit a user might use. This is not a
	// consensus error making the transaction invalid, rather a DoS
	// protection.
	ErrOversizedData = errors.New("oversized data")
)

// ErrCode is the wire-level classification of a pool error, reported back to
// batch submitters aligned with their input.
type ErrCode uint

// Constants for ErrCode.
const (
	CodeNone ErrCode = iota
	CodeUnspecified
	CodeAlreadyKnown
	CodeInvalidSender
	CodeUnderpriced
	CodeTxPoolOverflow
	CodeReplaceUnderpriced
	CodeGasLimit
	CodeNegativeValue
	CodeOversizedData
)

func (c ErrCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeAlreadyKnown:
		return "already-known"
	case CodeInvalidSender:
		return "invalid-sender"
	case CodeUnderpriced:
		return "underpriced"
	case CodeTxPoolOverflow:
		return "txpool-overflow"
	case CodeReplaceUnderpriced:
		return "replace-underpriced"
	case CodeGasLimit:
		return "gas-limit"
	case CodeNegativeValue:
		return "negative-value"
	case CodeOversizedData:
		return "oversized-data"
	default:
		return "unspecified"
	}
}

// CodeOf maps an error returned by the pool onto its wire code. A nil error
// maps to CodeNone, unknown errors to CodeUnspecified. Wrapped errors are
// unwrapped to their root cause first.
func CodeOf(err error) ErrCode {
	switch errors.Cause(err) {
	case nil:
		return CodeNone
	case ErrAlreadyKnown:
		return CodeAlreadyKnown
	case ErrInvalidSender:
		return CodeInvalidSender
	case ErrUnderpriced:
		return CodeUnderpriced
	case ErrTxPoolOverflow:
		return CodeTxPoolOverflow
	case ErrReplaceUnderpriced:
		return CodeReplaceUnderpriced
	case ErrGasLimit:
		return CodeGasLimit
	case ErrNegativeValue:
		return CodeNegativeValue
	case ErrOversizedData:
		return CodeOversizedData
	default:
		return CodeUnspecified
	}
}
