package txjob

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tabulae/txtabs/core/txtabs"
)

// JobIDMax is the highest job ID ever allocated; the ring wraps back to 1
// past it. ID 0 is reserved so the zero Job value is inert.
const JobIDMax = 999_999

// JobID identifies one submitted job within the current ID ring epoch.
type JobID uint64

// Kind discriminates the job payload variants.
type Kind uint8

// Constants for Kind.
const (
	KindAddTxs Kind = iota + 1
	KindEvictInactive
	KindGetAccounts
	KindGetBaseFee
	KindSetBaseFee
	KindGetGasPrice
	KindSetGasPrice
	KindGetItem
	KindLocusCount
	KindMoveRemoteToLocals
	KindStatsReport
	KindAbort
)

func (k Kind) String() string {
	switch k {
	case KindAddTxs:
		return "add-txs"
	case KindEvictInactive:
		return "evict-inactive"
	case KindGetAccounts:
		return "get-accounts"
	case KindGetBaseFee:
		return "get-base-fee"
	case KindSetBaseFee:
		return "set-base-fee"
	case KindGetGasPrice:
		return "get-gas-price"
	case KindSetGasPrice:
		return "set-gas-price"
	case KindGetItem:
		return "get-item"
	case KindLocusCount:
		return "locus-count"
	case KindMoveRemoteToLocals:
		return "move-remote-to-locals"
	case KindStatsReport:
		return "stats-report"
	case KindAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Payload is one typed job variant. Variants carrying a Reply channel have
// exactly one value sent on it by the worker; fire-and-forget submitters
// may pass a nil channel.
type Payload interface {
	Kind() Kind
}

// Job pairs an allocated ID with its payload.
type Job struct {
	ID      JobID
	Payload Payload
}

// AddTxs stages a batch of transactions. The reply carries one error per
// input transaction, aligned with the batch.
type AddTxs struct {
	Txs    types.Transactions
	Local  bool
	Status txtabs.TxStatus
	Info   string
	Reply  chan []error
}

// EvictInactive throws out remote transactions older than the pool's
// lifetime, replying with the number deleted.
type EvictInactive struct {
	Reply chan int
}

// GetAccounts asks for the sender addresses of one locality partition.
type GetAccounts struct {
	Local bool
	Reply chan []common.Address
}

// GetBaseFee asks for the current base fee; the reply is nil while base-fee
// adjustment is disabled.
type GetBaseFee struct {
	Reply chan *big.Int
}

// SetBaseFee re-values the pool against a new base fee. A nil BaseFee
// disables the adjustment.
type SetBaseFee struct {
	BaseFee *big.Int
}

// GetGasPrice asks for the pool's minimum gas price.
type GetGasPrice struct {
	Reply chan *big.Int
}

// SetGasPrice updates the minimum gas price, replying with how many
// transactions were dropped below the new floor.
type SetGasPrice struct {
	Price *big.Int
	Reply chan int
}

// GetItem looks a transaction up by hash; the reply is nil when unknown.
type GetItem struct {
	Hash  common.Hash
	Reply chan *txtabs.TxItem
}

// LocusReply is the per-partition count pair returned by LocusCount.
type LocusReply struct {
	Local  int
	Remote int
}

// LocusCount asks for the local/remote split of the pool.
type LocusCount struct {
	Reply chan LocusReply
}

// StatsReply is the executable/queued count pair returned by StatsReport.
type StatsReply struct {
	Pending int
	Queued  int
}

// StatsReport asks for the pending/queued totals.
type StatsReport struct {
	Reply chan StatsReply
}

// MoveRemoteToLocals promotes every remote transaction of one sender to the
// local partition, replying with the number moved.
type MoveRemoteToLocals struct {
	Addr  common.Address
	Reply chan int
}

// Abort drains the queue and stops the worker. It is always submitted as a
// priority job.
type Abort struct{}

func (AddTxs) Kind() Kind             { return KindAddTxs }
func (EvictInactive) Kind() Kind      { return KindEvictInactive }
func (GetAccounts) Kind() Kind        { return KindGetAccounts }
func (GetBaseFee) Kind() Kind         { return KindGetBaseFee }
func (SetBaseFee) Kind() Kind         { return KindSetBaseFee }
func (GetGasPrice) Kind() Kind        { return KindGetGasPrice }
func (SetGasPrice) Kind() Kind        { return KindSetGasPrice }
func (GetItem) Kind() Kind            { return KindGetItem }
func (LocusCount) Kind() Kind         { return KindLocusCount }
func (MoveRemoteToLocals) Kind() Kind { return KindMoveRemoteToLocals }
func (StatsReport) Kind() Kind        { return KindStatsReport }
func (Abort) Kind() Kind              { return KindAbort }
