package txtabs

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tabulae/txtabs/internal/utils"
)

// RejectReport is the diagnostic record kept for a transaction after it has
// been thrown out of the pool.
type RejectReport struct {
	Hash     common.Hash `json:"tx-hash-id"`
	Sender   common.Address
	Reason   string    `json:"error-message"`
	Rejected time.Time `json:"time-at-rejection"`
}

// wastebasket retains the most recently rejected items together with their
// reasons. It is a bounded buffer: entries are only ever appended and aged
// out oldest-first once the capacity is exceeded, so the lru cache behaves
// as the FIFO the reporting side expects.
type wastebasket struct {
	reports  *lru.Cache
	capacity int
}

func newWastebasket(capacity int) *wastebasket {
	reports, _ := lru.New(capacity)
	return &wastebasket{reports: reports, capacity: capacity}
}

func (b *wastebasket) add(item *TxItem, reason error, at time.Time) {
	b.reports.Add(item.Hash(), &RejectReport{
		Hash:     item.Hash(),
		Sender:   item.Sender(),
		Reason:   reason.Error(),
		Rejected: at,
	})
	utils.Logger().Debug().
		Str("hash", item.Hash().Hex()).
		Err(reason).
		Msg("Transaction moved to the wastebasket")
}

func (b *wastebasket) contains(hash common.Hash) bool {
	return b.reports.Contains(hash)
}

func (b *wastebasket) remove(hash common.Hash) {
	b.reports.Remove(hash)
}

func (b *wastebasket) len() int { return b.reports.Len() }

// flush empties the basket and returns how many entries were discarded.
func (b *wastebasket) flush() int {
	flushed := b.reports.Len()
	b.reports.Purge()
	return flushed
}

// report returns the retained records, oldest rejection first.
func (b *wastebasket) report() []*RejectReport {
	out := make([]*RejectReport, 0, b.reports.Len())
	for _, key := range b.reports.Keys() {
		record, ok := b.reports.Get(key)
		if !ok {
			continue
		}
		out = append(out, record.(*RejectReport))
	}
	return out
}
