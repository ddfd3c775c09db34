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

// Counts is the incremental bookkeeping returned by Count. Every field is
// maintained on the mutation paths; none is derived by scanning.
type Counts struct {
	Total    int
	Local    int
	Remote   int
	Queued   int
	Pending  int
	Staged   int
	Rejected int
}

// TxTabs is the pool's transaction store: one authoritative hash table and
// four derived indices over the same items, kept consistent by funnelling
// every mutation through this facade. It is not safe for concurrent use;
// the driving worker owns it exclusively and readers outside the worker
// must synchronise at the pool level.
type TxTabs struct {
	signer types.Signer

	// baseFee is what effective tips are currently computed against. A nil
	// base fee disables the adjustment entirely.
	baseFee *big.Int

	all      *lookup      // primary table, hash -> item, split local/remote
	bySender *senderIndex // sender -> nonce-ordered schedule views
	byTip    *priceIndex  // effective tip -> items, rebuilt on rebase
	byTipCap *priceIndex  // unadjusted tip cap -> items

	basket *wastebasket

	byStatus [numStatuses]int

	now func() time.Time
}

// New creates an empty store. Sender recovery uses the given signer;
// maxRejects bounds the wastebasket.
func New(signer types.Signer, maxRejects int) *TxTabs {
	return &TxTabs{
		signer:   signer,
		all:      newLookup(),
		bySender: newSenderIndex(),
		byTip:    newPriceIndex(),
		byTipCap: newPriceIndex(),
		basket:   newWastebasket(maxRejects),
		now:      time.Now,
	}
}

// SetClock replaces the arrival-time source. Tests use it to age items
// deterministically.
func (t *TxTabs) SetClock(now func() time.Time) { t.now = now }

// Add wraps the transaction and inserts it into every index. It fails with
// ErrAlreadyKnown if the hash is already tracked and ErrInvalidSender if
// signature recovery fails; on failure no index is touched.
func (t *TxTabs) Add(tx *types.Transaction, local bool, status TxStatus, info string) (common.Hash, error) {
	hash := tx.Hash()
	if t.all.has(hash) {
		return hash, errors.WithMessagef(ErrAlreadyKnown, "transaction hash %x", hash)
	}
	item, err := newTxItem(tx, t.signer, local, status, info, t.now(), t.baseFee)
	if err != nil {
		return hash, err
	}
	t.insert(item)
	return hash, nil
}

func (t *TxTabs) insert(item *TxItem) {
	t.all.add(item)
	t.bySender.add(item)
	t.byTip.add(item.effectiveTip, item)
	t.byTipCap.add(item.GasTipCap(), item)
	t.byStatus[item.Status()]++
}

// Remove hard-deletes the transaction with the given hash from all indices,
// returning the freed item or nil if the hash is unknown. The derived
// indices are unwired before the primary table gives up ownership.
func (t *TxTabs) Remove(hash common.Hash) *TxItem {
	item, ok := t.all.get(hash)
	if !ok {
		return nil
	}
	t.bySender.remove(item)
	t.byTip.remove(item.effectiveTip, item)
	t.byTipCap.remove(item.GasTipCap(), item)
	t.all.remove(hash)
	t.byStatus[item.Status()]--
	return item
}

// Reject removes the item from the live indices and retains it in the
// wastebasket with the given reason. Rejecting an item that is no longer
// live only refreshes its wastebasket record.
func (t *TxTabs) Reject(item *TxItem, reason error) {
	if live, ok := t.all.get(item.Hash()); ok && live == item {
		t.Remove(item.Hash())
	}
	item.rejectReason = reason
	t.basket.add(item, reason, t.now())
}

// SetLocal moves the item between the locality partitions, preserving its
// identity. The item becomes the newest arrival of its new partition.
func (t *TxTabs) SetLocal(item *TxItem, local bool) {
	if item.Local() == local {
		return
	}
	t.all.reassign(item, local)
	if sl, ok := t.bySender.get(item.Sender()); ok {
		sl.reassignLocal(item, local)
	}
	item.local = local
}

// SetStatus moves the item between the status sub-views of its sender's
// schedule. The other indices are unaffected.
func (t *TxTabs) SetStatus(item *TxItem, status TxStatus) {
	if item.Status() == status {
		return
	}
	if sl, ok := t.bySender.get(item.Sender()); ok {
		sl.reassignStatus(item, status)
	}
	t.byStatus[item.Status()]--
	t.byStatus[status]++
	item.status = status
}

// SetBaseFee re-values every item against the new base fee and rebuilds the
// tip index around the fresh keys. A nil base fee disables the adjustment,
// leaving effective tips equal to the plain tip caps. The recomputation is
// pure arithmetic, so the rebuild cannot fail part-way.
func (t *TxTabs) SetBaseFee(baseFee *big.Int) {
	if baseFee == nil {
		t.baseFee = nil
	} else {
		t.baseFee = new(big.Int).Set(baseFee)
	}
	t.byTip.clear()
	for _, local := range []bool{true, false} {
		t.all.ascend(local, func(item *TxItem) bool {
			item.effectiveTip = effectiveGasTip(item.tx, t.baseFee)
			t.byTip.add(item.effectiveTip, item)
			return true
		})
	}
}

// BaseFee returns a copy of the current base fee, nil when adjustment is
// disabled.
func (t *TxTabs) BaseFee() *big.Int {
	if t.baseFee == nil {
		return nil
	}
	return new(big.Int).Set(t.baseFee)
}

// Count returns the pool-wide bookkeeping tuple.
func (t *TxTabs) Count() Counts {
	return Counts{
		Total:    t.all.total(),
		Local:    t.all.count(true),
		Remote:   t.all.count(false),
		Queued:   t.byStatus[StatusQueued],
		Pending:  t.byStatus[StatusPending],
		Staged:   t.byStatus[StatusStaged],
		Rejected: t.basket.len(),
	}
}

// Len returns the number of live items.
func (t *TxTabs) Len() int { return t.all.total() }

// Get returns the live item with the given hash.
func (t *TxTabs) Get(hash common.Hash) (*TxItem, bool) { return t.all.get(hash) }

// Has reports whether the hash is tracked by a live item.
func (t *TxTabs) Has(hash common.Hash) bool { return t.all.has(hash) }

// BySender returns the schedule of one sender's items.
func (t *TxTabs) BySender(addr common.Address) (*SchedList, bool) { return t.bySender.get(addr) }

// Accounts returns the sender addresses with at least one item in the given
// locality partition.
func (t *TxTabs) Accounts(local bool) []common.Address { return t.bySender.accounts(local) }

// ArrivalAscend walks one locality partition oldest arrival first.
func (t *TxTabs) ArrivalAscend(local bool, fn func(*TxItem) bool) { t.all.ascend(local, fn) }

// ArrivalDescend walks one locality partition newest arrival first.
func (t *TxTabs) ArrivalDescend(local bool, fn func(*TxItem) bool) { t.all.descend(local, fn) }

// OldestArrival returns the first item of a partition in arrival order.
func (t *TxTabs) OldestArrival(local bool) *TxItem { return t.all.first(local) }

// NewestArrival returns the last item of a partition in arrival order.
func (t *TxTabs) NewestArrival(local bool) *TxItem { return t.all.last(local) }

// TipAscend walks all items cheapest effective tip first.
func (t *TxTabs) TipAscend(fn func(tip *big.Int, item *TxItem) bool) { t.byTip.ascend(fn) }

// TipDescend walks all items dearest effective tip first.
func (t *TxTabs) TipDescend(fn func(tip *big.Int, item *TxItem) bool) { t.byTip.descend(fn) }

// TipEq returns the items whose effective tip equals the key.
func (t *TxTabs) TipEq(tip *big.Int) []*TxItem { return t.byTip.eq(tip) }

// TipGe returns the items whose effective tip is at or above the key.
func (t *TxTabs) TipGe(tip *big.Int) []*TxItem { return t.byTip.ge(tip) }

// TipGt returns the items whose effective tip is strictly above the key.
func (t *TxTabs) TipGt(tip *big.Int) []*TxItem { return t.byTip.gt(tip) }

// TipLe returns the items whose effective tip is at or below the key.
func (t *TxTabs) TipLe(tip *big.Int) []*TxItem { return t.byTip.le(tip) }

// TipLt returns the items whose effective tip is strictly below the key.
func (t *TxTabs) TipLt(tip *big.Int) []*TxItem { return t.byTip.lt(tip) }

// MinTip returns the lowest effective tip in the pool, nil when empty.
func (t *TxTabs) MinTip() *big.Int { return t.byTip.min() }

// MaxTip returns the highest effective tip in the pool, nil when empty.
func (t *TxTabs) MaxTip() *big.Int { return t.byTip.max() }

// TipCapAscend walks all items cheapest tip cap first.
func (t *TxTabs) TipCapAscend(fn func(cap *big.Int, item *TxItem) bool) { t.byTipCap.ascend(fn) }

// TipCapDescend walks all items dearest tip cap first.
func (t *TxTabs) TipCapDescend(fn func(cap *big.Int, item *TxItem) bool) { t.byTipCap.descend(fn) }

// TipCapLt returns the items whose tip cap is strictly below the key; this
// is the "remotes below threshold" primitive of the gossip filter and the
// gas-price floor.
func (t *TxTabs) TipCapLt(cap *big.Int) []*TxItem { return t.byTipCap.lt(cap) }

// TipCapLe returns the items whose tip cap is at or below the key.
func (t *TxTabs) TipCapLe(cap *big.Int) []*TxItem { return t.byTipCap.le(cap) }

// TipCapEq returns the items whose tip cap equals the key.
func (t *TxTabs) TipCapEq(cap *big.Int) []*TxItem { return t.byTipCap.eq(cap) }

// TipCapGe returns the items whose tip cap is at or above the key.
func (t *TxTabs) TipCapGe(cap *big.Int) []*TxItem { return t.byTipCap.ge(cap) }

// TipCapGt returns the items whose tip cap is strictly above the key.
func (t *TxTabs) TipCapGt(cap *big.Int) []*TxItem { return t.byTipCap.gt(cap) }

// Rejects returns the wastebasket records, oldest rejection first.
func (t *TxTabs) Rejects() []*RejectReport { return t.basket.report() }

// RejectsContain reports whether the hash has a wastebasket record.
func (t *TxTabs) RejectsContain(hash common.Hash) bool { return t.basket.contains(hash) }

// ForgiveReject drops a hash's wastebasket record, used when a previously
// rejected transaction is resubmitted.
func (t *TxTabs) ForgiveReject(hash common.Hash) { t.basket.remove(hash) }

// FlushRejects empties the wastebasket, returning how many records were
// discarded and the basket's capacity.
func (t *TxTabs) FlushRejects() (int, int) {
	return t.basket.flush(), t.basket.capacity
}
