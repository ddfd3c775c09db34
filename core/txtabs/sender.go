// Copyright 2016 The go-ethereum Authors
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
	"github.com/ethereum/go-ethereum/common"
)

// SchedList holds every pooled transaction of one sender, exposed through
// three orthogonal nonce-ordered views: all items, items split by locality,
// and items split by scheduling status. Each item is present in exactly one
// sub-view per facet, so callers get filtered counts and iteration without
// rescanning.
type SchedList struct {
	any      *nonceList
	byLocal  [2]*nonceList
	byStatus [numStatuses]*nonceList
}

func newSchedList() *SchedList {
	sl := &SchedList{any: newNonceList()}
	for i := range sl.byLocal {
		sl.byLocal[i] = newNonceList()
	}
	for i := range sl.byStatus {
		sl.byStatus[i] = newNonceList()
	}
	return sl
}

func localIdx(local bool) int {
	if local {
		return 1
	}
	return 0
}

func (sl *SchedList) add(item *TxItem) {
	sl.any.add(item)
	sl.byLocal[localIdx(item.Local())].add(item)
	sl.byStatus[item.Status()].add(item)
}

func (sl *SchedList) remove(item *TxItem) bool {
	if !sl.any.remove(item) {
		return false
	}
	sl.byLocal[localIdx(item.Local())].remove(item)
	sl.byStatus[item.Status()].remove(item)
	return true
}

// reassignLocal rehomes the item between the locality sub-views. It must be
// called before the item's flag is flipped.
func (sl *SchedList) reassignLocal(item *TxItem, local bool) {
	if item.Local() == local {
		return
	}
	sl.byLocal[localIdx(item.Local())].remove(item)
	sl.byLocal[localIdx(local)].add(item)
}

// reassignStatus rehomes the item between the status sub-views. It must be
// called before the item's status is updated.
func (sl *SchedList) reassignStatus(item *TxItem, status TxStatus) {
	if item.Status() == status {
		return
	}
	sl.byStatus[item.Status()].remove(item)
	sl.byStatus[status].add(item)
}

// Len returns the number of items this sender has in the pool.
func (sl *SchedList) Len() int { return sl.any.len() }

// LenLocal returns the number of items in one locality partition.
func (sl *SchedList) LenLocal(local bool) int { return sl.byLocal[localIdx(local)].len() }

// LenStatus returns the number of items with the given status.
func (sl *SchedList) LenStatus(status TxStatus) int { return sl.byStatus[status].len() }

// Eq returns the items with exactly the given nonce, oldest first.
func (sl *SchedList) Eq(nonce uint64) []*TxItem { return sl.any.eq(nonce) }

// First returns the sender's lowest-nonce item, nil when empty.
func (sl *SchedList) First() *TxItem { return sl.any.first() }

// Last returns the sender's highest-nonce item, nil when empty.
func (sl *SchedList) Last() *TxItem { return sl.any.last() }

// Ascend walks all of the sender's items in increasing nonce order.
func (sl *SchedList) Ascend(fn func(*TxItem) bool) { sl.any.ascend(fn) }

// Descend walks all of the sender's items in decreasing nonce order.
func (sl *SchedList) Descend(fn func(*TxItem) bool) { sl.any.descend(fn) }

// AscendLocal walks one locality partition in increasing nonce order.
func (sl *SchedList) AscendLocal(local bool, fn func(*TxItem) bool) {
	sl.byLocal[localIdx(local)].ascend(fn)
}

// AscendStatus walks one status partition in increasing nonce order.
func (sl *SchedList) AscendStatus(status TxStatus, fn func(*TxItem) bool) {
	sl.byStatus[status].ascend(fn)
}

// DescendStatus walks one status partition in decreasing nonce order.
func (sl *SchedList) DescendStatus(status TxStatus, fn func(*TxItem) bool) {
	sl.byStatus[status].descend(fn)
}

// Flatten returns a copy of all the sender's items in nonce order.
func (sl *SchedList) Flatten() []*TxItem { return sl.any.flatten() }

// senderIndex groups the pool's items by recovered sender address.
type senderIndex struct {
	senders map[common.Address]*SchedList
}

func newSenderIndex() *senderIndex {
	return &senderIndex{senders: make(map[common.Address]*SchedList)}
}

func (idx *senderIndex) add(item *TxItem) {
	sl, ok := idx.senders[item.Sender()]
	if !ok {
		sl = newSchedList()
		idx.senders[item.Sender()] = sl
	}
	sl.add(item)
}

func (idx *senderIndex) remove(item *TxItem) bool {
	sl, ok := idx.senders[item.Sender()]
	if !ok || !sl.remove(item) {
		return false
	}
	if sl.Len() == 0 {
		delete(idx.senders, item.Sender())
	}
	return true
}

func (idx *senderIndex) get(addr common.Address) (*SchedList, bool) {
	sl, ok := idx.senders[addr]
	return sl, ok
}

func (idx *senderIndex) len() int { return len(idx.senders) }

// accounts returns the addresses with at least one item in the given
// locality partition.
func (idx *senderIndex) accounts(local bool) []common.Address {
	var out []common.Address
	for addr, sl := range idx.senders {
		if sl.LenLocal(local) > 0 {
			out = append(out, addr)
		}
	}
	return out
}
