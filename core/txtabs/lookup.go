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
	"container/list"

	"github.com/ethereum/go-ethereum/common"
)

// lookupPart is one locality partition of the primary table: a hash map
// paired with an arrival-ordered list kept in lock-step, so the pool can
// both find transactions in O(1) and walk them oldest-first for eviction.
type lookupPart struct {
	order  *list.List // of *TxItem, oldest at the front
	byHash map[common.Hash]*list.Element
}

func newLookupPart() lookupPart {
	return lookupPart{
		order:  list.New(),
		byHash: make(map[common.Hash]*list.Element),
	}
}

func (p *lookupPart) add(item *TxItem) {
	p.byHash[item.Hash()] = p.order.PushBack(item)
}

func (p *lookupPart) remove(hash common.Hash) *TxItem {
	elem, ok := p.byHash[hash]
	if !ok {
		return nil
	}
	delete(p.byHash, hash)
	return p.order.Remove(elem).(*TxItem)
}

func (p *lookupPart) get(hash common.Hash) (*TxItem, bool) {
	elem, ok := p.byHash[hash]
	if !ok {
		return nil, false
	}
	return elem.Value.(*TxItem), true
}

// lookup is the authoritative transaction table, split into a local and a
// remote partition. Every live item is reachable through exactly one
// partition; the other indices hold non-owning references into this one.
type lookup struct {
	locals  lookupPart
	remotes lookupPart
}

func newLookup() *lookup {
	return &lookup{
		locals:  newLookupPart(),
		remotes: newLookupPart(),
	}
}

func (l *lookup) part(local bool) *lookupPart {
	if local {
		return &l.locals
	}
	return &l.remotes
}

// add appends the item to the partition matching its locality flag and
// fails with ErrAlreadyKnown if the hash is tracked in either partition.
func (l *lookup) add(item *TxItem) error {
	if l.has(item.Hash()) {
		return ErrAlreadyKnown
	}
	l.part(item.Local()).add(item)
	return nil
}

// remove deletes the item with the given hash from whichever partition
// holds it, returning the removed item or nil.
func (l *lookup) remove(hash common.Hash) *TxItem {
	if item := l.locals.remove(hash); item != nil {
		return item
	}
	return l.remotes.remove(hash)
}

func (l *lookup) get(hash common.Hash) (*TxItem, bool) {
	if item, ok := l.locals.get(hash); ok {
		return item, true
	}
	return l.remotes.get(hash)
}

func (l *lookup) has(hash common.Hash) bool {
	_, ok := l.get(hash)
	return ok
}

func (l *lookup) count(local bool) int {
	return len(l.part(local).byHash)
}

func (l *lookup) total() int {
	return len(l.locals.byHash) + len(l.remotes.byHash)
}

// first returns the oldest item of a partition, nil when empty.
func (l *lookup) first(local bool) *TxItem {
	front := l.part(local).order.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*TxItem)
}

// last returns the newest item of a partition, nil when empty.
func (l *lookup) last(local bool) *TxItem {
	back := l.part(local).order.Back()
	if back == nil {
		return nil
	}
	return back.Value.(*TxItem)
}

// ascend walks a partition in arrival order, oldest first, until fn returns
// false.
func (l *lookup) ascend(local bool, fn func(*TxItem) bool) {
	for elem := l.part(local).order.Front(); elem != nil; elem = elem.Next() {
		if !fn(elem.Value.(*TxItem)) {
			return
		}
	}
}

// descend walks a partition newest first, until fn returns false.
func (l *lookup) descend(local bool, fn func(*TxItem) bool) {
	for elem := l.part(local).order.Back(); elem != nil; elem = elem.Prev() {
		if !fn(elem.Value.(*TxItem)) {
			return
		}
	}
}

// reassign moves the item between partitions. The item becomes the newest
// entry of its destination, since the move time is its new arrival there.
// The caller flips the item's locality flag; this only rewires the table.
func (l *lookup) reassign(item *TxItem, local bool) {
	if item.Local() == local {
		return
	}
	l.part(item.Local()).remove(item.Hash())
	l.part(local).add(item)
}
