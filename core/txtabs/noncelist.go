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
	"github.com/google/btree"
)

const nonceTreeDegree = 32

// itemList is an insertion-ordered list of items sharing one grouping key,
// typically a (sender, nonce) pair. The pool permits several items with the
// same sender and nonce; replacement resolution happens above the store.
type itemList struct {
	items []*TxItem
}

func (l *itemList) add(item *TxItem) {
	l.items = append(l.items, item)
}

// remove unlinks the item by identity, preserving the order of the rest.
func (l *itemList) remove(item *TxItem) bool {
	for i, it := range l.items {
		if it == item {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

func (l *itemList) contains(item *TxItem) bool {
	for _, it := range l.items {
		if it == item {
			return true
		}
	}
	return false
}

func (l *itemList) len() int { return len(l.items) }

// nonceBucket groups the items of one nonce inside a nonceList.
type nonceBucket struct {
	nonce uint64
	items itemList
}

// nonceList is an ordered nonce -> itemList multimap. It backs both the
// per-sender schedule views and the per-tip buckets of the tip indices, so
// it makes no assumption about its items sharing a sender.
type nonceList struct {
	tree *btree.BTreeG[*nonceBucket]
	size int
}

func newNonceList() *nonceList {
	return &nonceList{
		tree: btree.NewG(nonceTreeDegree, func(a, b *nonceBucket) bool {
			return a.nonce < b.nonce
		}),
	}
}

func (nl *nonceList) add(item *TxItem) {
	pivot := &nonceBucket{nonce: item.Nonce()}
	bucket, ok := nl.tree.Get(pivot)
	if !ok {
		bucket = pivot
		nl.tree.ReplaceOrInsert(bucket)
	}
	bucket.items.add(item)
	nl.size++
}

func (nl *nonceList) remove(item *TxItem) bool {
	bucket, ok := nl.tree.Get(&nonceBucket{nonce: item.Nonce()})
	if !ok || !bucket.items.remove(item) {
		return false
	}
	if bucket.items.len() == 0 {
		nl.tree.Delete(bucket)
	}
	nl.size--
	return true
}

func (nl *nonceList) contains(item *TxItem) bool {
	bucket, ok := nl.tree.Get(&nonceBucket{nonce: item.Nonce()})
	return ok && bucket.items.contains(item)
}

func (nl *nonceList) len() int { return nl.size }

// eq returns the items with exactly the given nonce, in arrival order.
func (nl *nonceList) eq(nonce uint64) []*TxItem {
	bucket, ok := nl.tree.Get(&nonceBucket{nonce: nonce})
	if !ok {
		return nil
	}
	out := make([]*TxItem, len(bucket.items.items))
	copy(out, bucket.items.items)
	return out
}

// first returns the item with the lowest nonce, oldest first on ties.
func (nl *nonceList) first() *TxItem {
	bucket, ok := nl.tree.Min()
	if !ok {
		return nil
	}
	return bucket.items.items[0]
}

// last returns the item with the highest nonce, newest first on ties.
func (nl *nonceList) last() *TxItem {
	bucket, ok := nl.tree.Max()
	if !ok {
		return nil
	}
	return bucket.items.items[len(bucket.items.items)-1]
}

// ascend walks the items in increasing nonce order, arrival order within a
// nonce, until fn returns false.
func (nl *nonceList) ascend(fn func(*TxItem) bool) {
	nl.tree.Ascend(func(bucket *nonceBucket) bool {
		for _, item := range bucket.items.items {
			if !fn(item) {
				return false
			}
		}
		return true
	})
}

// descend walks the items in decreasing nonce order, reverse arrival order
// within a nonce, until fn returns false. It is the exact reverse of ascend.
func (nl *nonceList) descend(fn func(*TxItem) bool) {
	nl.tree.Descend(func(bucket *nonceBucket) bool {
		for i := len(bucket.items.items) - 1; i >= 0; i-- {
			if !fn(bucket.items.items[i]) {
				return false
			}
		}
		return true
	})
}

// flatten returns all items in ascending nonce order.
func (nl *nonceList) flatten() []*TxItem {
	out := make([]*TxItem, 0, nl.size)
	nl.ascend(func(item *TxItem) bool {
		out = append(out, item)
		return true
	})
	return out
}
