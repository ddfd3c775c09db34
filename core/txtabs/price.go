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
	"math/big"

	"github.com/google/btree"
)

const priceTreeDegree = 32

// priceBucket groups the items sharing one price key, nonce-ordered. The
// pool keeps two price indices over the same items: one keyed by the
// effective tip (rebuilt when the base fee moves), one keyed by the
// unadjusted tip cap (stable across base-fee changes).
type priceBucket struct {
	price *big.Int
	items *nonceList
}

// priceIndex is a balanced ordered price -> nonceList multimap. The key for
// each item is supplied by the caller, so the same structure serves both the
// effective-tip and the tip-cap index.
type priceIndex struct {
	tree *btree.BTreeG[*priceBucket]
	size int
}

func newPriceIndex() *priceIndex {
	return &priceIndex{
		tree: btree.NewG(priceTreeDegree, func(a, b *priceBucket) bool {
			return a.price.Cmp(b.price) < 0
		}),
	}
}

func (pi *priceIndex) add(price *big.Int, item *TxItem) {
	pivot := &priceBucket{price: price}
	bucket, ok := pi.tree.Get(pivot)
	if !ok {
		bucket = &priceBucket{price: new(big.Int).Set(price), items: newNonceList()}
		pi.tree.ReplaceOrInsert(bucket)
	}
	bucket.items.add(item)
	pi.size++
}

func (pi *priceIndex) remove(price *big.Int, item *TxItem) bool {
	bucket, ok := pi.tree.Get(&priceBucket{price: price})
	if !ok || !bucket.items.remove(item) {
		return false
	}
	if bucket.items.len() == 0 {
		pi.tree.Delete(bucket)
	}
	pi.size--
	return true
}

func (pi *priceIndex) contains(price *big.Int, item *TxItem) bool {
	bucket, ok := pi.tree.Get(&priceBucket{price: price})
	return ok && bucket.items.contains(item)
}

func (pi *priceIndex) len() int { return pi.size }

// clear drops all buckets; used when the index is rebuilt after a base-fee
// change.
func (pi *priceIndex) clear() {
	pi.tree.Clear(false)
	pi.size = 0
}

// ascend walks all items in increasing price order; ties break by nonce,
// then arrival.
func (pi *priceIndex) ascend(fn func(price *big.Int, item *TxItem) bool) {
	pi.tree.Ascend(func(bucket *priceBucket) bool {
		done := false
		bucket.items.ascend(func(item *TxItem) bool {
			if !fn(bucket.price, item) {
				done = true
			}
			return !done
		})
		return !done
	})
}

// descend walks all items in decreasing price order, the exact reverse of
// ascend.
func (pi *priceIndex) descend(fn func(price *big.Int, item *TxItem) bool) {
	pi.tree.Descend(func(bucket *priceBucket) bool {
		done := false
		bucket.items.descend(func(item *TxItem) bool {
			if !fn(bucket.price, item) {
				done = true
			}
			return !done
		})
		return !done
	})
}

// eq returns the items priced exactly at the given key, nonce-ordered.
func (pi *priceIndex) eq(price *big.Int) []*TxItem {
	bucket, ok := pi.tree.Get(&priceBucket{price: price})
	if !ok {
		return nil
	}
	return bucket.items.flatten()
}

// ge returns the items priced at or above the key, ascending.
func (pi *priceIndex) ge(price *big.Int) []*TxItem {
	var out []*TxItem
	pi.tree.AscendGreaterOrEqual(&priceBucket{price: price}, func(bucket *priceBucket) bool {
		out = append(out, bucket.items.flatten()...)
		return true
	})
	return out
}

// gt returns the items priced strictly above the key, ascending.
func (pi *priceIndex) gt(price *big.Int) []*TxItem {
	var out []*TxItem
	pi.tree.AscendGreaterOrEqual(&priceBucket{price: price}, func(bucket *priceBucket) bool {
		if bucket.price.Cmp(price) == 0 {
			return true
		}
		out = append(out, bucket.items.flatten()...)
		return true
	})
	return out
}

// lt returns the items priced strictly below the key, ascending.
func (pi *priceIndex) lt(price *big.Int) []*TxItem {
	var out []*TxItem
	pi.tree.AscendLessThan(&priceBucket{price: price}, func(bucket *priceBucket) bool {
		out = append(out, bucket.items.flatten()...)
		return true
	})
	return out
}

// le returns the items priced at or below the key, ascending.
func (pi *priceIndex) le(price *big.Int) []*TxItem {
	out := pi.lt(price)
	return append(out, pi.eq(price)...)
}

// min returns the lowest price key, nil when the index is empty.
func (pi *priceIndex) min() *big.Int {
	bucket, ok := pi.tree.Min()
	if !ok {
		return nil
	}
	return bucket.price
}

// max returns the highest price key, nil when the index is empty.
func (pi *priceIndex) max() *big.Int {
	bucket, ok := pi.tree.Max()
	if !ok {
		return nil
	}
	return bucket.price
}
