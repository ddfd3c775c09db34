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

// Verify walks every index and reports the first cross-index disagreement
// found, naming the index at fault. It is meant for tests and debug builds;
// a non-nil return from a production pool is a programming bug, never a
// recoverable condition.
func (t *TxTabs) Verify() error {
	var (
		seen     = 0
		byStatus [numStatuses]int
	)
	for _, local := range []bool{true, false} {
		local := local
		var err error
		t.all.ascend(local, func(item *TxItem) bool {
			seen++
			byStatus[item.Status()]++
			err = t.verifyItem(item, local)
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	if got := t.bySenderLen(); got != seen {
		return errors.Errorf("sender index disagrees with primary table: %d items vs %d", got, seen)
	}
	if got := t.byTip.len(); got != seen {
		return errors.Errorf("tip index disagrees with primary table: %d items vs %d", got, seen)
	}
	if got := t.byTipCap.len(); got != seen {
		return errors.Errorf("tip-cap index disagrees with primary table: %d items vs %d", got, seen)
	}
	for st, n := range byStatus {
		if t.byStatus[st] != n {
			return errors.Errorf("%v counter disagrees with primary table: %d vs %d", TxStatus(st), t.byStatus[st], n)
		}
	}
	return nil
}

func (t *TxTabs) verifyItem(item *TxItem, local bool) error {
	hash := item.Hash()
	if item.Local() != local {
		return errors.Errorf("primary table: item %x in %s partition flagged local=%v", hash, partName(local), item.Local())
	}
	if other, ok := t.all.part(!local).get(hash); ok && other != nil {
		return errors.Errorf("primary table: item %x present in both partitions", hash)
	}
	sl, ok := t.bySender.get(item.Sender())
	if !ok {
		return errors.Errorf("sender index: no schedule for sender of item %x", hash)
	}
	if !sl.any.contains(item) {
		return errors.Errorf("sender index: item %x missing from the any view", hash)
	}
	if !sl.byLocal[localIdx(item.Local())].contains(item) {
		return errors.Errorf("sender index: item %x missing from the %s view", hash, partName(item.Local()))
	}
	if !sl.byStatus[item.Status()].contains(item) {
		return errors.Errorf("sender index: item %x missing from the %v view", hash, item.Status())
	}
	if !t.byTip.contains(item.effectiveTip, item) {
		return errors.Errorf("tip index: item %x missing at tip %v", hash, item.effectiveTip)
	}
	if !t.byTipCap.contains(item.GasTipCap(), item) {
		return errors.Errorf("tip-cap index: item %x missing at cap %v", hash, item.GasTipCap())
	}
	return nil
}

func (t *TxTabs) bySenderLen() int {
	total := 0
	for _, sl := range t.bySender.senders {
		total += sl.Len()
	}
	return total
}

func partName(local bool) string {
	if local {
		return "local"
	}
	return "remote"
}
