// Copyright 2015 The go-ethereum Authors
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

package core

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/tabulae/txtabs/core/txjob"
	"github.com/tabulae/txtabs/core/txtabs"
)

var (
	testChainID      = big.NewInt(1)
	testTxPoolConfig = func() TxPoolConfig {
		config := DefaultTxPoolConfig
		config.PriceLimit = 1
		return config
	}()
)

func testSigner() types.Signer {
	return types.LatestSignerForChainID(testChainID)
}

// testState is an in-memory stand-in for the chain-head database the pool
// classifies against.
type testState struct {
	mu       sync.Mutex
	nonces   map[common.Address]uint64
	balances map[common.Address]*big.Int
	maxGas   uint64
}

func newTestState() *testState {
	return &testState{
		nonces:   make(map[common.Address]uint64),
		balances: make(map[common.Address]*big.Int),
		maxGas:   10_000_000,
	}
}

func (s *testState) GetNonce(addr common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[addr]
}

func (s *testState) GetBalance(addr common.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bal, ok := s.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

func (s *testState) MaxGas() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxGas
}

func (s *testState) setBalance(addr common.Address, bal *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] = bal
}

func (s *testState) setNonce(addr common.Address, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[addr] = nonce
}

// fakeClock hands out strictly increasing timestamps and can be advanced to
// age pooled transactions on demand.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Millisecond)
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func setupTxPool(t *testing.T, config TxPoolConfig) (*TxPool, *testState, *fakeClock) {
	state := newTestState()
	pool := NewTxPool(config, testChainID, state)
	clock := newFakeClock()
	pool.now = clock.now
	pool.tabs.SetClock(clock.now)
	t.Cleanup(pool.Stop)
	return pool, state, clock
}

func fundedKey(t *testing.T, state *testState) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	state.setBalance(crypto.PubkeyToAddress(key.PublicKey), big.NewInt(1).Lsh(big.NewInt(1), 80))
	return key
}

func pricedTransaction(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, gasPrice int64) *types.Transaction {
	return pricedValuedTransaction(t, key, nonce, gasPrice, 100)
}

func pricedValuedTransaction(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, gasPrice, value int64) *types.Transaction {
	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(gasPrice),
		Gas:      21000,
		To:       &common.Address{},
		Value:    big.NewInt(value),
	}), testSigner(), key)
	require.NoError(t, err)
	return tx
}

func dataTransaction(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, size int) *types.Transaction {
	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(100),
		Gas:      10_000_000,
		To:       &common.Address{},
		Value:    big.NewInt(0),
		Data:     make([]byte, size),
	}), testSigner(), key)
	require.NoError(t, err)
	return tx
}

// validatePoolInternals cross-checks the store's indices and counters; most
// driver tests end by running it.
func validatePoolInternals(t *testing.T, pool *TxPool) {
	pool.mu.RLock()
	defer pool.mu.RUnlock()
	require.NoError(t, pool.tabs.Verify())
}

func TestAddRemoteValid(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	tx := pricedTransaction(t, key, 0, 100)
	require.NoError(t, pool.AddRemote(tx))

	item, ok := pool.Get(tx.Hash())
	require.True(t, ok)
	require.False(t, item.Local())
	require.Equal(t, txtabs.StatusPending, item.Status())
	validatePoolInternals(t, pool)
}

func TestAddDuplicate(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	tx := pricedTransaction(t, key, 0, 100)
	require.NoError(t, pool.AddRemote(tx))
	err := pool.AddRemote(tx)
	require.Equal(t, txtabs.ErrAlreadyKnown, errors.Cause(err))
	require.Equal(t, 1, pool.Count().Total)
	validatePoolInternals(t, pool)
}

func TestOversizedData(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	err := pool.AddRemote(dataTransaction(t, key, 0, 64*1024))
	require.Equal(t, txtabs.ErrOversizedData, errors.Cause(err))
	require.Equal(t, txtabs.CodeOversizedData, txtabs.CodeOf(err))
	validatePoolInternals(t, pool)
}

func TestNegativeValue(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	err := pool.AddRemote(pricedValuedTransaction(t, key, 0, 100, -1))
	require.Equal(t, txtabs.ErrNegativeValue, errors.Cause(err))
	validatePoolInternals(t, pool)
}

func TestGasLimitExceeded(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(100),
		Gas:      20_000_000,
		To:       &common.Address{},
		Value:    big.NewInt(0),
	}), testSigner(), key)
	require.NoError(t, err)

	err = pool.AddRemote(tx)
	require.Equal(t, txtabs.ErrGasLimit, errors.Cause(err))
	validatePoolInternals(t, pool)
}

func TestUnderpricedRemoteLocalExempt(t *testing.T) {
	config := testTxPoolConfig
	config.PriceLimit = 1000
	pool, state, _ := setupTxPool(t, config)
	key := fundedKey(t, state)

	err := pool.AddRemote(pricedTransaction(t, key, 0, 100))
	require.Equal(t, txtabs.ErrUnderpriced, errors.Cause(err))

	// The same price clears the bar for a local submitter
	require.NoError(t, pool.AddLocal(pricedTransaction(t, key, 0, 100)))
	require.Equal(t, 1, pool.Count().Local)
	validatePoolInternals(t, pool)
}

func TestNonceTooLow(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)
	state.setNonce(crypto.PubkeyToAddress(key.PublicKey), 5)

	err := pool.AddRemote(pricedTransaction(t, key, 4, 100))
	require.Equal(t, ErrNonceTooLow, errors.Cause(err))
	require.Equal(t, txtabs.CodeUnspecified, txtabs.CodeOf(err))
	validatePoolInternals(t, pool)
}

func TestInsufficientFunds(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	state.setBalance(crypto.PubkeyToAddress(key.PublicKey), big.NewInt(1))

	err = pool.AddRemote(pricedTransaction(t, key, 0, 100))
	require.Equal(t, ErrInsufficientFunds, errors.Cause(err))
	validatePoolInternals(t, pool)
}

func TestInvalidSenderSurfaces(t *testing.T) {
	pool, _, _ := setupTxPool(t, testTxPoolConfig)

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(100),
		Gas:      21000,
		To:       &common.Address{},
		Value:    big.NewInt(0),
	})
	err := pool.AddRemote(unsigned)
	require.Equal(t, txtabs.ErrInvalidSender, errors.Cause(err))
	validatePoolInternals(t, pool)
}

func TestBatchErrorsAligned(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	good := pricedTransaction(t, key, 0, 100)
	dup := good
	gapped := pricedTransaction(t, key, 5, 100)

	errs := pool.AddRemotes(types.Transactions{good, dup, gapped})
	require.Len(t, errs, 3)
	require.NoError(t, errs[0])
	require.Equal(t, txtabs.ErrAlreadyKnown, errors.Cause(errs[1]))
	require.NoError(t, errs[2])

	pending, queued := pool.Stats()
	require.Equal(t, 1, pending)
	require.Equal(t, 1, queued)
	validatePoolInternals(t, pool)
}

func TestPromotionFollowsNonceGap(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 0, 100)))
	require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 2, 100)))

	pending, queued := pool.Stats()
	require.Equal(t, 1, pending)
	require.Equal(t, 1, queued)

	// Filling the gap promotes the whole run
	require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 1, 100)))
	pending, queued = pool.Stats()
	require.Equal(t, 3, pending)
	require.Equal(t, 0, queued)
	validatePoolInternals(t, pool)
}

func TestReplacementPriceBump(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	old := pricedTransaction(t, key, 0, 100)
	require.NoError(t, pool.AddRemote(old))

	// Below the bump threshold the newcomer is refused
	err := pool.AddRemote(pricedTransaction(t, key, 0, 105))
	require.Equal(t, txtabs.ErrReplaceUnderpriced, errors.Cause(err))
	require.True(t, pool.Count().Total == 1)

	// Meeting the bump replaces the old transaction
	repl := pricedTransaction(t, key, 0, 110)
	require.NoError(t, pool.AddRemote(repl))
	require.Equal(t, 1, pool.Count().Total)

	_, ok := pool.Get(old.Hash())
	require.False(t, ok)
	_, ok = pool.Get(repl.Hash())
	require.True(t, ok)

	// The displaced transaction landed in the wastebasket
	rejects := pool.Rejects()
	require.Len(t, rejects, 1)
	require.Equal(t, old.Hash(), rejects[0].Hash)
	validatePoolInternals(t, pool)
}

func TestReplacementPriceBumpWeiLevel(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	old := pricedTransaction(t, key, 0, 1)
	require.NoError(t, pool.AddRemote(old))

	// At Wei-level prices the percentage threshold truncates back to the
	// old price; a same-priced newcomer must still be refused
	err := pool.AddRemote(pricedValuedTransaction(t, key, 0, 1, 101))
	require.Equal(t, txtabs.ErrReplaceUnderpriced, errors.Cause(err))
	require.Equal(t, 1, pool.Count().Total)
	_, ok := pool.Get(old.Hash())
	require.True(t, ok)

	// An outright higher price clears both bars
	require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 0, 2)))
	require.Equal(t, 1, pool.Count().Total)
	_, ok = pool.Get(old.Hash())
	require.False(t, ok)
	validatePoolInternals(t, pool)
}

func TestEvictionInactive(t *testing.T) {
	config := testTxPoolConfig
	config.Lifetime = time.Hour
	config.MaxRejects = 64
	pool, state, clock := setupTxPool(t, config)

	for i := 0; i < 100; i++ {
		key := fundedKey(t, state)
		require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 0, 100)))
	}
	clock.advance(2 * time.Hour)

	fresh := pricedTransaction(t, fundedKey(t, state), 0, 100)
	require.NoError(t, pool.AddRemote(fresh))

	replyCh := make(chan int, 1)
	_, ok := pool.Submit(txjob.EvictInactive{Reply: replyCh})
	require.True(t, ok)
	require.Equal(t, 100, <-replyCh)

	counts := pool.Count()
	require.Equal(t, 1, counts.Total)
	require.Equal(t, 64, counts.Rejected)
	_, ok = pool.Get(fresh.Hash())
	require.True(t, ok)
	validatePoolInternals(t, pool)
}

func TestEvictionSparesLocals(t *testing.T) {
	config := testTxPoolConfig
	config.Lifetime = time.Hour
	pool, state, clock := setupTxPool(t, config)

	local := pricedTransaction(t, fundedKey(t, state), 0, 100)
	require.NoError(t, pool.AddLocal(local))
	clock.advance(2 * time.Hour)

	replyCh := make(chan int, 1)
	pool.Submit(txjob.EvictInactive{Reply: replyCh})
	require.Equal(t, 0, <-replyCh)
	require.Equal(t, 1, pool.Count().Local)
	validatePoolInternals(t, pool)
}

func TestSetGasPriceDropsRemotes(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)

	require.NoError(t, pool.AddRemote(pricedTransaction(t, fundedKey(t, state), 0, 50)))
	require.NoError(t, pool.AddRemote(pricedTransaction(t, fundedKey(t, state), 0, 500)))
	require.NoError(t, pool.AddLocal(pricedTransaction(t, fundedKey(t, state), 0, 50)))

	replyCh := make(chan int, 1)
	pool.Submit(txjob.SetGasPrice{Price: big.NewInt(100), Reply: replyCh})
	require.Equal(t, 1, <-replyCh)

	counts := pool.Count()
	require.Equal(t, 1, counts.Remote)
	require.Equal(t, 1, counts.Local)
	require.Equal(t, big.NewInt(100), pool.GasPrice())
	validatePoolInternals(t, pool)
}

func TestMoveRemoteToLocals(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	for nonce := uint64(0); nonce < 5; nonce++ {
		require.NoError(t, pool.AddRemote(pricedTransaction(t, key, nonce, 100)))
	}
	require.NoError(t, pool.AddLocal(pricedTransaction(t, key, 5, 100)))
	require.NoError(t, pool.AddLocal(pricedTransaction(t, key, 6, 100)))

	before := pool.Count().Total

	replyCh := make(chan int, 1)
	pool.Submit(txjob.MoveRemoteToLocals{Addr: addr, Reply: replyCh})
	require.Equal(t, 5, <-replyCh)

	counts := pool.Count()
	require.Equal(t, before, counts.Total)
	require.Equal(t, 7, counts.Local)
	require.Equal(t, 0, counts.Remote)
	require.Contains(t, pool.Locals(), addr)
	validatePoolInternals(t, pool)
}

func TestJobQuerySurface(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	tx := pricedTransaction(t, key, 0, 100)
	require.NoError(t, pool.AddRemote(tx))

	itemCh := make(chan *txtabs.TxItem, 1)
	pool.Submit(txjob.GetItem{Hash: tx.Hash(), Reply: itemCh})
	item := <-itemCh
	require.NotNil(t, item)
	require.Equal(t, addr, item.Sender())

	pool.Submit(txjob.GetItem{Hash: common.Hash{0xde, 0xad}, Reply: itemCh})
	require.Nil(t, <-itemCh)

	accountsCh := make(chan []common.Address, 1)
	pool.Submit(txjob.GetAccounts{Local: false, Reply: accountsCh})
	require.Equal(t, []common.Address{addr}, <-accountsCh)

	locusCh := make(chan txjob.LocusReply, 1)
	pool.Submit(txjob.LocusCount{Reply: locusCh})
	require.Equal(t, txjob.LocusReply{Local: 0, Remote: 1}, <-locusCh)

	statsCh := make(chan txjob.StatsReply, 1)
	pool.Submit(txjob.StatsReport{Reply: statsCh})
	require.Equal(t, txjob.StatsReply{Pending: 1, Queued: 0}, <-statsCh)

	feeCh := make(chan *big.Int, 1)
	pool.Submit(txjob.GetBaseFee{Reply: feeCh})
	require.Nil(t, <-feeCh)

	pool.Submit(txjob.SetBaseFee{BaseFee: big.NewInt(7)})
	pool.Submit(txjob.GetBaseFee{Reply: feeCh})
	require.Equal(t, big.NewInt(7), <-feeCh)

	priceCh := make(chan *big.Int, 1)
	pool.Submit(txjob.GetGasPrice{Reply: priceCh})
	require.Equal(t, pool.GasPrice(), <-priceCh)
	validatePoolInternals(t, pool)
}

func TestNewTxsEventPublished(t *testing.T) {
	pool, state, _ := setupTxPool(t, testTxPoolConfig)
	key := fundedKey(t, state)

	events := make(chan NewTxsEvent, 1)
	sub := pool.SubscribeNewTxsEvent(events)
	defer sub.Unsubscribe()

	tx := pricedTransaction(t, key, 0, 100)
	require.NoError(t, pool.AddRemote(tx))

	select {
	case ev := <-events:
		require.Len(t, ev.Txs, 1)
		require.Equal(t, tx.Hash(), ev.Txs[0].Hash())
	case <-time.After(time.Second):
		t.Fatal("no NewTxsEvent received")
	}
}

func TestStopRefusesFurtherJobs(t *testing.T) {
	state := newTestState()
	pool := NewTxPool(testTxPoolConfig, testChainID, state)
	pool.Stop()

	_, ok := pool.Submit(txjob.StatsReport{})
	require.False(t, ok)

	errs := pool.AddRemotes(types.Transactions{
		pricedTransaction(t, fundedKey(t, state), 0, 100),
	})
	require.Error(t, errs[0])
}

func TestCapacityOverflow(t *testing.T) {
	config := testTxPoolConfig
	config.GlobalSlots = 1
	config.GlobalQueue = 1
	pool, state, _ := setupTxPool(t, config)

	require.NoError(t, pool.AddRemote(pricedTransaction(t, fundedKey(t, state), 0, 100)))
	require.NoError(t, pool.AddRemote(pricedTransaction(t, fundedKey(t, state), 0, 200)))

	// A cheaper remote cannot displace anything
	err := pool.AddRemote(pricedTransaction(t, fundedKey(t, state), 0, 50))
	require.Equal(t, txtabs.ErrTxPoolOverflow, errors.Cause(err))
	require.Equal(t, 2, pool.Count().Remote)

	// A better-paying remote displaces the cheapest
	require.NoError(t, pool.AddRemote(pricedTransaction(t, fundedKey(t, state), 0, 300)))
	require.Equal(t, 2, pool.Count().Remote)
	require.Equal(t, int64(200), func() int64 {
		pool.mu.RLock()
		defer pool.mu.RUnlock()
		return pool.tabs.MinTip().Int64()
	}())
	validatePoolInternals(t, pool)
}

func TestAccountSlotsFairness(t *testing.T) {
	config := testTxPoolConfig
	config.AccountSlots = 2
	config.GlobalSlots = 2
	config.GlobalQueue = 1
	pool, state, _ := setupTxPool(t, config)

	// One whale fills the pool with executable transactions
	whale := fundedKey(t, state)
	var whaleTxs types.Transactions
	for nonce := uint64(0); nonce < 3; nonce++ {
		tx := pricedTransaction(t, whale, nonce, 100)
		whaleTxs = append(whaleTxs, tx)
		require.NoError(t, pool.AddRemote(tx))
	}
	require.Equal(t, 3, pool.Count().Remote)

	// A cheaper remote from another sender still gets in: the whale is
	// over its guaranteed slot share and gives way, highest nonce first
	newcomer := pricedTransaction(t, fundedKey(t, state), 0, 50)
	require.NoError(t, pool.AddRemote(newcomer))

	counts := pool.Count()
	require.Equal(t, 3, counts.Remote)
	_, ok := pool.Get(newcomer.Hash())
	require.True(t, ok)
	_, ok = pool.Get(whaleTxs[2].Hash())
	require.False(t, ok)
	_, ok = pool.Get(whaleTxs[1].Hash())
	require.True(t, ok)

	rejects := pool.Rejects()
	require.Len(t, rejects, 1)
	require.Equal(t, whaleTxs[2].Hash(), rejects[0].Hash)
	validatePoolInternals(t, pool)
}

func TestAccountQueueCeiling(t *testing.T) {
	config := testTxPoolConfig
	config.AccountQueue = 2
	pool, state, _ := setupTxPool(t, config)
	key := fundedKey(t, state)

	// Gapped transactions stay queued and run into the per-account cap
	require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 2, 100)))
	require.NoError(t, pool.AddRemote(pricedTransaction(t, key, 3, 100)))
	err := pool.AddRemote(pricedTransaction(t, key, 4, 100))
	require.Equal(t, txtabs.ErrTxPoolOverflow, errors.Cause(err))
	validatePoolInternals(t, pool)
}
