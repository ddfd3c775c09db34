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

package core

import (
	"math/big"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/pkg/errors"

	"github.com/tabulae/txtabs/core/txjob"
	"github.com/tabulae/txtabs/core/txtabs"
	"github.com/tabulae/txtabs/internal/utils"
)

var (
	evictionInterval    = time.Minute     // Time interval to check for evictable transactions
	statsReportInterval = 8 * time.Second // Time interval to report transaction pool stats
)

var (
	// General tx metrics
	knownTxMeter       = metrics.NewRegisteredCounter("txpool/known", nil)
	invalidTxMeter     = metrics.NewRegisteredCounter("txpool/invalid", nil)
	underpricedTxMeter = metrics.NewRegisteredCounter("txpool/underpriced", nil)
	overflowedTxMeter  = metrics.NewRegisteredCounter("txpool/overflowed", nil)
	replacedTxMeter    = metrics.NewRegisteredCounter("txpool/replaced", nil)
	evictedTxMeter     = metrics.NewRegisteredCounter("txpool/evicted", nil)
)

var (
	// ErrNonceTooLow is returned if the nonce of a transaction is lower than
	// the one present in the local chain.
	ErrNonceTooLow = errors.New("nonce too low")

	// ErrInsufficientFunds is returned if the total cost of executing a
	// transaction is higher than the balance of the user's account.
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")
)

// txMaxSize is the DoS-protection cap on a single transaction's encoded
// size.
const txMaxSize = uint64(32 * 1024)

// stateReader provides the account facts and gas allowance the pool needs
// for staging-time classification. It is backed by the chain-head database
// outside of tests.
type stateReader interface {
	GetNonce(common.Address) uint64
	GetBalance(common.Address) *big.Int
	MaxGas() uint64
}

// TxPoolConfig are the configuration parameters of the transaction pool.
type TxPoolConfig struct {
	Locals   []common.Address // Addresses that should be treated by default as local
	NoLocals bool             // Whether local transaction handling should be disabled

	PriceLimit uint64 // Minimum gas price to enforce for acceptance into the pool
	PriceBump  uint64 // Minimum price bump percentage to replace an already existing transaction (nonce)

	AccountSlots uint64 // Number of executable transaction slots guaranteed per account
	GlobalSlots  uint64 // Maximum number of executable transaction slots for all accounts
	AccountQueue uint64 // Maximum number of non-executable transaction slots permitted per account
	GlobalQueue  uint64 // Maximum number of non-executable transaction slots for all accounts

	Lifetime   time.Duration // Maximum amount of time remote transactions are staged
	MaxRejects int           // Capacity of the rejected-transaction wastebasket
}

// DefaultTxPoolConfig contains the default configurations for the
// transaction pool.
var DefaultTxPoolConfig = TxPoolConfig{
	PriceLimit: 1e9, // 1 Gwei
	PriceBump:  10,  // PriceBump is percent, 10% is the reference client's bump

	AccountSlots: 16,
	GlobalSlots:  4096,
	AccountQueue: 64,
	GlobalQueue:  1024,

	Lifetime:   30 * time.Minute,
	MaxRejects: 1024,
}

// sanitize checks the provided user configurations and changes anything
// that's unreasonable or unworkable.
func (config *TxPoolConfig) sanitize() TxPoolConfig {
	conf := *config
	if conf.PriceLimit < 1 {
		utils.Logger().Warn().
			Uint64("provided", conf.PriceLimit).
			Uint64("updated", DefaultTxPoolConfig.PriceLimit).
			Msg("Sanitizing invalid txpool price limit")
		conf.PriceLimit = DefaultTxPoolConfig.PriceLimit
	}
	if conf.PriceBump < 1 {
		utils.Logger().Warn().
			Uint64("provided", conf.PriceBump).
			Uint64("updated", DefaultTxPoolConfig.PriceBump).
			Msg("Sanitizing invalid txpool price bump")
		conf.PriceBump = DefaultTxPoolConfig.PriceBump
	}
	if conf.AccountSlots == 0 {
		utils.Logger().Warn().
			Uint64("provided", conf.AccountSlots).
			Uint64("updated", DefaultTxPoolConfig.AccountSlots).
			Msg("Sanitizing invalid txpool account slots")
		conf.AccountSlots = DefaultTxPoolConfig.AccountSlots
	}
	if conf.GlobalSlots == 0 {
		utils.Logger().Warn().
			Uint64("provided", conf.GlobalSlots).
			Uint64("updated", DefaultTxPoolConfig.GlobalSlots).
			Msg("Sanitizing invalid txpool global slots")
		conf.GlobalSlots = DefaultTxPoolConfig.GlobalSlots
	}
	if conf.AccountQueue == 0 {
		utils.Logger().Warn().
			Uint64("provided", conf.AccountQueue).
			Uint64("updated", DefaultTxPoolConfig.AccountQueue).
			Msg("Sanitizing invalid txpool account queue")
		conf.AccountQueue = DefaultTxPoolConfig.AccountQueue
	}
	if conf.GlobalQueue == 0 {
		utils.Logger().Warn().
			Uint64("provided", conf.GlobalQueue).
			Uint64("updated", DefaultTxPoolConfig.GlobalQueue).
			Msg("Sanitizing invalid txpool global queue")
		conf.GlobalQueue = DefaultTxPoolConfig.GlobalQueue
	}
	if conf.Lifetime == 0 {
		utils.Logger().Warn().
			Dur("provided", conf.Lifetime).
			Dur("updated", DefaultTxPoolConfig.Lifetime).
			Msg("Sanitizing invalid txpool lifetime")
		conf.Lifetime = DefaultTxPoolConfig.Lifetime
	}
	if conf.MaxRejects < 1 {
		utils.Logger().Warn().
			Int("provided", conf.MaxRejects).
			Int("updated", DefaultTxPoolConfig.MaxRejects).
			Msg("Sanitizing invalid txpool reject capacity")
		conf.MaxRejects = DefaultTxPoolConfig.MaxRejects
	}
	return conf
}

// TxPool contains all currently staged transactions. Transactions enter the
// pool when they are received from the network or submitted locally and
// exit when a block containing them is sealed or they are displaced.
//
// All mutations funnel through a FIFO job queue consumed by one worker
// goroutine that owns the tabbed store exclusively; readers outside the
// worker take a read lock and observe a consistent snapshot.
type TxPool struct {
	config   TxPoolConfig
	signer   types.Signer
	state    stateReader
	gasPrice *big.Int

	tabs *txtabs.TxTabs
	jobs *txjob.Queue

	locals mapset.Set // Addresses exempt from price floors and eviction

	txFeed   event.Feed
	dropFeed event.Feed
	scope    event.SubscriptionScope

	mu   sync.RWMutex
	wg   sync.WaitGroup // for shutdown sync
	quit chan struct{}

	now func() time.Time
}

// NewTxPool creates a new transaction pool to gather, sort and filter
// inbound transactions from the network, and starts its worker.
func NewTxPool(config TxPoolConfig, chainID *big.Int, state stateReader) *TxPool {
	// Sanitize the input to ensure no vulnerable gas prices are set
	config = (&config).sanitize()

	pool := &TxPool{
		config:   config,
		signer:   types.LatestSignerForChainID(chainID),
		state:    state,
		gasPrice: new(big.Int).SetUint64(config.PriceLimit),
		jobs:     txjob.NewQueue(),
		locals:   mapset.NewSet(),
		quit:     make(chan struct{}),
		now:      time.Now,
	}
	pool.tabs = txtabs.New(pool.signer, config.MaxRejects)
	if !config.NoLocals {
		for _, addr := range config.Locals {
			utils.Logger().Info().Str("address", addr.Hex()).Msg("Setting new local account")
			pool.locals.Add(addr)
		}
	}
	pool.wg.Add(2)
	go pool.loop()
	go pool.tick()

	return pool
}

// loop is the pool's worker: it pops jobs in submission order and applies
// them against the store. Nothing else mutates the tabs.
func (pool *TxPool) loop() {
	defer pool.wg.Done()

	for {
		job, ok := pool.jobs.Pop()
		if !ok {
			return
		}
		if _, abort := job.Payload.(txjob.Abort); abort {
			dropped := pool.jobs.Drain()
			pool.jobs.Close()
			utils.Logger().Info().Int("dropped", dropped).Msg("Transaction pool worker aborted")
			return
		}
		pool.process(job)
	}
}

// tick feeds the periodic maintenance jobs into the queue until shutdown.
func (pool *TxPool) tick() {
	defer pool.wg.Done()

	evict := time.NewTicker(evictionInterval)
	defer evict.Stop()

	report := time.NewTicker(statsReportInterval)
	defer report.Stop()

	for {
		select {
		case <-evict.C:
			pool.jobs.Push(txjob.EvictInactive{})
		case <-report.C:
			pool.jobs.Push(txjob.StatsReport{})
		case <-pool.quit:
			return
		}
	}
}

// process applies one job against the store under the pool write lock and
// sends its reply, if any.
func (pool *TxPool) process(job txjob.Job) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	switch p := job.Payload.(type) {
	case txjob.AddTxs:
		reply(p.Reply, pool.addTxs(p.Txs, p.Local, p.Status, p.Info))
	case txjob.EvictInactive:
		reply(p.Reply, pool.evictInactive())
	case txjob.GetAccounts:
		reply(p.Reply, pool.tabs.Accounts(p.Local))
	case txjob.GetBaseFee:
		reply(p.Reply, pool.tabs.BaseFee())
	case txjob.SetBaseFee:
		pool.tabs.SetBaseFee(p.BaseFee)
		utils.Logger().Info().
			Str("baseFee", bigStr(p.BaseFee)).
			Msg("Transaction pool re-valued against new base fee")
	case txjob.GetGasPrice:
		reply(p.Reply, new(big.Int).Set(pool.gasPrice))
	case txjob.SetGasPrice:
		reply(p.Reply, pool.setGasPrice(p.Price))
	case txjob.GetItem:
		item, _ := pool.tabs.Get(p.Hash)
		reply(p.Reply, item)
	case txjob.LocusCount:
		counts := pool.tabs.Count()
		reply(p.Reply, txjob.LocusReply{Local: counts.Local, Remote: counts.Remote})
	case txjob.StatsReport:
		reply(p.Reply, pool.statsReport())
	case txjob.MoveRemoteToLocals:
		reply(p.Reply, pool.moveRemoteToLocals(p.Addr))
	default:
		utils.Logger().Error().
			Uint64("id", uint64(job.ID)).
			Str("kind", job.Payload.Kind().String()).
			Msg("Unhandled transaction pool job")
	}
}

// reply delivers a job result without blocking submitters that did not ask
// for one.
func reply[T any](ch chan T, v T) {
	if ch != nil {
		ch <- v
	}
}

func bigStr(v *big.Int) string {
	if v == nil {
		return "disabled"
	}
	return v.String()
}

// Submit enqueues a job for the worker, returning its allocated ID. It
// fails once the pool has been stopped.
func (pool *TxPool) Submit(p txjob.Payload) (txjob.JobID, bool) {
	return pool.jobs.Push(p)
}

// SubmitPriority enqueues a job at the head of the queue.
func (pool *TxPool) SubmitPriority(p txjob.Payload) (txjob.JobID, bool) {
	return pool.jobs.PushPriority(p)
}

// Stop terminates the transaction pool: the abort job jumps the queue, the
// worker drains and exits, and in-flight work completes first.
func (pool *TxPool) Stop() {
	pool.scope.Close()
	close(pool.quit)
	pool.jobs.PushPriority(txjob.Abort{})
	pool.wg.Wait()
	utils.Logger().Info().Msg("Transaction pool stopped")
}

// SubscribeNewTxsEvent registers a subscription of NewTxsEvent and starts
// sending events to the given channel.
func (pool *TxPool) SubscribeNewTxsEvent(ch chan<- NewTxsEvent) event.Subscription {
	return pool.scope.Track(pool.txFeed.Subscribe(ch))
}

// AddLocals stages a batch of transactions submitted through this node,
// marking their senders as local and exempting them from pricing rules.
func (pool *TxPool) AddLocals(txs types.Transactions) []error {
	return pool.addTxsSync(txs, !pool.config.NoLocals)
}

// AddLocal stages a single local transaction.
func (pool *TxPool) AddLocal(tx *types.Transaction) error {
	return pool.AddLocals(types.Transactions{tx})[0]
}

// AddRemotes stages a batch of transactions received from the network.
func (pool *TxPool) AddRemotes(txs types.Transactions) []error {
	return pool.addTxsSync(txs, false)
}

// AddRemote stages a single remote transaction.
func (pool *TxPool) AddRemote(tx *types.Transaction) error {
	return pool.AddRemotes(types.Transactions{tx})[0]
}

func (pool *TxPool) addTxsSync(txs types.Transactions, local bool) []error {
	replyCh := make(chan []error, 1)
	if _, ok := pool.jobs.Push(txjob.AddTxs{Txs: txs, Local: local, Status: txtabs.StatusQueued, Reply: replyCh}); !ok {
		errs := make([]error, len(txs))
		for i := range errs {
			errs[i] = errors.New("txpool stopped")
		}
		return errs
	}
	return <-replyCh
}

// addTxs stages a batch of transactions; the returned slice is aligned with
// the input, one error per transaction.
func (pool *TxPool) addTxs(txs types.Transactions, local bool, status txtabs.TxStatus, info string) []error {
	errs := make([]error, len(txs))
	added := make(types.Transactions, 0, len(txs))
	dirty := make(map[common.Address]struct{})

	for i, tx := range txs {
		receivedTxsCounter.Inc()
		sender, err := pool.addTx(tx, local, status, info)
		errs[i] = err
		if err != nil {
			invalidTxsCounterVec.With(map[string]string{"err": txtabs.CodeOf(err).String()}).Inc()
			continue
		}
		added = append(added, tx)
		dirty[sender] = struct{}{}
	}
	for addr := range dirty {
		pool.promoteExecutables(addr)
	}
	pool.updateGauges()
	if len(added) > 0 {
		pool.txFeed.Send(NewTxsEvent{Txs: added})
	}
	return errs
}

// addTx validates and inserts a single transaction, returning the recovered
// sender on success.
func (pool *TxPool) addTx(tx *types.Transaction, local bool, status txtabs.TxStatus, info string) (common.Address, error) {
	hash := tx.Hash()
	logger := utils.Logger()

	// A resubmission may succeed where the original was thrown out
	if pool.tabs.RejectsContain(hash) {
		pool.tabs.ForgiveReject(hash)
	}
	if pool.tabs.Has(hash) {
		knownTxMeter.Inc(1)
		knownTxsCounter.Inc()
		logger.Debug().Str("hash", hash.Hex()).Msg("Discarding already known transaction")
		return common.Address{}, errors.WithMessagef(txtabs.ErrAlreadyKnown, "transaction hash %x", hash)
	}
	sender, err := types.Sender(pool.signer, tx)
	if err != nil {
		invalidTxMeter.Inc(1)
		return common.Address{}, errors.WithMessagef(txtabs.ErrInvalidSender, "transaction hash %x", hash)
	}
	local = local || pool.locals.Contains(sender) // account may be local even if the transaction arrived from the network
	if err := pool.validateTx(tx, sender, local); err != nil {
		invalidTxMeter.Inc(1)
		logger.Debug().Str("hash", hash.Hex()).Err(err).Msg("Discarding invalid transaction")
		return common.Address{}, err
	}
	// Same-nonce resubmissions must beat the old price by the configured bump
	if err := pool.replaceByFee(tx, sender, local); err != nil {
		return common.Address{}, err
	}
	if err := pool.enforceCapacity(tx, sender, local); err != nil {
		return common.Address{}, err
	}
	if _, err := pool.tabs.Add(tx, local, status, info); err != nil {
		return common.Address{}, err
	}
	if local && !pool.config.NoLocals {
		pool.locals.Add(sender)
	}
	logger.Debug().
		Str("hash", hash.Hex()).
		Str("from", sender.Hex()).
		Bool("local", local).
		Msg("Pooled new transaction")
	return sender, nil
}

// validateTx checks whether a transaction is valid according to staging
// rules and adheres to some heuristic limits of the local node (price and
// size).
func (pool *TxPool) validateTx(tx *types.Transaction, sender common.Address, local bool) error {
	// For DoS prevention, reject excessively large transactions.
	if tx.Size() > txMaxSize {
		return errors.WithMessagef(txtabs.ErrOversizedData, "transaction size is %v", tx.Size())
	}
	// Transactions can't be negative. This may never happen using RLP
	// decoded transactions but may occur if you create a transaction using
	// the RPC.
	if tx.Value().Sign() < 0 {
		return errors.WithMessagef(txtabs.ErrNegativeValue, "transaction value is %s", tx.Value())
	}
	// Ensure the transaction doesn't exceed the current block limit gas.
	if maxGas := pool.state.MaxGas(); maxGas < tx.Gas() {
		return errors.WithMessagef(txtabs.ErrGasLimit, "transaction gas is %d, block allowance %d", tx.Gas(), maxGas)
	}
	// Drop non-local transactions under our own minimal accepted gas price
	if !local && pool.gasPrice.Cmp(tx.GasTipCap()) > 0 {
		underpricedTxMeter.Inc(1)
		return errors.WithMessagef(txtabs.ErrUnderpriced, "transaction tip cap is %s, pool minimum is %s", tx.GasTipCap(), pool.gasPrice)
	}
	// Ensure the transaction adheres to nonce ordering
	if pool.state.GetNonce(sender) > tx.Nonce() {
		return errors.WithMessagef(ErrNonceTooLow, "transaction nonce is %d", tx.Nonce())
	}
	// Transactor should have enough funds to cover the costs
	// cost == V + GP * GL
	if pool.state.GetBalance(sender).Cmp(tx.Cost()) < 0 {
		return errors.WithMessagef(ErrInsufficientFunds, "transaction cost is %s", tx.Cost())
	}
	return nil
}

// replaceByFee resolves a same-(sender, nonce) collision: the incoming
// transaction must out-bid every old one by at least PriceBump percent on
// the tip cap, in which case the old ones are thrown out; otherwise the
// newcomer is refused.
func (pool *TxPool) replaceByFee(tx *types.Transaction, sender common.Address, local bool) error {
	sched, ok := pool.tabs.BySender(sender)
	if !ok {
		return nil
	}
	olds := sched.Eq(tx.Nonce())
	if len(olds) == 0 {
		return nil
	}
	var (
		best      = new(big.Int)
		threshold = new(big.Int)
	)
	for _, old := range olds {
		if best.Cmp(old.GasTipCap()) < 0 {
			best.Set(old.GasTipCap())
		}
		// old cap * (100 + bump) / 100
		bumped := new(big.Int).Mul(old.GasTipCap(), big.NewInt(int64(100+pool.config.PriceBump)))
		bumped.Div(bumped, big.NewInt(100))
		if threshold.Cmp(bumped) < 0 {
			threshold.Set(bumped)
		}
	}
	// The newcomer has to beat the old price outright, not just the bumped
	// threshold, to ensure that this is accurate for low (Wei-level) gas
	// price replacements where the percentage division truncates to the old
	// price itself.
	if best.Cmp(tx.GasTipCap()) >= 0 || threshold.Cmp(tx.GasTipCap()) > 0 {
		return errors.WithMessagef(txtabs.ErrReplaceUnderpriced,
			"transaction tip cap is %s, replacement threshold is %s", tx.GasTipCap(), threshold)
	}
	dropped := make(types.Transactions, 0, len(olds))
	for _, old := range olds {
		pool.tabs.Reject(old, errors.Errorf("replaced by transaction %x", tx.Hash()))
		dropped = append(dropped, old.Tx())
		replacedTxMeter.Inc(1)
	}
	pool.dropFeed.Send(DropTxsEvent{Txs: dropped, Reason: txtabs.ErrReplaceUnderpriced})
	return nil
}

// enforceCapacity makes room for a remote transaction, displacing the
// cheapest remote if the pool is full, or refusing the newcomer when it is
// itself the cheapest. Locals are exempt from both sides.
func (pool *TxPool) enforceCapacity(tx *types.Transaction, sender common.Address, local bool) error {
	if local {
		return nil
	}
	// Per-sender ceiling on staged-but-idle transactions
	if sched, ok := pool.tabs.BySender(sender); ok {
		if uint64(sched.LenStatus(txtabs.StatusQueued)) >= pool.config.AccountQueue {
			overflowedTxMeter.Inc(1)
			return errors.WithMessagef(txtabs.ErrTxPoolOverflow, "account %s has %d queued transactions", sender.Hex(), sched.LenStatus(txtabs.StatusQueued))
		}
	}
	slots := pool.config.GlobalSlots + pool.config.GlobalQueue
	if uint64(pool.tabs.Count().Remote) < slots {
		return nil
	}
	// A sender hoarding more than its guaranteed share of executable slots
	// gives way first, highest nonce out, so one whale cannot crowd out
	// every other remote submitter
	if victim := pool.overSlotVictim(); victim != nil {
		pool.tabs.Reject(victim, errors.Errorf("displaced over the per-account slot share by transaction %x", tx.Hash()))
		pool.dropFeed.Send(DropTxsEvent{Txs: types.Transactions{victim.Tx()}, Reason: txtabs.ErrTxPoolOverflow})
		return nil
	}
	// Find the cheapest remote the newcomer could displace
	var victim *txtabs.TxItem
	pool.tabs.TipAscend(func(tip *big.Int, item *txtabs.TxItem) bool {
		if item.Local() {
			return true
		}
		victim = item
		return false
	})
	newTip := effectiveTipAgainst(tx, pool.tabs.BaseFee())
	if victim == nil || newTip.Cmp(victim.EffectiveTip()) <= 0 {
		overflowedTxMeter.Inc(1)
		return errors.WithMessagef(txtabs.ErrTxPoolOverflow, "pool holds %d remote transactions", pool.tabs.Count().Remote)
	}
	pool.tabs.Reject(victim, errors.Errorf("displaced by better-paying transaction %x", tx.Hash()))
	pool.dropFeed.Send(DropTxsEvent{Txs: types.Transactions{victim.Tx()}, Reason: txtabs.ErrTxPoolOverflow})
	return nil
}

// overSlotVictim looks for a remote sender holding more pending slots than
// AccountSlots guarantees and picks its highest-nonce remote pending item
// as the eviction candidate, cheapest such sender first. It returns nil
// when every sender is within its share.
func (pool *TxPool) overSlotVictim() *txtabs.TxItem {
	var victim *txtabs.TxItem
	pool.tabs.TipAscend(func(tip *big.Int, item *txtabs.TxItem) bool {
		if item.Local() {
			return true
		}
		sched, ok := pool.tabs.BySender(item.Sender())
		if !ok || uint64(sched.LenStatus(txtabs.StatusPending)) <= pool.config.AccountSlots {
			return true
		}
		sched.DescendStatus(txtabs.StatusPending, func(candidate *txtabs.TxItem) bool {
			if candidate.Local() {
				return true
			}
			victim = candidate
			return false
		})
		return victim == nil
	})
	return victim
}

func effectiveTipAgainst(tx *types.Transaction, baseFee *big.Int) *big.Int {
	if baseFee == nil {
		return tx.GasTipCap()
	}
	return tx.EffectiveGasTipValue(baseFee)
}

// promoteExecutables flips one sender's items between Queued and Pending
// based on nonce contiguity against the chain state. Staged items are the
// sealer's business and are left alone.
func (pool *TxPool) promoteExecutables(addr common.Address) {
	sched, ok := pool.tabs.BySender(addr)
	if !ok {
		return
	}
	var (
		next       = pool.state.GetNonce(addr)
		last       uint64
		run        bool // inside the contiguous executable nonce run
		promotions []*txtabs.TxItem
		demotions  []*txtabs.TxItem
	)
	sched.Ascend(func(item *txtabs.TxItem) bool {
		if item.Status() == txtabs.StatusStaged {
			return true
		}
		nonce := item.Nonce()
		switch {
		case nonce == next:
			run, last = true, nonce
			promotions = append(promotions, item)
		case run && (nonce == last || nonce == last+1):
			last = nonce
			promotions = append(promotions, item)
		default:
			run = false
			demotions = append(demotions, item)
		}
		return true
	})
	for _, item := range promotions {
		pool.tabs.SetStatus(item, txtabs.StatusPending)
	}
	for _, item := range demotions {
		pool.tabs.SetStatus(item, txtabs.StatusQueued)
	}
}

// evictInactive throws out every remote transaction older than the pool's
// lifetime, returning how many were deleted.
func (pool *TxPool) evictInactive() int {
	cutoff := pool.now().Add(-pool.config.Lifetime)
	var stale []*txtabs.TxItem
	pool.tabs.ArrivalAscend(false, func(item *txtabs.TxItem) bool {
		if item.Time().Before(cutoff) {
			stale = append(stale, item)
		}
		return true
	})
	dropped := make(types.Transactions, 0, len(stale))
	for _, item := range stale {
		pool.tabs.Reject(item, errors.Errorf("evicted after %v of inactivity", pool.config.Lifetime))
		dropped = append(dropped, item.Tx())
		evictedTxMeter.Inc(1)
		evictedTxsCounter.Inc()
	}
	if len(stale) > 0 {
		pool.dropFeed.Send(DropTxsEvent{Txs: dropped, Reason: errors.New("inactivity eviction")})
		utils.Logger().Info().Int("count", len(stale)).Msg("Evicted inactive remote transactions")
	}
	pool.updateGauges()
	return len(stale)
}

// setGasPrice updates the minimum tip cap required by the pool and drops
// all remote transactions below the new threshold, returning the count.
func (pool *TxPool) setGasPrice(price *big.Int) int {
	pool.gasPrice = new(big.Int).Set(price)
	var below []*txtabs.TxItem
	for _, item := range pool.tabs.TipCapLt(price) {
		if !item.Local() {
			below = append(below, item)
		}
	}
	dropped := make(types.Transactions, 0, len(below))
	for _, item := range below {
		pool.tabs.Reject(item, errors.WithMessagef(txtabs.ErrUnderpriced,
			"dropped below new gas price threshold of %s", price))
		dropped = append(dropped, item.Tx())
		underpricedTxMeter.Inc(1)
	}
	if len(below) > 0 {
		pool.dropFeed.Send(DropTxsEvent{Txs: dropped, Reason: txtabs.ErrUnderpriced})
	}
	pool.updateGauges()
	utils.Logger().Info().Str("price", price.String()).Msg("Transaction pool price threshold updated")
	return len(below)
}

// moveRemoteToLocals promotes every remote transaction of one sender to the
// local partition, returning the number moved. The total count is
// preserved.
func (pool *TxPool) moveRemoteToLocals(addr common.Address) int {
	sched, ok := pool.tabs.BySender(addr)
	if !ok {
		return 0
	}
	var remotes []*txtabs.TxItem
	sched.AscendLocal(false, func(item *txtabs.TxItem) bool {
		remotes = append(remotes, item)
		return true
	})
	for _, item := range remotes {
		pool.tabs.SetLocal(item, true)
	}
	if len(remotes) > 0 {
		pool.locals.Add(addr)
		utils.Logger().Info().
			Str("address", addr.Hex()).
			Int("count", len(remotes)).
			Msg("Promoted remote transactions to locals")
	}
	return len(remotes)
}

// statsReport logs and returns the pending/queued split.
func (pool *TxPool) statsReport() txjob.StatsReply {
	counts := pool.tabs.Count()
	utils.Logger().Debug().
		Int("executable", counts.Pending).
		Int("queued", counts.Queued).
		Int("staged", counts.Staged).
		Msg("Transaction pool status report")
	return txjob.StatsReply{Pending: counts.Pending, Queued: counts.Queued}
}

func (pool *TxPool) updateGauges() {
	counts := pool.tabs.Count()
	pendingTxGauge.Set(float64(counts.Pending))
	queuedTxGauge.Set(float64(counts.Queued))
	stagedTxGauge.Set(float64(counts.Staged))
	rejectedTxGauge.Set(float64(counts.Rejected))
}

// GasPrice returns the current gas price enforced by the transaction pool.
func (pool *TxPool) GasPrice() *big.Int {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	return new(big.Int).Set(pool.gasPrice)
}

// Stats retrieves the current pool stats, namely the number of pending and
// the number of queued (non-executable) transactions.
func (pool *TxPool) Stats() (int, int) {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	counts := pool.tabs.Count()
	return counts.Pending, counts.Queued
}

// Count returns the pool-wide bookkeeping tuple.
func (pool *TxPool) Count() txtabs.Counts {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	return pool.tabs.Count()
}

// Get returns the pooled item with the given hash, if tracked.
func (pool *TxPool) Get(hash common.Hash) (*txtabs.TxItem, bool) {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	return pool.tabs.Get(hash)
}

// Locals retrieves the accounts currently considered local by the pool.
func (pool *TxPool) Locals() []common.Address {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	out := make([]common.Address, 0, pool.locals.Cardinality())
	pool.locals.Each(func(v interface{}) bool {
		out = append(out, v.(common.Address))
		return false
	})
	return out
}

// Content retrieves the data content of the transaction pool, returning all
// the pending as well as queued transactions, grouped by account and sorted
// by nonce.
func (pool *TxPool) Content() (map[common.Address]types.Transactions, map[common.Address]types.Transactions) {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	pending := make(map[common.Address]types.Transactions)
	queued := make(map[common.Address]types.Transactions)
	seen := make(map[common.Address]struct{})
	for _, local := range []bool{true, false} {
		for _, addr := range pool.tabs.Accounts(local) {
			// A sender with both local and remote items is listed twice
			if _, done := seen[addr]; done {
				continue
			}
			seen[addr] = struct{}{}
			sched, ok := pool.tabs.BySender(addr)
			if !ok {
				continue
			}
			sched.AscendStatus(txtabs.StatusPending, func(item *txtabs.TxItem) bool {
				pending[addr] = append(pending[addr], item.Tx())
				return true
			})
			sched.AscendStatus(txtabs.StatusQueued, func(item *txtabs.TxItem) bool {
				queued[addr] = append(queued[addr], item.Tx())
				return true
			})
		}
	}
	return pending, queued
}

// Rejects returns the wastebasket records, oldest rejection first.
func (pool *TxPool) Rejects() []*txtabs.RejectReport {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	return pool.tabs.Rejects()
}
