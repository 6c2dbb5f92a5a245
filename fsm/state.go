package fsm

import (
	"math"
	"runtime/debug"
	"time"

	"github.com/canopy-network/stakebatch/lib"
)

// StateMachine is the settlement engine: it owns the contract aggregate, the accounts, the batches,
// the receipts and the scheduled venue calls, all kept in a single key value store
//
// every exported mutating operation runs inside exactly one store transaction that is committed
// on success and discarded on any error (or panic); the StateMachine itself is not goroutine safe
// and expects a single writer to serialize calls
type StateMachine struct {
	store lib.StoreI // the committed state
	txn   lib.TxnI   // the transaction of the operation in progress, nil between operations

	Config  lib.Config   // engine, gas and venue options
	clock   func() time.Time
	log     lib.LoggerI
	metrics *lib.Metrics

	pending   []*Event // events emitted by the operation in progress, logged after commit
	scheduled int      // tasks scheduled by the operation in progress
}

// New() creates a new instance of a StateMachine and initializes the contract on first use
func New(c lib.Config, store lib.StoreI, metrics *lib.Metrics, log lib.LoggerI) (*StateMachine, lib.ErrorI) {
	sm := &StateMachine{
		store:   store,
		Config:  c,
		clock:   time.Now,
		log:     log,
		metrics: metrics,
	}
	if err := sm.Initialize(); err != nil {
		return nil, err
	}
	return sm, sm.loadParams()
}

// Initialize() creates the contract aggregate if the store is empty
func (s *StateMachine) Initialize() lib.ErrorI {
	return s.atomic(func() lib.ErrorI {
		bz, err := s.Get(ContractKey())
		if err != nil || bz != nil {
			return err
		}
		s.log.Infof("Initializing contract state with owner %s", s.Config.OwnerId)
		return s.SetContract(NewContractState(s.Config.OwnerId))
	})
}

// SetClock() overrides the time source used for block timestamps
func (s *StateMachine) SetClock(clock func() time.Time) { s.clock = clock }

// atomic() runs the operation inside a fresh store transaction
// - any error or panic discards every write of the operation
// - on success the logical block height advances, the writes are committed and the events are logged
func (s *StateMachine) atomic(op func() lib.ErrorI) lib.ErrorI { return s.transact(op, true) }

// transact() runs the operation inside a fresh store transaction, ticking the block clock when asked
func (s *StateMachine) transact(op func() lib.ErrorI, tick bool) (err lib.ErrorI) {
	// nested calls join the outer transaction
	if s.txn != nil {
		return op()
	}
	s.txn, s.pending, s.scheduled = s.store.NewTxn(), nil, 0
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("%v\n%s", r, debug.Stack())
			err = lib.ErrPanic()
		}
		if err != nil {
			s.txn.Discard()
		}
		s.txn = nil
		s.metrics.OperationProcessed(err == nil)
	}()
	if err = op(); err != nil {
		return
	}
	if tick {
		if err = s.advanceBlock(); err != nil {
			return
		}
	}
	if err = s.txn.Commit(); err != nil {
		return
	}
	for _, e := range s.pending {
		s.log.Infof("EVENT %s %s", e.Type, e.Data)
	}
	s.updateMetrics()
	return
}

// advanceBlock() ticks the logical block clock once per committed operation
func (s *StateMachine) advanceBlock() lib.ErrorI {
	contract, err := s.GetContract()
	if err != nil {
		return err
	}
	contract.BlockHeight++
	return s.SetContract(contract)
}

// blockTimeHeight() is the block context of the operation in progress
func (s *StateMachine) blockTimeHeight() (BlockTimeHeight, lib.ErrorI) {
	contract, err := s.GetContract()
	if err != nil {
		return BlockTimeHeight{}, err
	}
	height := contract.BlockHeight + 1
	epoch := uint64(0)
	if s.Config.BlocksPerEpoch != 0 {
		epoch = height / s.Config.BlocksPerEpoch
	}
	return BlockTimeHeight{
		BlockHeight:    height,
		BlockTimestamp: uint64(s.clock().UnixNano()),
		EpochHeight:    epoch,
	}, nil
}

// updateMetrics() publishes the committed aggregates
func (s *StateMachine) updateMetrics() {
	if s.metrics == nil {
		return
	}
	c, err := s.GetContract()
	if err != nil {
		return
	}
	totals := lib.EngineTotals{
		TotalStakeSupply:  c.TotalStakeSupply.Float64() / 1e24,
		TotalNear:         c.TotalNear.Float64() / 1e24,
		NearLiquidityPool: c.NearLiquidityPool.Float64() / 1e24,
		CollectedEarnings: c.CollectedEarnings.Float64() / 1e24,
		OwnerBalance:      c.OwnerBalance.Float64() / 1e24,
		StakeLockState:    int(c.StakeLock.State),
		RedeemLockState:   int(c.RedeemLock.State),
	}
	if near, e := c.StakeTokenValue.StakeToNear(lib.OneStake()); e == nil {
		totals.NearPerStake = near.Float64() / 1e24
	}
	if b, _ := s.GetStakeBatch(c.StakeBatchId); b != nil {
		totals.StakeBatchBalance = b.Balance.Float64() / 1e24
	}
	if b, _ := s.GetRedeemStakeBatch(c.RedeemStakeBatchId); b != nil {
		totals.RedeemBatchBalance = b.Balance.Float64() / 1e24
	}
	s.metrics.UpdateEngineMetrics(totals)
}

// Store() returns the transaction of the operation in progress, or the committed store
func (s *StateMachine) Store() lib.RWStoreI {
	if s.txn != nil {
		return s.txn
	}
	return readOnly{s.store}
}

// Set() upserts a key-value pair under a key
func (s *StateMachine) Set(k, v []byte) lib.ErrorI { return s.Store().Set(k, v) }

// Get() retrieves a key-value pair under a key
// NOTE: returns (nil, nil) if no value is found for that key
func (s *StateMachine) Get(key []byte) ([]byte, lib.ErrorI) { return s.Store().Get(key) }

// Delete() deletes a key-value pair under a key
func (s *StateMachine) Delete(key []byte) lib.ErrorI { return s.Store().Delete(key) }

// Iterator() creates and returns an iterator over a prefix in ascending key order
func (s *StateMachine) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return s.Store().Iterator(prefix)
}

// RevIterator() creates and returns an iterator over a prefix in descending key order
func (s *StateMachine) RevIterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return s.Store().RevIterator(prefix)
}

// IterateAndExecute() creates an iterator and executes a callback function for each key-value pair
func (s *StateMachine) IterateAndExecute(prefix []byte, callback func(key, value []byte) lib.ErrorI) lib.ErrorI {
	it, err := s.Iterator(prefix)
	if err != nil {
		return err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err = callback(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return nil
}

// readOnly exposes the committed store outside of an operation; writes are rejected
type readOnly struct{ lib.StoreI }

func (r readOnly) Set(_, _ []byte) lib.ErrorI { return ErrWriteOutsideOperation() }
func (r readOnly) Delete(_ []byte) lib.ErrorI { return ErrWriteOutsideOperation() }

// GetContract() loads the contract aggregate
func (s *StateMachine) GetContract() (*ContractState, lib.ErrorI) {
	bz, err := s.Get(ContractKey())
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, ErrContractNotInitialized()
	}
	c := new(ContractState)
	if err = lib.Unmarshal(bz, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetContract() saves the contract aggregate
func (s *StateMachine) SetContract(c *ContractState) lib.ErrorI {
	bz, err := lib.Marshal(c)
	if err != nil {
		return err
	}
	return s.Set(ContractKey(), bz)
}

// ContractState is the contract aggregate
// the four batch slots hold ids into the batch tables, zero meaning the slot is empty
type ContractState struct {
	OwnerId                   string          `json:"ownerId"`
	StakeBatchId              BatchId         `json:"stakeBatchId,omitempty"`
	NextStakeBatchId          BatchId         `json:"nextStakeBatchId,omitempty"`
	RedeemStakeBatchId        BatchId         `json:"redeemStakeBatchId,omitempty"`
	NextRedeemStakeBatchId    BatchId         `json:"nextRedeemStakeBatchId,omitempty"`
	StakeLock                 StakeLock       `json:"stakeLock"`
	RedeemLock                RedeemLock      `json:"redeemLock"`
	StakeTokenValue           StakeTokenValue `json:"stakeTokenValue"`
	TotalStakeSupply          lib.YoctoStake  `json:"totalStakeSupply"`
	TotalNear                 lib.YoctoNear   `json:"totalNear"`
	NearLiquidityPool         lib.YoctoNear   `json:"nearLiquidityPool"`
	BatchIdSequence           BatchId         `json:"batchIdSequence"`
	CollectedEarnings         lib.YoctoNear   `json:"collectedEarnings"`
	OwnerBalance              lib.YoctoNear   `json:"ownerBalance"`
	TotalAccountStorageEscrow lib.YoctoNear   `json:"totalAccountStorageEscrow"`
	RegisteredAccounts        uint64          `json:"registeredAccounts"`
	RoundSequence             uint64          `json:"roundSequence"`
	BlockHeight               uint64          `json:"blockHeight"`
}

// NewContractState() is the aggregate of a freshly deployed contract
func NewContractState(ownerId string) *ContractState {
	return &ContractState{OwnerId: ownerId}
}

// CanRunBatch() is true when neither a stake round, a refresh nor an unstake is in flight
func (c *ContractState) CanRunBatch() bool {
	return c.StakeLock.State == StakeLockNone && !c.IsUnstaking()
}

// IsUnstaking() is true while the unstake leg of a redeem round is in flight
func (c *ContractState) IsUnstaking() bool { return c.RedeemLock.State == RedeemLockUnstaking }

// StakeBatchLocked() is true while the stake side is in any locked state
func (c *ContractState) StakeBatchLocked() bool { return c.StakeLock.State != StakeLockNone }

// nextBatchId() issues a batch id; ids are shared by both batch kinds and never reused
func (c *ContractState) nextBatchId() (BatchId, lib.ErrorI) {
	if c.BatchIdSequence == math.MaxUint64 {
		return 0, ErrIllegalState("batch id sequence is exhausted")
	}
	c.BatchIdSequence++
	return c.BatchIdSequence, nil
}
