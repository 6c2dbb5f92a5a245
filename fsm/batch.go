package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

// BatchId identifies a batch; ids are shared by both batch kinds, strictly increasing and never reused
// zero is reserved for 'no batch'
//
// ids are 64 bits wide: the engine opens at most two batches per operation, so the sequence
// cannot wrap in practice, and issuing past the maximum fails instead of reusing an id
type BatchId uint64

// Batch is a round's pool of pending funds
// the contract level batch holds the total, an account level batch with the same id holds the account's claim on it
type Batch[D lib.Denomination] struct {
	Id      BatchId       `json:"id"`
	Balance lib.Amount[D] `json:"balance"`
}

type (
	StakeBatch       = Batch[lib.Near]  // NEAR waiting to be staked
	RedeemStakeBatch = Batch[lib.Stake] // STAKE waiting to be redeemed
)

// Add() increases the batch balance
func (b *Batch[D]) Add(amount lib.Amount[D]) (err lib.ErrorI) {
	b.Balance, err = b.Balance.Add(amount)
	return
}

// Remove() decreases the batch balance and reports if the batch is now empty
func (b *Batch[D]) Remove(amount lib.Amount[D]) (empty bool, err lib.ErrorI) {
	if amount.GT(b.Balance) {
		return false, ErrInsufficientBalance("batch", b.Balance, amount)
	}
	b.Balance, err = b.Balance.Sub(amount)
	return b.Balance.IsZero(), err
}

// GetStakeBatch() returns the contract level stake batch or nil if the id is zero or unknown
func (s *StateMachine) GetStakeBatch(id BatchId) (*StakeBatch, lib.ErrorI) {
	return getBatch[lib.Near](s, id, KeyForStakeBatch(id))
}

// GetRedeemStakeBatch() returns the contract level redeem batch or nil if the id is zero or unknown
func (s *StateMachine) GetRedeemStakeBatch(id BatchId) (*RedeemStakeBatch, lib.ErrorI) {
	return getBatch[lib.Stake](s, id, KeyForRedeemBatch(id))
}

// SetStakeBatch() saves the contract level stake batch
func (s *StateMachine) SetStakeBatch(b *StakeBatch) lib.ErrorI {
	return s.setRecord(KeyForStakeBatch(b.Id), b)
}

// SetRedeemStakeBatch() saves the contract level redeem batch
func (s *StateMachine) SetRedeemStakeBatch(b *RedeemStakeBatch) lib.ErrorI {
	return s.setRecord(KeyForRedeemBatch(b.Id), b)
}

// getBatch() loads a batch record
func getBatch[D lib.Denomination](s *StateMachine, id BatchId, key []byte) (*Batch[D], lib.ErrorI) {
	if id == 0 {
		return nil, nil
	}
	bz, err := s.Get(key)
	if err != nil || bz == nil {
		return nil, err
	}
	b := new(Batch[D])
	if err = lib.Unmarshal(bz, b); err != nil {
		return nil, err
	}
	return b, nil
}

// mustGetStakeBatch() loads a stake batch that an invariant says exists
func (s *StateMachine) mustGetStakeBatch(id BatchId) (*StakeBatch, lib.ErrorI) {
	b, err := s.GetStakeBatch(id)
	if err == nil && b == nil {
		err = ErrBatchNotFound(id)
	}
	return b, err
}

// mustGetRedeemStakeBatch() loads a redeem batch that an invariant says exists
func (s *StateMachine) mustGetRedeemStakeBatch(id BatchId) (*RedeemStakeBatch, lib.ErrorI) {
	b, err := s.GetRedeemStakeBatch(id)
	if err == nil && b == nil {
		err = ErrBatchNotFound(id)
	}
	return b, err
}

// setRecord() rlp encodes and saves a record
func (s *StateMachine) setRecord(key []byte, record any) lib.ErrorI {
	bz, err := lib.Marshal(record)
	if err != nil {
		return err
	}
	return s.Set(key, bz)
}

// openStakeBatch() returns the contract stake batch in the slot, creating it with a fresh id if the slot is empty
func (s *StateMachine) openStakeBatch(c *ContractState, slot *BatchId) (*StakeBatch, lib.ErrorI) {
	if *slot != 0 {
		return s.mustGetStakeBatch(*slot)
	}
	id, err := c.nextBatchId()
	if err != nil {
		return nil, err
	}
	*slot = id
	return &StakeBatch{Id: id}, s.EventStakeBatchCreated(id)
}

// openRedeemStakeBatch() returns the contract redeem batch in the slot, creating it with a fresh id if the slot is empty
func (s *StateMachine) openRedeemStakeBatch(c *ContractState, slot *BatchId) (*RedeemStakeBatch, lib.ErrorI) {
	if *slot != 0 {
		return s.mustGetRedeemStakeBatch(*slot)
	}
	id, err := c.nextBatchId()
	if err != nil {
		return nil, err
	}
	*slot = id
	return &RedeemStakeBatch{Id: id}, s.EventRedeemStakeBatchCreated(id)
}

// removeFromStakeBatch() takes the amount out of a batch at both levels
// an emptied batch is deleted at the contract level and the account slot is cleared
func (s *StateMachine) removeFromStakeBatch(slot *BatchId, accountSlot **StakeBatch, amount lib.YoctoNear) lib.ErrorI {
	if *accountSlot == nil || (*accountSlot).Id != *slot {
		return ErrIllegalState("account stake batch does not match the contract batch")
	}
	batch, err := s.mustGetStakeBatch(*slot)
	if err != nil {
		return err
	}
	empty, err := batch.Remove(amount)
	if err != nil {
		return err
	}
	accountEmpty, err := (*accountSlot).Remove(amount)
	if err != nil {
		return err
	}
	if accountEmpty {
		*accountSlot = nil
	}
	if !empty {
		return s.SetStakeBatch(batch)
	}
	if err = s.Delete(KeyForStakeBatch(batch.Id)); err != nil {
		return err
	}
	*slot = 0
	return s.EventStakeBatchCancelled(batch.Id)
}

// removeFromRedeemStakeBatch() takes the amount out of a redeem batch at both levels
func (s *StateMachine) removeFromRedeemStakeBatch(slot *BatchId, accountSlot **RedeemStakeBatch, amount lib.YoctoStake) lib.ErrorI {
	if *accountSlot == nil || (*accountSlot).Id != *slot {
		return ErrIllegalState("account redeem batch does not match the contract batch")
	}
	batch, err := s.mustGetRedeemStakeBatch(*slot)
	if err != nil {
		return err
	}
	empty, err := batch.Remove(amount)
	if err != nil {
		return err
	}
	accountEmpty, err := (*accountSlot).Remove(amount)
	if err != nil {
		return err
	}
	if accountEmpty {
		*accountSlot = nil
	}
	if !empty {
		return s.SetRedeemStakeBatch(batch)
	}
	if err = s.Delete(KeyForRedeemBatch(batch.Id)); err != nil {
		return err
	}
	*slot = 0
	return s.EventRedeemStakeBatchCancelled(batch.Id)
}

// popStakeBatch() retires the current stake batch record and promotes the next batch
func (s *StateMachine) popStakeBatch(c *ContractState) lib.ErrorI {
	if err := s.Delete(KeyForStakeBatch(c.StakeBatchId)); err != nil {
		return err
	}
	c.StakeBatchId, c.NextStakeBatchId = c.NextStakeBatchId, 0
	return nil
}

// popRedeemStakeBatch() retires the current redeem batch record and promotes the next batch
func (s *StateMachine) popRedeemStakeBatch(c *ContractState) lib.ErrorI {
	if err := s.Delete(KeyForRedeemBatch(c.RedeemStakeBatchId)); err != nil {
		return err
	}
	c.RedeemStakeBatchId, c.NextRedeemStakeBatchId = c.NextRedeemStakeBatchId, 0
	return nil
}

// Batches is the summary of the open contract level batches
type Batches struct {
	StakeBatch           *StakeBatch       `json:"stakeBatch,omitempty" rlp:"nil"`
	NextStakeBatch       *StakeBatch       `json:"nextStakeBatch,omitempty" rlp:"nil"`
	RedeemStakeBatch     *RedeemStakeBatch `json:"redeemStakeBatch,omitempty" rlp:"nil"`
	NextRedeemStakeBatch *RedeemStakeBatch `json:"nextRedeemStakeBatch,omitempty" rlp:"nil"`
}
