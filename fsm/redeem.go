package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the redeem side of batch accumulation */

// Redeem() moves STAKE from the account's balance into its redeem batch
// the current batch is used while the redeem side is unlocked, otherwise the request queues into the next batch
func (s *StateMachine) Redeem(id string, amount lib.YoctoStake) (batchId BatchId, err lib.ErrorI) {
	if amount.IsZero() {
		return 0, ErrZeroAmount()
	}
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if batchId, e = s.redeem(c, a, amount); e != nil {
			return e
		}
		return s.save(c, a)
	})
	return
}

// RedeemAll() redeems the account's entire STAKE balance; a zero balance is a no-op that returns no batch
func (s *StateMachine) RedeemAll(id string) (batchId BatchId, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if !a.Stake.IsZero() {
			if batchId, e = s.redeem(c, a, a.Stake); e != nil {
				return e
			}
		}
		return s.save(c, a)
	})
	return
}

// RedeemAndUnstake() redeems and runs the redeem round when no lock blocks it
func (s *StateMachine) RedeemAndUnstake(id string, amount lib.YoctoStake) (batchId BatchId, err lib.ErrorI) {
	if amount.IsZero() {
		return 0, ErrZeroAmount()
	}
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if batchId, e = s.redeem(c, a, amount); e != nil {
			return e
		}
		return s.saveAndUnstake(c, a)
	})
	return
}

// RedeemAllAndUnstake() redeems the account's entire STAKE balance and runs the redeem round when no lock blocks it
func (s *StateMachine) RedeemAllAndUnstake(id string) (batchId BatchId, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if a.Stake.IsZero() {
			return s.save(c, a)
		}
		if batchId, e = s.redeem(c, a, a.Stake); e != nil {
			return e
		}
		return s.saveAndUnstake(c, a)
	})
	return
}

func (s *StateMachine) saveAndUnstake(c *ContractState, a *Account) lib.ErrorI {
	if err := s.save(c, a); err != nil {
		return err
	}
	ok, err := s.canUnstake(c)
	if err != nil || !ok {
		return err
	}
	return s.unstake()
}

func (s *StateMachine) redeem(c *ContractState, a *Account, amount lib.YoctoStake) (BatchId, lib.ErrorI) {
	if a.Stake.LT(amount) {
		return 0, ErrInsufficientBalance("stake", a.Stake, amount)
	}
	slot, accountSlot := &c.RedeemStakeBatchId, &a.RedeemStakeBatch
	if c.RedeemLock.State != RedeemLockNone {
		slot, accountSlot = &c.NextRedeemStakeBatchId, &a.NextRedeemStakeBatch
	}
	batch, err := s.openRedeemStakeBatch(c, slot)
	if err != nil {
		return 0, err
	}
	if *accountSlot == nil {
		*accountSlot = &RedeemStakeBatch{Id: batch.Id}
	}
	if (*accountSlot).Id != batch.Id {
		return 0, ErrBatchIdMismatch((*accountSlot).Id, batch.Id)
	}
	if a.Stake, err = a.Stake.Sub(amount); err != nil {
		return 0, err
	}
	if err = (*accountSlot).Add(amount); err != nil {
		return 0, err
	}
	if err = batch.Add(amount); err != nil {
		return 0, err
	}
	s.log.Debugf("Account %s redeemed %s into redeem batch %d", a.Id, amount, batch.Id)
	return batch.Id, s.SetRedeemStakeBatch(batch)
}

// RemoveFromRedeemBatch() returns STAKE from the account's uncommitted redeem batch to its balance
// while a redeem round is in flight only the next batch is uncommitted
func (s *StateMachine) RemoveFromRedeemBatch(id string, amount lib.YoctoStake) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	return s.atomic(func() lib.ErrorI {
		c, a, err := s.loadClaimed(id)
		if err != nil {
			return err
		}
		if err = s.removeFromRedeemBatch(c, a, amount); err != nil {
			return err
		}
		return s.save(c, a)
	})
}

// RemoveAllFromRedeemBatch() returns the entire uncommitted redeem batch of the account to its balance
func (s *StateMachine) RemoveAllFromRedeemBatch(id string) (amount lib.YoctoStake, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		batch := a.RedeemStakeBatch
		if c.RedeemLock.State != RedeemLockNone {
			batch = a.NextRedeemStakeBatch
		}
		if batch == nil {
			return ErrNoFundsInBatch()
		}
		amount = batch.Balance
		if e = s.removeFromRedeemBatch(c, a, amount); e != nil {
			return e
		}
		return s.save(c, a)
	})
	return
}

func (s *StateMachine) removeFromRedeemBatch(c *ContractState, a *Account, amount lib.YoctoStake) (err lib.ErrorI) {
	slot, accountSlot := &c.RedeemStakeBatchId, &a.RedeemStakeBatch
	if c.RedeemLock.State != RedeemLockNone {
		slot, accountSlot = &c.NextRedeemStakeBatchId, &a.NextRedeemStakeBatch
	}
	if *accountSlot == nil {
		return ErrNoFundsInBatch()
	}
	if (*accountSlot).Balance.LT(amount) {
		return ErrInsufficientBalance("redeem batch", (*accountSlot).Balance, amount)
	}
	if err = s.removeFromRedeemStakeBatch(slot, accountSlot, amount); err != nil {
		return err
	}
	a.Stake, err = a.Stake.Add(amount)
	return
}
