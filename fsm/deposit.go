package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the stake side of batch accumulation */

// MinRequiredDeposit() is the smallest NEAR deposit, the value of the configured minimum STAKE at the current rate
func (s *StateMachine) MinRequiredDeposit() (lib.YoctoNear, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return lib.YoctoNear{}, err
	}
	return s.minRequiredDeposit(c)
}

func (s *StateMachine) minRequiredDeposit(c *ContractState) (lib.YoctoNear, lib.ErrorI) {
	return c.StakeTokenValue.StakeToNear(s.Config.MinStakeDeposit)
}

// Deposit() adds NEAR to the account's stake batch
// the current batch is used while the stake side is unlocked, otherwise the deposit queues into the next batch
func (s *StateMachine) Deposit(id string, amount lib.YoctoNear) (batchId BatchId, err lib.ErrorI) {
	if amount.IsZero() {
		return 0, ErrZeroAmount()
	}
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if batchId, e = s.deposit(c, a, amount); e != nil {
			return e
		}
		return s.save(c, a)
	})
	return
}

func (s *StateMachine) deposit(c *ContractState, a *Account, amount lib.YoctoNear) (BatchId, lib.ErrorI) {
	slot, accountSlot := &c.StakeBatchId, &a.StakeBatch
	if c.StakeBatchLocked() {
		slot, accountSlot = &c.NextStakeBatchId, &a.NextStakeBatch
	}
	batch, err := s.openStakeBatch(c, slot)
	if err != nil {
		return 0, err
	}
	if *accountSlot == nil {
		*accountSlot = &StakeBatch{Id: batch.Id}
	}
	if (*accountSlot).Id != batch.Id {
		return 0, ErrBatchIdMismatch((*accountSlot).Id, batch.Id)
	}
	if err = (*accountSlot).Add(amount); err != nil {
		return 0, err
	}
	min, err := s.minRequiredDeposit(c)
	if err != nil {
		return 0, err
	}
	if (*accountSlot).Balance.LT(min) {
		return 0, ErrDepositBelowMinimum(min)
	}
	if err = batch.Add(amount); err != nil {
		return 0, err
	}
	s.log.Debugf("Account %s deposited %s into stake batch %d", a.Id, amount, batch.Id)
	return batch.Id, s.SetStakeBatch(batch)
}

// DepositAndStake() deposits and runs the stake round when no lock blocks it
func (s *StateMachine) DepositAndStake(id string, amount lib.YoctoNear) (batchId BatchId, err lib.ErrorI) {
	if amount.IsZero() {
		return 0, ErrZeroAmount()
	}
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if batchId, e = s.deposit(c, a, amount); e != nil {
			return e
		}
		if e = s.save(c, a); e != nil {
			return e
		}
		if !c.CanRunBatch() {
			return nil
		}
		return s.runStakeBatch()
	})
	return
}

// WithdrawFromStakeBatch() takes NEAR back out of the account's uncommitted stake batches
// the next batch is drained first; the current batch may only be touched while no round is in flight
func (s *StateMachine) WithdrawFromStakeBatch(id string, amount lib.YoctoNear) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	return s.atomic(func() lib.ErrorI {
		c, a, err := s.loadClaimed(id)
		if err != nil {
			return err
		}
		if err = s.withdrawFromStakeBatch(c, a, amount); err != nil {
			return err
		}
		return s.save(c, a)
	})
}

// WithdrawAllFromStakeBatch() takes every uncommitted NEAR back out of the account's stake batches
func (s *StateMachine) WithdrawAllFromStakeBatch(id string) (amount lib.YoctoNear, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if a.NextStakeBatch != nil {
			amount = a.NextStakeBatch.Balance
		}
		if a.StakeBatch != nil && c.CanRunBatch() {
			if amount, e = amount.Add(a.StakeBatch.Balance); e != nil {
				return e
			}
		}
		if amount.IsZero() {
			return ErrNoFundsInBatch()
		}
		if e = s.withdrawFromStakeBatch(c, a, amount); e != nil {
			return e
		}
		return s.save(c, a)
	})
	return
}

func (s *StateMachine) withdrawFromStakeBatch(c *ContractState, a *Account, amount lib.YoctoNear) (err lib.ErrorI) {
	remaining := amount
	if a.NextStakeBatch != nil {
		taken := lib.MinAmount(remaining, a.NextStakeBatch.Balance)
		if err = s.removeStakeDeposit(c, &c.NextStakeBatchId, &a.NextStakeBatch, taken); err != nil {
			return err
		}
		remaining = remaining.SaturatingSub(taken)
	}
	if !remaining.IsZero() {
		if a.StakeBatch == nil {
			return ErrNoFundsInBatch()
		}
		if err = c.checkCanRunBatch(); err != nil {
			return err
		}
		if a.StakeBatch.Balance.LT(remaining) {
			return ErrInsufficientBalance("stake batch", a.StakeBatch.Balance, remaining)
		}
		if err = s.removeStakeDeposit(c, &c.StakeBatchId, &a.StakeBatch, remaining); err != nil {
			return err
		}
	}
	if a.Near, err = a.Near.Add(amount); err != nil {
		return err
	}
	c.TotalNear, err = c.TotalNear.Add(amount)
	return
}

// removeStakeDeposit() removes the amount from one stake batch; a non-zero remainder must still meet the minimum deposit
func (s *StateMachine) removeStakeDeposit(c *ContractState, slot *BatchId, accountSlot **StakeBatch, amount lib.YoctoNear) lib.ErrorI {
	if err := s.removeFromStakeBatch(slot, accountSlot, amount); err != nil {
		return err
	}
	if *accountSlot == nil {
		return nil
	}
	min, err := s.minRequiredDeposit(c)
	if err != nil {
		return err
	}
	if (*accountSlot).Balance.LT(min) {
		return ErrDepositBelowMinimum(min)
	}
	return nil
}
