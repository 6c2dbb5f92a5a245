package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the lazy settlement of an account's batch references against completed receipts */

// ClaimReceipts() settles the account's completed batches
func (s *StateMachine) ClaimReceipts(id string) lib.ErrorI {
	return s.atomic(func() lib.ErrorI {
		c, a, err := s.loadClaimed(id)
		if err != nil {
			return err
		}
		return s.save(c, a)
	})
}

// claimReceiptFunds() converts every batch reference that has a receipt into STAKE or NEAR
// an account's next batch moves into its current slot once the contract has promoted that batch
func (s *StateMachine) claimReceiptFunds(c *ContractState, a *Account) lib.ErrorI {
	if err := s.claimStakeBatchReceipts(c, a, true); err != nil {
		return err
	}
	return s.claimRedeemStakeBatchReceipts(c, a, true)
}

// claimStakeBatchReceipts() credits STAKE for the account's staked batches
// when persist is false the receipts are left untouched
func (s *StateMachine) claimStakeBatchReceipts(c *ContractState, a *Account, persist bool) lib.ErrorI {
	for _, slot := range []**StakeBatch{&a.StakeBatch, &a.NextStakeBatch} {
		batch := *slot
		if batch == nil {
			continue
		}
		receipt, err := s.GetStakeBatchReceipt(batch.Id)
		if err != nil {
			return err
		}
		if receipt == nil {
			continue
		}
		stake, err := receipt.StakeTokenValue.NearToStake(batch.Balance)
		if err != nil {
			return err
		}
		if a.Stake, err = a.Stake.Add(stake); err != nil {
			return err
		}
		if _, err = receipt.Claim(batch.Balance); err != nil {
			return err
		}
		if persist {
			if err = s.SetStakeBatchReceipt(receipt); err != nil {
				return err
			}
		}
		*slot = nil
	}
	if a.StakeBatch == nil && a.NextStakeBatch != nil && a.NextStakeBatch.Id == c.StakeBatchId {
		a.StakeBatch, a.NextStakeBatch = a.NextStakeBatch, nil
	}
	return nil
}

// claimRedeemStakeBatchReceipts() credits NEAR for the account's redeemed batches
// - nothing is claimable while the unstake leg is in flight
// - the batch pending withdrawal may only be claimed against the liquidity pool
func (s *StateMachine) claimRedeemStakeBatchReceipts(c *ContractState, a *Account, persist bool) lib.ErrorI {
	if c.IsUnstaking() {
		return nil
	}
	pending := c.RedeemLock.State == RedeemLockPendingWithdrawal
	for _, slot := range []**RedeemStakeBatch{&a.RedeemStakeBatch, &a.NextRedeemStakeBatch} {
		batch := *slot
		if batch == nil {
			continue
		}
		receipt, err := s.GetRedeemStakeBatchReceipt(batch.Id)
		if err != nil {
			return err
		}
		if receipt == nil {
			continue
		}
		if pending && batch.Id == c.RedeemStakeBatchId {
			if !persist || c.NearLiquidityPool.IsZero() {
				continue
			}
			if err = s.claimAgainstLiquidityPool(c, a, slot, receipt); err != nil {
				return err
			}
			continue
		}
		near, err := redeemedNear(receipt, batch.Balance)
		if err != nil {
			return err
		}
		if a.Near, err = a.Near.Add(near); err != nil {
			return err
		}
		if receipt.Reserved, err = receipt.Reserved.Sub(near); err != nil {
			return err
		}
		if _, err = receipt.Claim(batch.Balance); err != nil {
			return err
		}
		if persist {
			if err = s.SetRedeemStakeBatchReceipt(receipt); err != nil {
				return err
			}
		}
		*slot = nil
	}
	if a.RedeemStakeBatch == nil && a.NextRedeemStakeBatch != nil && a.NextRedeemStakeBatch.Id == c.RedeemStakeBatchId {
		a.RedeemStakeBatch, a.NextRedeemStakeBatch = a.NextRedeemStakeBatch, nil
	}
	return nil
}

// claimAgainstLiquidityPool() settles as much of the pending batch as the liquidity pool covers
// if the receipt is exhausted the pending withdrawal cycle is finalized early
func (s *StateMachine) claimAgainstLiquidityPool(c *ContractState, a *Account, slot **RedeemStakeBatch, receipt *RedeemStakeBatchReceipt) lib.ErrorI {
	batch, value := *slot, &receipt.StakeTokenValue
	owed, err := value.StakeToNear(batch.Balance)
	if err != nil {
		return err
	}
	claimed := lib.MinAmount(owed, c.NearLiquidityPool)
	redeemable := batch.Balance
	if claimed.LT(owed) {
		if redeemable, err = value.NearToStake(claimed); err != nil {
			return err
		}
	}
	if redeemable.IsZero() {
		return nil
	}
	// the claimed share leaves the batch at both levels
	if err = s.removeFromPendingBatch(c, slot, redeemable); err != nil {
		return err
	}
	if a.Near, err = a.Near.Add(claimed); err != nil {
		return err
	}
	if c.NearLiquidityPool, err = c.NearLiquidityPool.Sub(claimed); err != nil {
		return err
	}
	if c.TotalNear, err = c.TotalNear.Add(claimed); err != nil {
		return err
	}
	exhausted, err := receipt.Claim(redeemable)
	if err != nil {
		return err
	}
	if err = s.SetRedeemStakeBatchReceipt(receipt); err != nil {
		return err
	}
	if !exhausted {
		return nil
	}
	s.log.Infof("Pending withdrawal of batch %d settled from the liquidity pool", receipt.BatchId)
	return s.clearPendingWithdrawal(c)
}

// removeFromPendingBatch() debits the account's pending batch and the contract record without cancelling it
func (s *StateMachine) removeFromPendingBatch(c *ContractState, slot **RedeemStakeBatch, amount lib.YoctoStake) lib.ErrorI {
	batch, err := s.mustGetRedeemStakeBatch(c.RedeemStakeBatchId)
	if err != nil {
		return err
	}
	if _, err = batch.Remove(amount); err != nil {
		return err
	}
	empty, err := (*slot).Remove(amount)
	if err != nil {
		return err
	}
	if empty {
		*slot = nil
	}
	return s.SetRedeemStakeBatch(batch)
}

// clearPendingWithdrawal() ends the redeem round: the lock clears and the next redeem batch is promoted
func (s *StateMachine) clearPendingWithdrawal(c *ContractState) lib.ErrorI {
	id := c.RedeemStakeBatchId
	if err := c.setRedeemLock(RedeemLock{State: RedeemLockNone}); err != nil {
		return err
	}
	if err := s.popRedeemStakeBatch(c); err != nil {
		return err
	}
	s.metrics.RoundCompleted(string(TaskKindRedeem))
	return s.EventPendingWithdrawalCleared(id)
}

// ApplyReceiptFundsForView() returns the account as it would look after claiming, without changing any state
// pending withdrawals are not settled against the liquidity pool in the view
func (s *StateMachine) ApplyReceiptFundsForView(id string) (*Account, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	a, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}
	if err = s.claimStakeBatchReceipts(c, a, false); err != nil {
		return nil, err
	}
	if err = s.claimRedeemStakeBatchReceipts(c, a, false); err != nil {
		return nil, err
	}
	return a, nil
}
