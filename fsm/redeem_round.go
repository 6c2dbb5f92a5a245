package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the redeem round: the current redeem batch is unstaked at the venue and withdrawn after the lock-up */

// Unstake() advances the redeem side
// - None: starts a round for the current redeem batch
// - PendingWithdrawal: polls the venue and withdraws the unstaked NEAR once it is released
func (s *StateMachine) Unstake() lib.ErrorI {
	return s.atomic(s.unstake)
}

func (s *StateMachine) unstake() lib.ErrorI {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	switch c.StakeLock.State {
	case StakeLockNone:
	case StakeLockRefreshing:
		return ErrRefreshInProcess()
	default:
		return ErrStakeLocked(c.StakeLock.State)
	}
	gas := s.Config.Callbacks
	switch c.RedeemLock.State {
	case RedeemLockUnstaking:
		return ErrRedeemLocked(c.RedeemLock.State)
	case RedeemLockPendingWithdrawal:
		queued, e := s.hasTasks(TaskKindRedeem)
		if e != nil {
			return e
		}
		if queued {
			return ErrRoundInProgress(TaskKindRedeem)
		}
		return s.schedule(&Task{
			Round: c.RedeemLock.Round,
			Kind:  TaskKindRedeem,
			Calls: []lib.VenueCall{s.getAccountCall()},
			Then:  OnRedeemingStakePendingWithdrawal,
			Gas:   gas.OnRedeemingStakePendingWithdrawal,
		})
	}
	batch, err := s.GetRedeemStakeBatch(c.RedeemStakeBatchId)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrNoRedeemBatch()
	}
	round := uint64(batch.Id)
	if err = c.setRedeemLock(RedeemLock{State: RedeemLockUnstaking, Round: round}); err != nil {
		return err
	}
	s.log.Infof("Running redeem batch %d with %s yocto-STAKE", batch.Id, batch.Balance)
	err = s.schedule(&Task{
		Round:   round,
		Kind:    TaskKindRedeem,
		Calls:   []lib.VenueCall{s.getAccountCall()},
		Then:    OnRunRedeemStakeBatch,
		Finally: ClearRedeemLock,
		Gas:     gas.OnRunRedeemStakeBatch,
	})
	if err != nil {
		return err
	}
	return s.SetContract(c)
}

// canUnstake() is true when an unstake started right now would schedule work
func (s *StateMachine) canUnstake(c *ContractState) (bool, lib.ErrorI) {
	if !c.CanRunBatch() {
		return false, nil
	}
	switch c.RedeemLock.State {
	case RedeemLockNone:
		return c.RedeemStakeBatchId != 0, nil
	case RedeemLockPendingWithdrawal:
		queued, err := s.hasTasks(TaskKindRedeem)
		return !queued, err
	}
	return false, nil
}

// onRunRedeemStakeBatch() unstakes the redeem batch once the venue holds no unstaked NEAR
// unstaked NEAR left at the venue is first withdrawn; it is already part of the staked balance and
// reaches the liquidity pool only through the token value compensation
func (s *StateMachine) onRunRedeemStakeBatch(t *Task, r *TaskResult) lib.ErrorI {
	account, err := venueAccount(r)
	if err != nil {
		return err
	}
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	gas := s.Config.Callbacks
	if !account.UnstakedBalance.IsZero() {
		if !account.CanWithdraw {
			// the round ends here and the batch stays open for a later attempt
			s.log.Warnf("Venue holds %s unstaked yocto that cannot be withdrawn yet, redeem batch %d waits", account.UnstakedBalance, t.Round)
			return nil
		}
		return s.schedule(&Task{
			Round: t.Round,
			Kind:  TaskKindRedeem,
			Calls: []lib.VenueCall{
				{Kind: lib.CallWithdraw, Amount: account.UnstakedBalance, Gas: s.Config.StakingPool.Withdraw},
				s.getAccountCall(),
			},
			Then:    OnRunRedeemStakeBatch,
			Finally: ClearRedeemLock,
			Gas:     gas.OnRunRedeemStakeBatch,
		})
	}
	batch, err := s.mustGetRedeemStakeBatch(c.RedeemStakeBatchId)
	if err != nil {
		return err
	}
	if err = s.updateStakeTokenValue(c, account.StakedBalance); err != nil {
		return err
	}
	amount, err := c.StakeTokenValue.StakeToNear(batch.Balance)
	if err != nil {
		return err
	}
	// compensated dust is owed by the liquidity pool, not by the venue
	amount = lib.MinAmount(amount, account.StakedBalance)
	if err = s.SetContract(c); err != nil {
		return err
	}
	return s.schedule(&Task{
		Round: t.Round,
		Kind:  TaskKindRedeem,
		Calls: []lib.VenueCall{
			{Kind: lib.CallUnstake, Amount: amount, Gas: s.Config.StakingPool.Unstake},
			s.getAccountCall(),
		},
		Then:    OnUnstake,
		Finally: ClearRedeemLock,
		Gas:     gas.OnUnstake,
		Args:    TaskArgs{Unstaked: amount},
	})
}

// onUnstake() settles the unstaked batch into a receipt and burns its STAKE
// the receipt is claimable once the unstaked NEAR is withdrawn or covered by the liquidity pool
func (s *StateMachine) onUnstake(t *Task, _ *TaskResult) (err lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	batch, err := s.mustGetRedeemStakeBatch(c.RedeemStakeBatchId)
	if err != nil {
		return err
	}
	receipt := NewReceipt(batch.Id, batch.Balance, c.StakeTokenValue)
	if err = s.SetRedeemStakeBatchReceipt(receipt); err != nil {
		return err
	}
	if err = s.EventRedeemStakeBatchReceiptCreated(receipt); err != nil {
		return err
	}
	if c.TotalStakeSupply, err = c.TotalStakeSupply.Sub(batch.Balance); err != nil {
		return err
	}
	redeemed, err := receipt.StakeTokenValue.StakeToNear(batch.Balance)
	if err != nil {
		return err
	}
	c.StakeTokenValue.TotalStakedNearBalance = c.StakeTokenValue.TotalStakedNearBalance.SaturatingSub(redeemed)
	c.StakeTokenValue.TotalStakeSupply = c.TotalStakeSupply
	if err = c.setRedeemLock(RedeemLock{State: RedeemLockPendingWithdrawal, Round: t.Round}); err != nil {
		return err
	}
	s.log.Infof("Redeem batch %d unstaked %s yocto, pending withdrawal", batch.Id, t.Args.Unstaked)
	return s.SetContract(c)
}

// onRedeemingStakePendingWithdrawal() withdraws the unstaked NEAR once the venue releases it
func (s *StateMachine) onRedeemingStakePendingWithdrawal(t *Task, r *TaskResult) lib.ErrorI {
	account, err := venueAccount(r)
	if err != nil {
		return err
	}
	if !account.CanWithdraw || account.UnstakedBalance.IsZero() {
		return ErrVenueNotWithdraw()
	}
	return s.schedule(&Task{
		Round: t.Round,
		Kind:  TaskKindRedeem,
		Calls: []lib.VenueCall{
			{Kind: lib.CallWithdraw, Amount: account.UnstakedBalance, Gas: s.Config.StakingPool.Withdraw},
			s.getAccountCall(),
		},
		Then: OnRedeemingStakePostWithdrawal,
		Gas:  s.Config.Callbacks.OnRedeemingStakePostWithdrawal,
		Args: TaskArgs{Withdrawn: account.UnstakedBalance},
	})
}

// onRedeemingStakePostWithdrawal() moves the withdrawn NEAR onto the books and ends the redeem round
// NEAR withdrawn beyond what the receipt still owes goes to the liquidity pool; a shortfall is taken from it
func (s *StateMachine) onRedeemingStakePostWithdrawal(t *Task, r *TaskResult) (err lib.ErrorI) {
	account, err := venueAccount(r)
	if err != nil {
		return err
	}
	if !account.UnstakedBalance.IsZero() {
		s.log.Warnf("Venue still reports %s unstaked yocto after the withdrawal", account.UnstakedBalance)
	}
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	pending, err := s.pendingWithdrawal(c)
	if err != nil {
		return err
	}
	if pending == nil {
		return ErrIllegalState("no pending withdrawal")
	}
	owed, err := s.reserve(c, pending)
	if err != nil {
		return err
	}
	withdrawn := t.Args.Withdrawn
	if withdrawn.GTE(owed) {
		if err = s.addNearLiquidity(c, withdrawn.SaturatingSub(owed)); err != nil {
			return err
		}
	} else {
		shortfall := owed.SaturatingSub(withdrawn)
		if c.NearLiquidityPool.LT(shortfall) {
			s.log.Warnf("Liquidity pool cannot cover the %s yocto withdrawal shortfall of batch %d", shortfall, pending.BatchId)
		}
		c.NearLiquidityPool = c.NearLiquidityPool.SaturatingSub(shortfall)
	}
	if err = s.clearPendingWithdrawal(c); err != nil {
		return err
	}
	return s.SetContract(c)
}

// clearRedeemLock() releases a redeem round whose unstake never completed
func (s *StateMachine) clearRedeemLock(t *Task, r *TaskResult) lib.ErrorI {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	if c.RedeemLock.State != RedeemLockUnstaking || c.RedeemLock.Round != t.Round {
		return nil
	}
	if movedFunds(t, r) {
		s.log.Errorf("Redeem round %d moved funds at the venue and stays locked until cleared by the owner", t.Round)
		return nil
	}
	if err = c.setRedeemLock(RedeemLock{State: RedeemLockNone}); err != nil {
		return err
	}
	if err = s.EventLockCleared("redeem", RedeemLockUnstaking.String(), t.Round); err != nil {
		return err
	}
	return s.SetContract(c)
}
