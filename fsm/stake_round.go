package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the stake round: the current stake batch is staked at the venue and settled into a receipt */

// Stake() advances the stake side
// - None: starts a round for the current stake batch
// - Staked: finishes the round the venue already confirmed
func (s *StateMachine) Stake() lib.ErrorI {
	return s.atomic(func() lib.ErrorI {
		c, err := s.GetContract()
		if err != nil {
			return err
		}
		switch c.StakeLock.State {
		case StakeLockNone:
			return s.runStakeBatch()
		case StakeLockStaked:
			return s.processStakedBatch()
		case StakeLockRefreshing:
			return ErrRefreshInProcess()
		}
		return ErrStakeLocked(c.StakeLock.State)
	})
}

// runStakeBatch() locks the stake side and schedules the venue calls of the round
// while a redeem batch awaits withdrawal the round first reads the venue to lend its unstaked NEAR to the batch
func (s *StateMachine) runStakeBatch() lib.ErrorI {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	if err = c.checkCanRunBatch(); err != nil {
		return err
	}
	batch, err := s.GetStakeBatch(c.StakeBatchId)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrNoStakeBatch()
	}
	round := uint64(batch.Id)
	if err = c.setStakeLock(StakeLock{State: StakeLockStaking, Round: round}); err != nil {
		return err
	}
	if err = s.distributeEarnings(c); err != nil {
		return err
	}
	pending, err := s.pendingWithdrawal(c)
	if err != nil {
		return err
	}
	gas := s.Config.Callbacks
	task := &Task{Round: round, Kind: TaskKindStake, Finally: ClearStakeLock}
	if pending != nil {
		task.Calls, task.Then, task.Gas = []lib.VenueCall{s.getAccountCall()}, OnRunStakeBatch, gas.OnRunStakeBatch
	} else {
		// the liquidity pool is staked along with the batch
		amount, e := batch.Balance.Add(c.NearLiquidityPool)
		if e != nil {
			return e
		}
		task.Args.Pooled, c.NearLiquidityPool = c.NearLiquidityPool, lib.YoctoNear{}
		task.Calls = []lib.VenueCall{
			{Kind: lib.CallDepositAndStake, Amount: amount, Gas: s.Config.StakingPool.DepositAndStake},
			s.getAccountCall(),
		}
		task.Then, task.Gas = OnDepositAndStake, gas.OnDepositAndStake
	}
	s.log.Infof("Running stake batch %d with %s yocto", batch.Id, batch.Balance)
	if err = s.schedule(task); err != nil {
		return err
	}
	return s.SetContract(c)
}

// onRunStakeBatch() restakes the venue's unstaked NEAR on behalf of the batch and deposits the rest
// the NEAR kept back is added to the liquidity pool once the venue confirms
func (s *StateMachine) onRunStakeBatch(t *Task, r *TaskResult) lib.ErrorI {
	account, err := venueAccount(r)
	if err != nil {
		return err
	}
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	batch, err := s.mustGetStakeBatch(c.StakeBatchId)
	if err != nil {
		return err
	}
	liquidity := lib.MinAmount(batch.Balance, account.UnstakedBalance)
	var calls []lib.VenueCall
	if !liquidity.IsZero() {
		calls = append(calls, lib.VenueCall{Kind: lib.CallStake, Amount: liquidity, Gas: s.Config.StakingPool.Stake})
	}
	if rest := batch.Balance.SaturatingSub(liquidity); !rest.IsZero() {
		calls = append(calls, lib.VenueCall{Kind: lib.CallDepositAndStake, Amount: rest, Gas: s.Config.StakingPool.DepositAndStake})
	}
	return s.schedule(&Task{
		Round:   t.Round,
		Kind:    TaskKindStake,
		Calls:   append(calls, s.getAccountCall()),
		Then:    OnDepositAndStake,
		Finally: ClearStakeLock,
		Gas:     s.Config.Callbacks.OnDepositAndStake,
		Args:    TaskArgs{Liquidity: liquidity},
	})
}

// onDepositAndStake() records the venue balances after the stake and moves the lock to Staked
// lent liquidity that covers the pending withdrawal ends the redeem round early
func (s *StateMachine) onDepositAndStake(t *Task, r *TaskResult) lib.ErrorI {
	account, err := venueAccount(r)
	if err != nil {
		return err
	}
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	if !t.Args.Liquidity.IsZero() {
		if err = s.addNearLiquidity(c, t.Args.Liquidity); err != nil {
			return err
		}
		if err = s.settlePendingWithdrawalFromPool(c); err != nil {
			return err
		}
	}
	err = c.setStakeLock(StakeLock{
		State:         StakeLockStaked,
		Round:         t.Round,
		Staked:        account.StakedBalance,
		Unstaked:      account.UnstakedBalance,
		NearLiquidity: t.Args.Liquidity,
	})
	if err != nil {
		return err
	}
	if err = s.SetContract(c); err != nil {
		return err
	}
	return s.schedule(&Task{Round: t.Round, Kind: TaskKindStake, Then: ProcessStakedBatch, Gas: s.Config.Callbacks.Unlock})
}

// settlePendingWithdrawalFromPool() ends the pending withdrawal once the pool holds all of its NEAR
func (s *StateMachine) settlePendingWithdrawalFromPool(c *ContractState) lib.ErrorI {
	pending, err := s.pendingWithdrawal(c)
	if err != nil || pending == nil {
		return err
	}
	owed, err := pending.StakeTokenValue.StakeToNear(pending.Unclaimed)
	if err != nil {
		return err
	}
	if c.NearLiquidityPool.LT(owed) {
		return nil
	}
	if c.NearLiquidityPool, err = c.NearLiquidityPool.Sub(owed); err != nil {
		return err
	}
	if _, err = s.reserve(c, pending); err != nil {
		return err
	}
	s.log.Infof("Pending withdrawal of batch %d covered by the liquidity pool", pending.BatchId)
	return s.clearPendingWithdrawal(c)
}

func (s *StateMachine) onProcessStakedBatch(_ *Task) lib.ErrorI { return s.processStakedBatch() }

// processStakedBatch() settles the staked batch into a receipt and mints its STAKE
// the batch converts at the value of the venue balance excluding the batch itself
func (s *StateMachine) processStakedBatch() lib.ErrorI {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	if c.StakeLock.State != StakeLockStaked {
		return ErrIllegalState("stake batch is not staked")
	}
	batch, err := s.mustGetStakeBatch(c.StakeBatchId)
	if err != nil {
		return err
	}
	total := c.StakeLock.Staked
	// unstaked NEAR that awaits withdrawal belongs to the redeemed batch
	if c.RedeemLock.State != RedeemLockPendingWithdrawal {
		if total, err = total.Add(c.StakeLock.Unstaked); err != nil {
			return err
		}
	}
	if err = s.updateStakeTokenValue(c, total.SaturatingSub(batch.Balance)); err != nil {
		return err
	}
	receipt := NewReceipt(batch.Id, batch.Balance, c.StakeTokenValue)
	if err = s.SetStakeBatchReceipt(receipt); err != nil {
		return err
	}
	if err = s.EventStakeBatchReceiptCreated(receipt); err != nil {
		return err
	}
	minted, err := c.StakeTokenValue.NearToStake(batch.Balance)
	if err != nil {
		return err
	}
	if c.TotalStakeSupply, err = c.TotalStakeSupply.Add(minted); err != nil {
		return err
	}
	staked, err := c.StakeTokenValue.TotalStakedNearBalance.Add(batch.Balance)
	if err != nil {
		return err
	}
	c.StakeTokenValue.TotalStakedNearBalance, c.StakeTokenValue.TotalStakeSupply = staked, c.TotalStakeSupply
	if err = s.popStakeBatch(c); err != nil {
		return err
	}
	if err = c.setStakeLock(StakeLock{State: StakeLockNone}); err != nil {
		return err
	}
	s.metrics.RoundCompleted(string(TaskKindStake))
	s.log.Infof("Stake batch %d settled: %s yocto minted %s yocto-STAKE", batch.Id, batch.Balance, minted)
	return s.SetContract(c)
}

// clearStakeLock() releases a stake round that never reached the venue
func (s *StateMachine) clearStakeLock(t *Task, r *TaskResult) (err lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	if c.StakeLock.State != StakeLockStaking || c.StakeLock.Round != t.Round {
		return nil
	}
	if movedFunds(t, r) {
		s.log.Errorf("Stake round %d moved funds at the venue and stays locked until cleared by the owner", t.Round)
		return nil
	}
	if c.NearLiquidityPool, err = c.NearLiquidityPool.Add(t.Args.Pooled); err != nil {
		return err
	}
	if err = c.setStakeLock(StakeLock{State: StakeLockNone}); err != nil {
		return err
	}
	if err = s.EventLockCleared("stake", StakeLockStaking.String(), t.Round); err != nil {
		return err
	}
	return s.SetContract(c)
}
