package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the operations reserved to the contract owner */

// Params are the owner controlled options persisted alongside the contract
type Params struct {
	Engine lib.EngineConfig `json:"engine"`
	Gas    lib.GasConfig    `json:"gas"`
}

// loadParams() overrides the configured options with the persisted ones, if any
func (s *StateMachine) loadParams() lib.ErrorI {
	bz, err := s.Get(ParamsKey())
	if err != nil || bz == nil {
		return err
	}
	p := new(Params)
	if err = lib.Unmarshal(bz, p); err != nil {
		return err
	}
	s.Config.EngineConfig, s.Config.GasConfig = p.Engine, p.Gas
	return nil
}

// GetParams() returns the options in effect
func (s *StateMachine) GetParams() Params {
	return Params{Engine: s.Config.EngineConfig, Gas: s.Config.GasConfig}
}

// ownerOperation() runs op for the owner; any other caller is rejected
func (s *StateMachine) ownerOperation(caller string, op func(c *ContractState) lib.ErrorI) lib.ErrorI {
	return s.atomic(func() lib.ErrorI {
		c, err := s.GetContract()
		if err != nil {
			return err
		}
		if caller != c.OwnerId {
			return ErrNotOwner()
		}
		return op(c)
	})
}

// CollectEarnings() books NEAR earned outside the staked balance; it is distributed at the next stake round
func (s *StateMachine) CollectEarnings(caller string, amount lib.YoctoNear) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	return s.ownerOperation(caller, func(c *ContractState) (err lib.ErrorI) {
		if c.CollectedEarnings, err = c.CollectedEarnings.Add(amount); err != nil {
			return err
		}
		return s.SetContract(c)
	})
}

// StakeOwnerBalance() deposits part of the owner balance into the owner account's stake batch
func (s *StateMachine) StakeOwnerBalance(caller string, amount lib.YoctoNear) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	return s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		return s.stakeOwnerBalance(c, amount)
	})
}

// StakeAllOwnerBalance() deposits the entire owner balance into the owner account's stake batch
func (s *StateMachine) StakeAllOwnerBalance(caller string) (amount lib.YoctoNear, err lib.ErrorI) {
	err = s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		if amount = c.OwnerBalance; amount.IsZero() {
			return ErrInsufficientOwnerBalance()
		}
		return s.stakeOwnerBalance(c, amount)
	})
	return
}

func (s *StateMachine) stakeOwnerBalance(c *ContractState, amount lib.YoctoNear) (err lib.ErrorI) {
	if c.OwnerBalance.LT(amount) {
		return ErrInsufficientOwnerBalance()
	}
	owner, err := s.GetAccount(c.OwnerId)
	if err != nil {
		return err
	}
	if err = s.claimReceiptFunds(c, owner); err != nil {
		return err
	}
	if c.OwnerBalance, err = c.OwnerBalance.Sub(amount); err != nil {
		return err
	}
	if _, err = s.deposit(c, owner, amount); err != nil {
		return err
	}
	return s.save(c, owner)
}

// WithdrawOwnerBalance() pays out part of the owner balance
func (s *StateMachine) WithdrawOwnerBalance(caller string, amount lib.YoctoNear) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	return s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		return s.withdrawOwnerBalance(c, amount)
	})
}

// WithdrawAllOwnerBalance() pays out the entire owner balance
func (s *StateMachine) WithdrawAllOwnerBalance(caller string) (amount lib.YoctoNear, err lib.ErrorI) {
	err = s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		if amount = c.OwnerBalance; amount.IsZero() {
			return ErrInsufficientOwnerBalance()
		}
		return s.withdrawOwnerBalance(c, amount)
	})
	return
}

func (s *StateMachine) withdrawOwnerBalance(c *ContractState, amount lib.YoctoNear) (err lib.ErrorI) {
	if c.OwnerBalance.LT(amount) {
		return ErrInsufficientOwnerBalance()
	}
	if c.OwnerBalance, err = c.OwnerBalance.Sub(amount); err != nil {
		return err
	}
	if err = s.EventNearWithdrawn(c.OwnerId, amount); err != nil {
		return err
	}
	return s.SetContract(c)
}

// TransferOwnership() hands the contract to another registered account
func (s *StateMachine) TransferOwnership(caller, newOwner string) lib.ErrorI {
	return s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		registered, err := s.AccountRegistered(newOwner)
		if err != nil {
			return err
		}
		if !registered {
			return ErrAccountNotRegistered(newOwner)
		}
		s.log.Infof("Ownership transferred from %s to %s", c.OwnerId, newOwner)
		c.OwnerId = newOwner
		return s.SetContract(c)
	})
}

// UpdateConfig() merges and persists new engine options
func (s *StateMachine) UpdateConfig(caller string, update lib.EngineConfigUpdate) lib.ErrorI {
	params := s.GetParams()
	err := s.ownerOperation(caller, func(_ *ContractState) lib.ErrorI {
		if err := params.Engine.Merge(update, false); err != nil {
			return err
		}
		return s.setRecord(ParamsKey(), params)
	})
	if err == nil {
		s.Config.EngineConfig = params.Engine
	}
	return err
}

// UpdateGasConfig() merges and persists new gas budgets; force skips the range checks
func (s *StateMachine) UpdateGasConfig(caller string, update lib.GasConfigUpdate, force bool) lib.ErrorI {
	params := s.GetParams()
	err := s.ownerOperation(caller, func(_ *ContractState) lib.ErrorI {
		if err := params.Gas.Merge(update, force); err != nil {
			return err
		}
		return s.setRecord(ParamsKey(), params)
	})
	if err == nil {
		s.Config.GasConfig = params.Gas
	}
	return err
}

// ClearStakeLock() resets a wedged stake side and drops the scheduled tasks of its round
// a Staked round is finished instead: its NEAR is already at the venue
// fails while a task of the side is started, since its calls may already have reached the venue
func (s *StateMachine) ClearStakeLock(caller string) lib.ErrorI {
	return s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		from := c.StakeLock
		dropped, err := s.deleteTasks(TaskKindStake, TaskKindRefresh)
		if err != nil {
			return err
		}
		switch from.State {
		case StakeLockNone:
			return nil
		case StakeLockStaked:
			if err = s.processStakedBatch(); err != nil {
				return err
			}
			return s.EventLockCleared("stake", from.State.String(), from.Round)
		}
		// pool NEAR of a deposit that was never sent returns to the pool
		for _, t := range dropped {
			if c.NearLiquidityPool, err = c.NearLiquidityPool.Add(t.Args.Pooled); err != nil {
				return err
			}
		}
		if err = c.setStakeLock(StakeLock{State: StakeLockNone}); err != nil {
			return err
		}
		if err = s.EventLockCleared("stake", from.State.String(), from.Round); err != nil {
			return err
		}
		return s.SetContract(c)
	})
}

// ClearRedeemLock() resets a wedged unstake and drops the scheduled tasks of the redeem side
// a pending withdrawal keeps its lock: its receipt may only be claimed once the NEAR is withdrawn
func (s *StateMachine) ClearRedeemLock(caller string) lib.ErrorI {
	return s.ownerOperation(caller, func(c *ContractState) lib.ErrorI {
		from := c.RedeemLock
		if _, err := s.deleteTasks(TaskKindRedeem); err != nil {
			return err
		}
		if from.State != RedeemLockUnstaking {
			return nil
		}
		if err := c.setRedeemLock(RedeemLock{State: RedeemLockNone}); err != nil {
			return err
		}
		if err := s.EventLockCleared("redeem", from.State.String(), from.Round); err != nil {
			return err
		}
		return s.SetContract(c)
	})
}
