package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

// RefreshStakeTokenValue() pings the venue to collect rewards and records the resulting token value
func (s *StateMachine) RefreshStakeTokenValue() lib.ErrorI {
	return s.atomic(func() lib.ErrorI {
		c, err := s.GetContract()
		if err != nil {
			return err
		}
		if err = c.checkCanRunBatch(); err != nil {
			return err
		}
		c.RoundSequence++
		round := c.RoundSequence
		if err = c.setStakeLock(StakeLock{State: StakeLockRefreshing, Round: round}); err != nil {
			return err
		}
		err = s.schedule(&Task{
			Round: round,
			Kind:  TaskKindRefresh,
			Calls: []lib.VenueCall{
				{Kind: lib.CallPing, Gas: s.Config.StakingPool.Ping},
				s.getAccountCall(),
			},
			Then:    OnRefreshStakeTokenValue,
			Finally: ClearRefreshLock,
			Gas:     s.Config.Callbacks.OnRefreshStakeTokenValue,
		})
		if err != nil {
			return err
		}
		return s.SetContract(c)
	})
}

// onRefreshStakeTokenValue() records the token value of the venue balance and releases the lock
func (s *StateMachine) onRefreshStakeTokenValue(_ *Task, r *TaskResult) lib.ErrorI {
	account, err := venueAccount(r)
	if err != nil {
		return err
	}
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	total := account.StakedBalance
	if c.RedeemLock.State != RedeemLockPendingWithdrawal {
		if total, err = account.Total(); err != nil {
			return err
		}
	}
	if err = s.updateStakeTokenValue(c, total); err != nil {
		return err
	}
	if err = c.setStakeLock(StakeLock{State: StakeLockNone}); err != nil {
		return err
	}
	return s.SetContract(c)
}

// clearRefreshLock() releases a refresh whose venue read failed
func (s *StateMachine) clearRefreshLock(t *Task) lib.ErrorI {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	if c.StakeLock.State != StakeLockRefreshing || c.StakeLock.Round != t.Round {
		return nil
	}
	if err = c.setStakeLock(StakeLock{State: StakeLockNone}); err != nil {
		return err
	}
	if err = s.EventLockCleared("stake", StakeLockRefreshing.String(), t.Round); err != nil {
		return err
	}
	return s.SetContract(c)
}
