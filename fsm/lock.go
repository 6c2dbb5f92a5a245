package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the two lock enumerations that gate which operations are legal */

// StakeLockState is the phase of the stake side
type StakeLockState uint8

const (
	StakeLockNone       StakeLockState = iota // no round in flight
	StakeLockStaking                          // the stake round's venue calls are in flight
	StakeLockStaked                           // the venue confirmed the stake, the batch awaits processing
	StakeLockRefreshing                       // a stake token value refresh is in flight
)

var stakeLockNames = map[StakeLockState]string{
	StakeLockNone:       "None",
	StakeLockStaking:    "Staking",
	StakeLockStaked:     "Staked",
	StakeLockRefreshing: "RefreshingStakeTokenValue",
}

func (s StakeLockState) String() string { return stakeLockNames[s] }

// stakeLockTransitions are the legal transitions of the stake side
var stakeLockTransitions = map[StakeLockState][]StakeLockState{
	StakeLockNone:       {StakeLockStaking, StakeLockRefreshing},
	StakeLockStaking:    {StakeLockStaked, StakeLockNone},
	StakeLockStaked:     {StakeLockNone},
	StakeLockRefreshing: {StakeLockNone},
}

// StakeLock is the stake side lock
// Round fences the scheduled tasks of the round that took the lock
type StakeLock struct {
	State StakeLockState `json:"state"`
	Round uint64         `json:"round,omitempty"`
	// captured when the venue confirms the stake
	Staked        lib.YoctoNear `json:"staked"`
	Unstaked      lib.YoctoNear `json:"unstaked"`
	NearLiquidity lib.YoctoNear `json:"nearLiquidity"`
}

// RedeemLockState is the phase of the redeem side
type RedeemLockState uint8

const (
	RedeemLockNone              RedeemLockState = iota // no round in flight
	RedeemLockUnstaking                                // the unstake leg is in flight
	RedeemLockPendingWithdrawal                        // unstaked NEAR is waiting out the venue lock-up
)

var redeemLockNames = map[RedeemLockState]string{
	RedeemLockNone:              "None",
	RedeemLockUnstaking:         "Unstaking",
	RedeemLockPendingWithdrawal: "PendingWithdrawal",
}

func (s RedeemLockState) String() string { return redeemLockNames[s] }

// redeemLockTransitions are the legal transitions of the redeem side
var redeemLockTransitions = map[RedeemLockState][]RedeemLockState{
	RedeemLockNone:              {RedeemLockUnstaking},
	RedeemLockUnstaking:         {RedeemLockPendingWithdrawal, RedeemLockNone},
	RedeemLockPendingWithdrawal: {RedeemLockNone},
}

// RedeemLock is the redeem side lock
type RedeemLock struct {
	State RedeemLockState `json:"state"`
	Round uint64          `json:"round,omitempty"`
}

// setStakeLock() moves the stake side to a new phase
func (c *ContractState) setStakeLock(lock StakeLock) lib.ErrorI {
	if !legal(stakeLockTransitions, c.StakeLock.State, lock.State) {
		return ErrInvalidLockTransition(c.StakeLock.State, lock.State)
	}
	c.StakeLock = lock
	return nil
}

// setRedeemLock() moves the redeem side to a new phase
func (c *ContractState) setRedeemLock(lock RedeemLock) lib.ErrorI {
	if !legal(redeemLockTransitions, c.RedeemLock.State, lock.State) {
		return ErrInvalidLockTransition(c.RedeemLock.State, lock.State)
	}
	c.RedeemLock = lock
	return nil
}

// legal() checks a transition against its table; staying in place is always legal
func legal[S comparable](table map[S][]S, from, to S) bool {
	if from == to {
		return true
	}
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// checkCanRunBatch() returns the lock conflict that keeps a stake round from starting
func (c *ContractState) checkCanRunBatch() lib.ErrorI {
	switch {
	case c.StakeLock.State == StakeLockRefreshing:
		return ErrRefreshInProcess()
	case c.StakeLock.State != StakeLockNone:
		return ErrStakeLocked(c.StakeLock.State)
	case c.IsUnstaking():
		return ErrUnstakeInFlight()
	}
	return nil
}
