package lib

/* This file defines the vocabulary shared by the engine and the staking venue clients */

// StakingPoolAccount is the engine's account as reported by the staking venue
type StakingPoolAccount struct {
	AccountId       string    `json:"accountId"`
	UnstakedBalance YoctoNear `json:"unstakedBalance"`
	StakedBalance   YoctoNear `json:"stakedBalance"`
	CanWithdraw     bool      `json:"canWithdraw"`
}

// Total() is the staked plus unstaked balance at the venue
func (a *StakingPoolAccount) Total() (YoctoNear, ErrorI) {
	return a.StakedBalance.Add(a.UnstakedBalance)
}

// CallKind names a method of the staking venue
type CallKind string

const (
	CallGetAccount      CallKind = "get_account"
	CallDepositAndStake CallKind = "deposit_and_stake"
	CallDeposit         CallKind = "deposit"
	CallStake           CallKind = "stake"
	CallUnstake         CallKind = "unstake"
	CallWithdraw        CallKind = "withdraw"
	CallPing            CallKind = "ping"
)

// Mutating() is true for calls that move funds at the venue
func (c CallKind) Mutating() bool {
	switch c {
	case CallGetAccount, CallPing:
		return false
	}
	return true
}

// VenueCall is one scheduled invocation of the staking venue
type VenueCall struct {
	Kind   CallKind  `json:"kind"`
	Amount YoctoNear `json:"amount"`
	Gas    Gas       `json:"gas"`
}
