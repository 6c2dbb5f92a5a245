package venue

import (
	"context"
	"time"

	"github.com/canopy-network/stakebatch/lib"
)

/* This file defines the staking venue the engine delegates staking to */

// Venue is the external staking pool
// every call is made on behalf of the engine's own account at the venue
type Venue interface {
	GetAccount(ctx context.Context) (*lib.StakingPoolAccount, lib.ErrorI)
	DepositAndStake(ctx context.Context, amount lib.YoctoNear) lib.ErrorI
	Deposit(ctx context.Context, amount lib.YoctoNear) lib.ErrorI
	Stake(ctx context.Context, amount lib.YoctoNear) lib.ErrorI
	Unstake(ctx context.Context, amount lib.YoctoNear) lib.ErrorI
	Withdraw(ctx context.Context, amount lib.YoctoNear) lib.ErrorI
	Ping(ctx context.Context) lib.ErrorI
}

// Call() performs a single venue call; only get_account returns an account
func Call(ctx context.Context, v Venue, call lib.VenueCall) (*lib.StakingPoolAccount, lib.ErrorI) {
	switch call.Kind {
	case lib.CallGetAccount:
		return v.GetAccount(ctx)
	case lib.CallDepositAndStake:
		return nil, v.DepositAndStake(ctx, call.Amount)
	case lib.CallDeposit:
		return nil, v.Deposit(ctx, call.Amount)
	case lib.CallStake:
		return nil, v.Stake(ctx, call.Amount)
	case lib.CallUnstake:
		return nil, v.Unstake(ctx, call.Amount)
	case lib.CallWithdraw:
		return nil, v.Withdraw(ctx, call.Amount)
	case lib.CallPing:
		return nil, v.Ping(ctx)
	}
	return nil, ErrVenueRejected(call.Kind, "unknown call")
}

// Execute() performs the calls in order and stops at the first failure
// it returns how many calls succeeded and the reply of the last successful get_account
func Execute(ctx context.Context, v Venue, calls []lib.VenueCall, metrics *lib.Metrics) (completed int, account *lib.StakingPoolAccount, err lib.ErrorI) {
	for _, call := range calls {
		start := time.Now()
		reply, e := Call(ctx, v, call)
		metrics.ObserveVenueCall(string(call.Kind), time.Since(start), e != nil)
		if e != nil {
			return completed, account, e
		}
		if reply != nil {
			account = reply
		}
		completed++
	}
	return
}
