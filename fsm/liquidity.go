package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the NEAR liquidity pool and the account level NEAR movements */

// addNearLiquidity() credits the liquidity pool
func (s *StateMachine) addNearLiquidity(c *ContractState, amount lib.YoctoNear) (err lib.ErrorI) {
	if amount.IsZero() {
		return nil
	}
	if c.NearLiquidityPool, err = c.NearLiquidityPool.Add(amount); err != nil {
		return err
	}
	return s.EventNearLiquidityAdded(amount, c.NearLiquidityPool)
}

// NearLiquidityPool() is the NEAR available to settle a pending withdrawal early
func (s *StateMachine) NearLiquidityPool() (lib.YoctoNear, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return lib.YoctoNear{}, err
	}
	return c.NearLiquidityPool, nil
}

// WithdrawNear() pays out NEAR from the account's available balance
// if the engine's unstaked NEAR does not cover the payout the difference is drawn from the liquidity pool
func (s *StateMachine) WithdrawNear(id string, amount lib.YoctoNear) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	return s.atomic(func() lib.ErrorI {
		c, a, err := s.loadClaimed(id)
		if err != nil {
			return err
		}
		return s.withdrawNear(c, a, amount)
	})
}

// WithdrawAllNear() pays out the account's entire available NEAR balance
func (s *StateMachine) WithdrawAllNear(id string) (amount lib.YoctoNear, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if amount = a.Near; amount.IsZero() {
			return s.save(c, a)
		}
		return s.withdrawNear(c, a, amount)
	})
	return
}

func (s *StateMachine) withdrawNear(c *ContractState, a *Account, amount lib.YoctoNear) (err lib.ErrorI) {
	if a.Near.LT(amount) {
		return ErrInsufficientBalance("near", a.Near, amount)
	}
	if a.Near, err = a.Near.Sub(amount); err != nil {
		return err
	}
	if c.TotalNear.LT(amount) {
		shortfall := amount.SaturatingSub(c.TotalNear)
		if c.NearLiquidityPool, err = c.NearLiquidityPool.Sub(shortfall); err != nil {
			return ErrIllegalState("liquidity pool cannot cover the near withdrawal")
		}
		if c.TotalNear, err = c.TotalNear.Add(shortfall); err != nil {
			return err
		}
	}
	if c.TotalNear, err = c.TotalNear.Sub(amount); err != nil {
		return err
	}
	if err = s.EventNearWithdrawn(a.Id, amount); err != nil {
		return err
	}
	return s.save(c, a)
}

// TransferNear() moves available NEAR between two registered accounts
func (s *StateMachine) TransferNear(from, to string, amount lib.YoctoNear) lib.ErrorI {
	if amount.IsZero() {
		return ErrZeroAmount()
	}
	if from == to {
		return ErrSelfTransfer()
	}
	return s.atomic(func() lib.ErrorI {
		c, sender, err := s.loadClaimed(from)
		if err != nil {
			return err
		}
		recipient, err := s.GetAccount(to)
		if err != nil {
			return err
		}
		if err = s.claimReceiptFunds(c, recipient); err != nil {
			return err
		}
		if sender.Near.LT(amount) {
			return ErrInsufficientBalance("near", sender.Near, amount)
		}
		if sender.Near, err = sender.Near.Sub(amount); err != nil {
			return err
		}
		if recipient.Near, err = recipient.Near.Add(amount); err != nil {
			return err
		}
		return s.save(c, sender, recipient)
	})
}
