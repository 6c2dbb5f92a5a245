package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the fungible token surface of STAKE */

// FtTransfer() moves STAKE between two registered accounts after settling both
func (s *StateMachine) FtTransfer(from, to string, amount lib.YoctoStake) lib.ErrorI {
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
		if sender.Stake.LT(amount) {
			return ErrInsufficientBalance("stake", sender.Stake, amount)
		}
		if sender.Stake, err = sender.Stake.Sub(amount); err != nil {
			return err
		}
		if recipient.Stake, err = recipient.Stake.Add(amount); err != nil {
			return err
		}
		return s.save(c, sender, recipient)
	})
}

// FtTotalSupply() is the STAKE in circulation
func (s *StateMachine) FtTotalSupply() (lib.YoctoStake, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return lib.YoctoStake{}, err
	}
	return c.TotalStakeSupply, nil
}

// FtBalanceOf() is the STAKE an account holds once its completed batches are claimed
func (s *StateMachine) FtBalanceOf(id string) (lib.YoctoStake, lib.ErrorI) {
	a, err := s.ApplyReceiptFundsForView(id)
	if err != nil {
		return lib.YoctoStake{}, err
	}
	return a.Stake, nil
}
