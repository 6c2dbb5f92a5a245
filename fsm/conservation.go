package fsm

import (
	"fmt"

	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the audit of the engine's books; it scans every account and is meant for tests and operators */

// CheckConservation() verifies the books
// - every open batch balance equals the sum of the account claims on it
// - every receipt's unclaimed balance equals the sum of the account claims on it
// - the NEAR held for accounts equals their balances plus the NEAR reserved by redeem receipts
// - the STAKE supply covers the balances, the open redeem batches and the unclaimed stake receipts
// the liquidity pool belongs to every STAKE holder at once and is not owed to any account
func (s *StateMachine) CheckConservation() lib.ErrorI {
	c, err := s.GetContract()
	if err != nil {
		return err
	}
	accounts, err := s.GetAccounts()
	if err != nil {
		return err
	}
	stakeClaims, redeemClaims := map[BatchId]lib.YoctoNear{}, map[BatchId]lib.YoctoStake{}
	var owedNear lib.YoctoNear
	var heldStake lib.YoctoStake
	for _, a := range accounts {
		for _, b := range []*StakeBatch{a.StakeBatch, a.NextStakeBatch} {
			if b == nil {
				continue
			}
			if stakeClaims[b.Id], err = stakeClaims[b.Id].Add(b.Balance); err != nil {
				return err
			}
		}
		for _, b := range []*RedeemStakeBatch{a.RedeemStakeBatch, a.NextRedeemStakeBatch} {
			if b == nil {
				continue
			}
			if redeemClaims[b.Id], err = redeemClaims[b.Id].Add(b.Balance); err != nil {
				return err
			}
		}
		if owedNear, err = owedNear.Add(a.Near); err != nil {
			return err
		}
		if heldStake, err = heldStake.Add(a.Stake); err != nil {
			return err
		}
	}
	// open batches
	for _, id := range []BatchId{c.StakeBatchId, c.NextStakeBatchId} {
		b, e := s.GetStakeBatch(id)
		if e != nil {
			return e
		}
		if b != nil && !b.Balance.Equal(stakeClaims[id]) {
			return ErrConservation(fmt.Sprintf("stake batch %d holds %s but accounts claim %s", id, b.Balance, stakeClaims[id]))
		}
	}
	for _, id := range []BatchId{c.RedeemStakeBatchId, c.NextRedeemStakeBatchId} {
		b, e := s.GetRedeemStakeBatch(id)
		if e != nil {
			return e
		}
		if b == nil {
			continue
		}
		if !b.Balance.Equal(redeemClaims[id]) {
			return ErrConservation(fmt.Sprintf("redeem batch %d holds %s but accounts claim %s", id, b.Balance, redeemClaims[id]))
		}
		// STAKE of a batch that was not unstaked yet is still in circulation
		receipt, e := s.GetRedeemStakeBatchReceipt(id)
		if e != nil {
			return e
		}
		if receipt == nil {
			if heldStake, err = heldStake.Add(b.Balance); err != nil {
				return err
			}
		}
	}
	// receipts
	stakeReceipts, err := s.GetStakeBatchReceipts()
	if err != nil {
		return err
	}
	for _, r := range stakeReceipts {
		if !r.Unclaimed.Equal(stakeClaims[r.BatchId]) {
			return ErrConservation(fmt.Sprintf("stake receipt %d has %s unclaimed but accounts claim %s", r.BatchId, r.Unclaimed, stakeClaims[r.BatchId]))
		}
		stake, e := r.StakeTokenValue.NearToStake(r.Unclaimed)
		if e != nil {
			return e
		}
		if heldStake, err = heldStake.Add(stake); err != nil {
			return err
		}
	}
	redeemReceipts, err := s.GetRedeemStakeBatchReceipts()
	if err != nil {
		return err
	}
	for _, r := range redeemReceipts {
		if !r.Unclaimed.Equal(redeemClaims[r.BatchId]) {
			return ErrConservation(fmt.Sprintf("redeem receipt %d has %s unclaimed but accounts claim %s", r.BatchId, r.Unclaimed, redeemClaims[r.BatchId]))
		}
		// the pending receipt reserves nothing until its NEAR is withdrawn
		if owedNear, err = owedNear.Add(r.Reserved); err != nil {
			return err
		}
	}
	if !c.TotalNear.Equal(owedNear) {
		return ErrConservation(fmt.Sprintf("books hold %s yocto for accounts but owe %s", c.TotalNear, owedNear))
	}
	if c.TotalStakeSupply.LT(heldStake) {
		return ErrConservation(fmt.Sprintf("stake supply %s is below the %s yocto-STAKE held", c.TotalStakeSupply, heldStake))
	}
	return nil
}
