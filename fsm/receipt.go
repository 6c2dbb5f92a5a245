package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

// Receipt is the settlement record of a completed batch
// it is created once at the batch's exchange rate and shrinks as accounts claim their share
type Receipt[D lib.Denomination] struct {
	BatchId         BatchId         `json:"batchId"`
	Original        lib.Amount[D]   `json:"original"`
	Unclaimed       lib.Amount[D]   `json:"unclaimed"`
	StakeTokenValue StakeTokenValue `json:"stakeTokenValue"`
	// NEAR set aside for the unclaimed STAKE of a redeem receipt once it is withdrawn
	Reserved lib.YoctoNear `json:"reserved"`
}

type (
	StakeBatchReceipt       = Receipt[lib.Near]  // tracks the staked NEAR not yet converted into STAKE
	RedeemStakeBatchReceipt = Receipt[lib.Stake] // tracks the redeemed STAKE not yet converted into NEAR
)

// NewReceipt() creates a fully unclaimed receipt
func NewReceipt[D lib.Denomination](id BatchId, amount lib.Amount[D], value StakeTokenValue) *Receipt[D] {
	return &Receipt[D]{BatchId: id, Original: amount, Unclaimed: amount, StakeTokenValue: value}
}

// Claim() records that amount was settled and reports if the receipt is exhausted
func (r *Receipt[D]) Claim(amount lib.Amount[D]) (exhausted bool, err lib.ErrorI) {
	if amount.GT(r.Unclaimed) {
		return false, ErrIllegalState("claim exceeds the unclaimed receipt balance")
	}
	r.Unclaimed, err = r.Unclaimed.Sub(amount)
	return r.Unclaimed.IsZero(), err
}

// redeemedNear() is the NEAR a claim of amount receives from the reserve of a redeem receipt
// the claim that exhausts the receipt takes whatever the rounding of earlier claims left behind
func redeemedNear(r *RedeemStakeBatchReceipt, amount lib.YoctoStake) (lib.YoctoNear, lib.ErrorI) {
	if amount.Equal(r.Unclaimed) {
		return r.Reserved, nil
	}
	near, err := r.StakeTokenValue.StakeToNear(amount)
	if err != nil {
		return lib.YoctoNear{}, err
	}
	if near.GT(r.Reserved) {
		return lib.YoctoNear{}, ErrIllegalState("redeem claim exceeds the reserved near")
	}
	return near, nil
}

// reserve() sets aside the NEAR owed to the unclaimed STAKE of a redeem receipt and books it
func (s *StateMachine) reserve(c *ContractState, r *RedeemStakeBatchReceipt) (owed lib.YoctoNear, err lib.ErrorI) {
	if owed, err = r.StakeTokenValue.StakeToNear(r.Unclaimed); err != nil {
		return
	}
	if c.TotalNear, err = c.TotalNear.Add(owed); err != nil {
		return
	}
	r.Reserved = owed
	return owed, s.SetRedeemStakeBatchReceipt(r)
}

// GetStakeBatchReceipt() returns the receipt of a stake batch or nil
func (s *StateMachine) GetStakeBatchReceipt(id BatchId) (*StakeBatchReceipt, lib.ErrorI) {
	return getReceipt[lib.Near](s, KeyForStakeReceipt(id))
}

// GetRedeemStakeBatchReceipt() returns the receipt of a redeem batch or nil
func (s *StateMachine) GetRedeemStakeBatchReceipt(id BatchId) (*RedeemStakeBatchReceipt, lib.ErrorI) {
	return getReceipt[lib.Stake](s, KeyForRedeemReceipt(id))
}

// SetStakeBatchReceipt() saves the receipt or deletes it once it is exhausted
func (s *StateMachine) SetStakeBatchReceipt(r *StakeBatchReceipt) lib.ErrorI {
	if r.Unclaimed.IsZero() {
		return s.Delete(KeyForStakeReceipt(r.BatchId))
	}
	return s.setRecord(KeyForStakeReceipt(r.BatchId), r)
}

// SetRedeemStakeBatchReceipt() saves the receipt or deletes it once it is exhausted
func (s *StateMachine) SetRedeemStakeBatchReceipt(r *RedeemStakeBatchReceipt) lib.ErrorI {
	if r.Unclaimed.IsZero() {
		return s.Delete(KeyForRedeemReceipt(r.BatchId))
	}
	return s.setRecord(KeyForRedeemReceipt(r.BatchId), r)
}

// getReceipt() loads a receipt record
func getReceipt[D lib.Denomination](s *StateMachine, key []byte) (*Receipt[D], lib.ErrorI) {
	bz, err := s.Get(key)
	if err != nil || bz == nil {
		return nil, err
	}
	r := new(Receipt[D])
	if err = lib.Unmarshal(bz, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetStakeBatchReceipts() lists every outstanding stake receipt
func (s *StateMachine) GetStakeBatchReceipts() (list []*StakeBatchReceipt, err lib.ErrorI) {
	err = s.IterateAndExecute(StakeReceiptPrefix(), func(_, value []byte) lib.ErrorI {
		r := new(StakeBatchReceipt)
		if e := lib.Unmarshal(value, r); e != nil {
			return e
		}
		list = append(list, r)
		return nil
	})
	return
}

// GetRedeemStakeBatchReceipts() lists every outstanding redeem receipt
func (s *StateMachine) GetRedeemStakeBatchReceipts() (list []*RedeemStakeBatchReceipt, err lib.ErrorI) {
	err = s.IterateAndExecute(RedeemReceiptPrefix(), func(_, value []byte) lib.ErrorI {
		r := new(RedeemStakeBatchReceipt)
		if e := lib.Unmarshal(value, r); e != nil {
			return e
		}
		list = append(list, r)
		return nil
	})
	return
}

// PendingWithdrawal() is the receipt of the redeem batch whose unstaked NEAR awaits withdrawal
func (s *StateMachine) PendingWithdrawal() (*RedeemStakeBatchReceipt, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	return s.pendingWithdrawal(c)
}

// pendingWithdrawal() returns nil unless the redeem side is PendingWithdrawal
func (s *StateMachine) pendingWithdrawal(c *ContractState) (*RedeemStakeBatchReceipt, lib.ErrorI) {
	if c.RedeemLock.State != RedeemLockPendingWithdrawal {
		return nil, nil
	}
	r, err := s.GetRedeemStakeBatchReceipt(c.RedeemStakeBatchId)
	if err == nil && r == nil {
		err = ErrReceiptNotFound(c.RedeemStakeBatchId)
	}
	return r, err
}
