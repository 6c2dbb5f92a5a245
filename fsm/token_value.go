package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

// BlockTimeHeight is the logical block context a value was recorded at
type BlockTimeHeight struct {
	BlockHeight    uint64 `json:"blockHeight"`
	BlockTimestamp uint64 `json:"blockTimestamp"` // unix nanoseconds
	EpochHeight    uint64 `json:"epochHeight"`
}

// StakeTokenValue is a snapshot of the exchange rate between NEAR and STAKE
type StakeTokenValue struct {
	BlockTimeHeight        BlockTimeHeight `json:"blockTimeHeight"`
	TotalStakedNearBalance lib.YoctoNear   `json:"totalStakedNearBalance"`
	TotalStakeSupply       lib.YoctoStake  `json:"totalStakeSupply"`
}

// isIdentity() is true when the rate degrades to 1:1
func (v *StakeTokenValue) isIdentity() bool {
	return v.TotalStakedNearBalance.IsZero() || v.TotalStakeSupply.IsZero()
}

// NearToStake() converts NEAR into STAKE at this value, rounding down
func (v *StakeTokenValue) NearToStake(near lib.YoctoNear) (lib.YoctoStake, lib.ErrorI) {
	if v.isIdentity() {
		return lib.Convert[lib.Stake](near), nil
	}
	return lib.MulDiv(near, v.TotalStakeSupply, v.TotalStakedNearBalance)
}

// StakeToNear() converts STAKE into NEAR at this value, rounding down
func (v *StakeTokenValue) StakeToNear(stake lib.YoctoStake) (lib.YoctoNear, lib.ErrorI) {
	if v.isIdentity() {
		return lib.Convert[lib.Near](stake), nil
	}
	return lib.MulDiv(stake, v.TotalStakedNearBalance, v.TotalStakeSupply)
}

// NearValue() is the NEAR value of one whole STAKE token
func (v *StakeTokenValue) NearValue() (lib.YoctoNear, lib.ErrorI) {
	return v.StakeToNear(lib.OneStake())
}

// updateStakeTokenValue() records the token value implied by the reported staked balance
// the value of one STAKE never decreases while the reported balance is non-zero: any shortfall
// left by the venue's share rounding is added to the liquidity pool and folded into the new value
func (s *StateMachine) updateStakeTokenValue(c *ContractState, reported lib.YoctoNear) lib.ErrorI {
	bth, err := s.blockTimeHeight()
	if err != nil {
		return err
	}
	next := StakeTokenValue{BlockTimeHeight: bth, TotalStakedNearBalance: reported, TotalStakeSupply: c.TotalStakeSupply}
	if !reported.IsZero() {
		current, e := c.StakeTokenValue.NearValue()
		if e != nil {
			return e
		}
		proposed, e := next.NearValue()
		if e != nil {
			return e
		}
		if proposed.LT(current) {
			// the total that keeps one STAKE worth at least the current value
			required, er := lib.MulDivCeil(c.TotalStakeSupply, current, lib.OneStake())
			if er != nil {
				return er
			}
			shortfall := required.SaturatingSub(reported)
			if err = s.addNearLiquidity(c, shortfall); err != nil {
				return err
			}
			if next.TotalStakedNearBalance, err = reported.Add(shortfall); err != nil {
				return err
			}
		}
	}
	c.StakeTokenValue = next
	return s.EventStakeTokenValueUpdated(next)
}
