package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

// distributeEarnings() splits the collected earnings between the owner and the liquidity pool
// the pool share is staked with the next batch, which raises the value of every STAKE
func (s *StateMachine) distributeEarnings(c *ContractState) (err lib.ErrorI) {
	if c.CollectedEarnings.IsZero() {
		return nil
	}
	total := c.CollectedEarnings
	ownerShare := total.Percent(s.Config.OwnerEarningsPercentage)
	poolShare := total.SaturatingSub(ownerShare)
	if c.OwnerBalance, err = c.OwnerBalance.Add(ownerShare); err != nil {
		return err
	}
	if err = s.addNearLiquidity(c, poolShare); err != nil {
		return err
	}
	c.CollectedEarnings = lib.YoctoNear{}
	return s.EventEarningsDistributed(total, ownerShare, poolShare)
}
